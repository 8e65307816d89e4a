package filecopy

import (
	"errors"
	"fmt"
)

// LocalFileNotFoundError is returned when the source file is missing.
type LocalFileNotFoundError struct {
	Path string
}

func (e *LocalFileNotFoundError) Error() string {
	return fmt.Sprintf("local file %s does not exist", e.Path)
}

// ProtocolParseError is returned when a device reply lacks the marker or
// field it is expected to carry.
type ProtocolParseError struct {
	Command string
	Marker  string
	Output  string
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("reply to %q does not contain %q", e.Command, e.Marker)
}

// Stage says where a transfer failed.
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageConnect   Stage = "connect"
	StageData      Stage = "data"
)

// TransferError is returned by Transfer. Data stage failures carry no cause;
// the transport detail is logged at debug level instead.
type TransferError struct {
	Direction Direction
	Stage     Stage
	Message   string
	cause     error
}

func (e *TransferError) Error() string {
	return e.Message
}

// Unwrap exposes the cause of connect stage failures.
func (e *TransferError) Unwrap() error {
	return e.cause
}

const (
	msgNoLocalFile = "could not transfer file: local file doesn't exist"
	msgNoSpace     = "could not transfer file: not enough space on device"
	msgDataPhase   = "could not transfer file: there was an error during transfer, please make sure remote permissions are set"
)

// ErrVerifyMismatch is returned by Sync when the hashes differ after a push.
var ErrVerifyMismatch = errors.New("remote file checksum does not match local file after transfer")
