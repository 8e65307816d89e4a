// Package device implements the command channels used to query a network
// device: NX-API JSON-RPC over HTTP(S) and CLI commands over SSH.
package device

import (
	"context"
	"fmt"
	"strings"
)

// Channel sends show commands to a connected device.
type Channel interface {
	// Show runs command and returns the device's raw text reply.
	Show(ctx context.Context, command string) (string, error)

	// ShowStructured runs command and returns the decoded structured reply.
	// Failures reported by the device are *CommandError values.
	ShowStructured(ctx context.Context, command string) (map[string]any, error)
}

// ErrorKind classifies a CommandError.
type ErrorKind int

const (
	// KindFailed means the device rejected or failed the command.
	KindFailed ErrorKind = iota
	// KindStructuredUnsupported means the command ran but the device could
	// not render its output in structured form; RawOutput holds the text.
	KindStructuredUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindStructuredUnsupported:
		return "structured output unsupported"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// CommandError is returned when the device reports an error for a command.
type CommandError struct {
	Command   string
	Kind      ErrorKind
	Message   string
	RawOutput string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("the command %q gave the error %q", e.Command, e.Message)
}

// structuredUnsupportedMarker is how NX-OS reports that a command has no
// structured renderer.
const structuredUnsupportedMarker = "Structured output unsupported"

// classify returns the kind implied by a device error message.
func classify(message string) ErrorKind {
	if strings.Contains(message, structuredUnsupportedMarker) {
		return KindStructuredUnsupported
	}
	return KindFailed
}

// Identity is the login identity of a device. It is the default for bulk
// transfer connections made on the device's behalf.
type Identity struct {
	Host     string
	Username string
	Password string
}
