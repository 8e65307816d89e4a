package filecopy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tturner/nxsync/internal/device"
	"github.com/tturner/nxsync/internal/logging"
	"github.com/tturner/nxsync/internal/transport"
)

// Direction selects which way a transfer moves the file.
type Direction int

const (
	// Push copies the local file to the device.
	Push Direction = iota
	// Pull copies the device file to the local path.
	Pull
)

func (d Direction) String() string {
	if d == Pull {
		return "pull"
	}
	return "push"
}

// Opener opens bulk transfer channels. transport.Dialer satisfies it.
type Opener interface {
	Open(ctx context.Context, ep transport.Endpoint) (transport.FileTransfer, error)
}

// Config carries the collaborators of a Synchronizer.
type Config struct {
	// Commands queries the device. Required.
	Commands device.Channel
	// Opener opens the bulk transfer channel. Required for transfers.
	Opener Opener
	// Identity is the default login for transfers.
	Identity device.Identity
	// Dialect defaults to NXOS.
	Dialect Dialect
	// Logger defaults to a discarding logger.
	Logger *logging.Logger
}

// Synchronizer answers space and checksum questions about one SyncJob and
// performs its transfer. Every query goes to the device; nothing is cached.
type Synchronizer struct {
	job      SyncJob
	commands device.Channel
	opener   Opener
	identity device.Identity
	dialect  Dialect
	log      *logging.Logger
}

// New creates a Synchronizer for job.
func New(job SyncJob, cfg Config) (*Synchronizer, error) {
	job, err := job.Normalize()
	if err != nil {
		return nil, err
	}
	if cfg.Commands == nil {
		return nil, fmt.Errorf("command channel is required")
	}
	if cfg.Dialect == nil {
		cfg.Dialect = NXOS{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Synchronizer{
		job:      job,
		commands: cfg.Commands,
		opener:   cfg.Opener,
		identity: cfg.Identity,
		dialect:  cfg.Dialect,
		log:      cfg.Logger,
	}, nil
}

// Job returns the normalized job.
func (s *Synchronizer) Job() SyncJob {
	return s.job
}

// QueryRemoteFreeBytes returns the free space reported for the remote
// directory.
func (s *Synchronizer) QueryRemoteFreeBytes(ctx context.Context) (int64, error) {
	cmd := s.dialect.FreeSpaceCommand(s.job.RemoteDirectory)
	out, err := s.commands.Show(ctx, cmd)
	if err != nil {
		return 0, err
	}

	free, ok := s.dialect.ParseFreeBytes(out)
	if !ok {
		return 0, &ProtocolParseError{Command: cmd, Marker: FreeBytesMarker, Output: out}
	}
	s.log.Debug("%s has %d bytes free", s.job.RemoteDirectory, free)
	return free, nil
}

// localSize returns the size of the source file.
func (s *Synchronizer) localSize() (int64, error) {
	info, err := os.Stat(s.job.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, &LocalFileNotFoundError{Path: s.job.SourcePath}
		}
		return 0, err
	}
	return info.Size(), nil
}

// HasEnoughRemoteSpace reports whether the source file fits in the remote
// directory's free space. A file exactly the size of the free space fits.
func (s *Synchronizer) HasEnoughRemoteSpace(ctx context.Context) (bool, error) {
	free, err := s.QueryRemoteFreeBytes(ctx)
	if err != nil {
		return false, err
	}
	size, err := s.localSize()
	if err != nil {
		return false, err
	}
	return size <= free, nil
}

// LocalFileExists reports whether the source path names a regular file.
func (s *Synchronizer) LocalFileExists() bool {
	return isRegularFile(s.job.SourcePath)
}

// RemoteFileExists lists the destination file and reports false only when
// the device says there is no such file. Other wording reads as present.
// Some releases fail the listing itself for a missing file; a failed command
// whose message carries the missing marker also reads as absent.
func (s *Synchronizer) RemoteFileExists(ctx context.Context) (bool, error) {
	out, err := s.commands.Show(ctx, s.dialect.ExistsCommand(s.job.RemoteDirectory, s.job.DestinationName))
	if err != nil {
		var cerr *device.CommandError
		if errors.As(err, &cerr) && cerr.Kind == device.KindFailed &&
			(s.dialect.ReportsMissing(cerr.Message) || s.dialect.ReportsMissing(cerr.RawOutput)) {
			return false, nil
		}
		return false, err
	}
	return !s.dialect.ReportsMissing(out), nil
}

// ComputeLocalHash returns the hex MD5 of the source file, or "" when the
// file does not exist.
func (s *Synchronizer) ComputeLocalHash() (string, error) {
	return s.ComputeLocalHashBlock(DefaultBlockSize)
}

// ComputeLocalHashBlock is ComputeLocalHash with an explicit read size.
func (s *Synchronizer) ComputeLocalHashBlock(blockSize int) (string, error) {
	if !s.LocalFileExists() {
		return "", nil
	}
	return HashFile(s.job.SourcePath, blockSize)
}

// RemoteDigest is the device's answer to a checksum query. Degraded is set
// when the device could not produce structured output and Value is the raw
// text of its reply.
type RemoteDigest struct {
	Value    string
	Degraded bool
}

// QueryRemoteDigest asks the device for the MD5 of the destination file.
func (s *Synchronizer) QueryRemoteDigest(ctx context.Context) (RemoteDigest, error) {
	cmd := s.dialect.ChecksumCommand(s.job.RemotePath())
	body, err := s.commands.ShowStructured(ctx, cmd)
	if err != nil {
		var cerr *device.CommandError
		if errors.As(err, &cerr) && cerr.Kind == device.KindStructuredUnsupported {
			s.log.Verbose("device returned unstructured checksum for %s", s.job.RemotePath())
			return RemoteDigest{Value: cerr.RawOutput, Degraded: true}, nil
		}
		return RemoteDigest{}, err
	}

	sum, ok := s.dialect.ParseChecksum(body)
	if !ok {
		return RemoteDigest{}, &ProtocolParseError{Command: cmd, Marker: ChecksumField}
	}
	return RemoteDigest{Value: sum}, nil
}

// QueryRemoteHash returns the remote MD5, or the raw reply text when the
// device cannot answer in structured form.
func (s *Synchronizer) QueryRemoteHash(ctx context.Context) (string, error) {
	d, err := s.QueryRemoteDigest(ctx)
	if err != nil {
		return "", err
	}
	return d.Value, nil
}

// FilesMatch reports whether the local and remote hashes are equal strings.
func (s *Synchronizer) FilesMatch(ctx context.Context) (bool, error) {
	local, err := s.ComputeLocalHash()
	if err != nil {
		return false, err
	}
	remote, err := s.QueryRemoteHash(ctx)
	if err != nil {
		return false, err
	}
	return local == remote, nil
}

// TransferOptions overrides the connection identity for one transfer.
// Empty fields fall back to the configured identity and the job's port.
type TransferOptions struct {
	Host     string
	Username string
	Password string
	Port     int
}

func (s *Synchronizer) endpoint(opts TransferOptions) transport.Endpoint {
	ep := transport.Endpoint{
		Host:     s.identity.Host,
		Username: s.identity.Username,
		Password: s.identity.Password,
		Port:     s.job.Port,
	}
	if opts.Host != "" {
		ep.Host = opts.Host
	}
	if opts.Username != "" {
		ep.Username = opts.Username
	}
	if opts.Password != "" {
		ep.Password = opts.Password
	}
	if opts.Port != 0 {
		ep.Port = opts.Port
	}
	return ep
}

// Transfer copies the file in the given direction. Pushes are checked for a
// local file and enough remote space before any connection is made.
func (s *Synchronizer) Transfer(ctx context.Context, dir Direction, opts TransferOptions) error {
	if dir == Push {
		if !s.LocalFileExists() {
			return &TransferError{Direction: dir, Stage: StagePreflight, Message: msgNoLocalFile}
		}
		enough, err := s.HasEnoughRemoteSpace(ctx)
		if err != nil {
			return err
		}
		if !enough {
			return &TransferError{Direction: dir, Stage: StagePreflight, Message: msgNoSpace}
		}
	}

	if s.opener == nil {
		return fmt.Errorf("no transfer channel configured")
	}

	ep := s.endpoint(opts)
	remotePath := s.job.RemotePath()
	start := time.Now()

	channel, err := s.opener.Open(ctx, ep)
	if err != nil {
		s.log.LogTransfer(dir.String(), s.job.SourcePath, remotePath, 0, time.Since(start), err)
		return &TransferError{
			Direction: dir,
			Stage:     StageConnect,
			Message:   fmt.Sprintf("could not transfer file: connecting to %s failed: %v", ep.Address(), err),
			cause:     err,
		}
	}
	defer func() {
		if cerr := channel.Close(); cerr != nil {
			s.log.Debug("close %s: %v", channel, cerr)
		}
	}()

	s.log.Verbose("%s %s <-> %s via %s", dir, s.job.SourcePath, remotePath, channel)

	if dir == Pull {
		err = channel.Get(ctx, remotePath, s.job.SourcePath)
	} else {
		err = channel.Put(ctx, s.job.SourcePath, remotePath)
	}

	var size int64
	if info, statErr := os.Stat(s.job.SourcePath); statErr == nil {
		size = info.Size()
	}
	s.log.LogTransfer(dir.String(), s.job.SourcePath, remotePath, size, time.Since(start), err)

	if err != nil {
		s.log.Debug("transfer detail: %v", err)
		return &TransferError{Direction: dir, Stage: StageData, Message: msgDataPhase}
	}
	return nil
}
