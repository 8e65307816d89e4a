// Package transport provides the bulk file transfer channels used to move
// files to and from network devices: SCP and SFTP over SSH, plus a
// directory-backed channel for labs and tests.
package transport

import (
	"context"
	"fmt"
	"io"
	"time"
)

// FileTransfer moves file payloads between the local host and a device.
// Implementations stream file content and never buffer whole files.
type FileTransfer interface {
	// Put copies a local file to remotePath.
	Put(ctx context.Context, localPath, remotePath string) error

	// Get copies remotePath to a local file, overwriting it.
	Get(ctx context.Context, remotePath, localPath string) error

	// Close releases any held resources (e.g., SSH connection).
	Close() error

	// String returns a human-readable description of the transport.
	String() string
}

// Protocol names a bulk transfer protocol.
type Protocol string

const (
	ProtocolSCP   Protocol = "scp"
	ProtocolSFTP  Protocol = "sftp"
	ProtocolLocal Protocol = "local"
)

// ParseProtocol validates a protocol name. Empty means SCP.
func ParseProtocol(name string) (Protocol, error) {
	switch Protocol(name) {
	case "", ProtocolSCP:
		return ProtocolSCP, nil
	case ProtocolSFTP, ProtocolLocal:
		return Protocol(name), nil
	default:
		return "", fmt.Errorf("unsupported transfer protocol: %s", name)
	}
}

// Endpoint identifies the device side of a transfer.
type Endpoint struct {
	Host     string
	Username string
	Password string
	Port     int
}

// Address returns host:port, defaulting the port to 22.
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", e.Host, port)
}

// ProgressFunc returns a writer that receives a copy of every transferred
// byte of the named file. It may return nil to disable progress reporting.
type ProgressFunc func(name string, total int64) io.Writer

// Options configures transport behavior.
type Options struct {
	Timeout  time.Duration // Default command timeout
	Progress ProgressFunc  // Optional per-file progress sink
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Timeout: 5 * time.Minute,
	}
}

// SSHOptions configures SSH-specific transport behavior.
type SSHOptions struct {
	Options

	// Authentication
	User          string // SSH username
	KeyFile       string // Path to private key file
	KeyPassphrase string // Passphrase for encrypted key (optional)
	Password      string // Password and keyboard-interactive authentication
	Agent         bool   // Use SSH agent for authentication

	// Host verification
	KnownHostsFile     string // Path to known_hosts file
	InsecureIgnoreHost bool   // Skip host key verification (dangerous)

	// Connection
	Port           int           // SSH port (default 22)
	ConnectTimeout time.Duration // Connection timeout
	KeepAlive      time.Duration // Keep-alive interval
}

// DefaultSSHOptions returns sensible default SSH options.
// Network devices usually authenticate with a password, so the agent is off.
func DefaultSSHOptions() SSHOptions {
	return SSHOptions{
		Options:        DefaultOptions(),
		Port:           22,
		ConnectTimeout: 30 * time.Second,
		KeepAlive:      30 * time.Second,
	}
}

// WithEndpoint returns a copy of o with the endpoint's identity applied.
// Empty endpoint fields leave the existing values alone.
func (o SSHOptions) WithEndpoint(ep Endpoint) SSHOptions {
	if ep.Username != "" {
		o.User = ep.Username
	}
	if ep.Password != "" {
		o.Password = ep.Password
	}
	if ep.Port != 0 {
		o.Port = ep.Port
	}
	return o
}

// copyWithProgress copies src to dst, mirroring bytes to the progress sink.
func copyWithProgress(dst io.Writer, src io.Reader, name string, total int64, progress ProgressFunc) (int64, error) {
	if progress != nil {
		if w := progress(name, total); w != nil {
			src = io.TeeReader(src, w)
		}
	}
	return io.Copy(dst, src)
}
