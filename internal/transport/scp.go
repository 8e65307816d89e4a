package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// SCP implements FileTransfer with the scp sink/source protocol on exec
// sessions of an SSH connection. NX-OS accepts volume paths such as
// "bootflash:nxos.bin" as scp targets, which SFTP servers on some releases
// do not.
type SCP struct {
	ssh *SSH
}

// NewSCP wraps an SSH connection. Closing the SCP closes the connection.
func NewSCP(s *SSH) *SCP {
	return &SCP{ssh: s}
}

// Put sends localPath to remotePath with "scp -t".
func (c *SCP) Put(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", localPath)
	}

	src := io.Reader(f)
	name := filepath.Base(localPath)
	if c.ssh.opts.Progress != nil {
		if w := c.ssh.opts.Progress(name, info.Size()); w != nil {
			src = io.TeeReader(f, w)
		}
	}

	return c.run(ctx, "scp -t "+quoteArg(remotePath), func(r *bufio.Reader, w io.Writer) error {
		return scpSend(r, w, name, info.Mode().Perm(), info.Size(), src)
	})
}

// Get fetches remotePath into localPath with "scp -f".
func (c *SCP) Get(ctx context.Context, remotePath, localPath string) error {
	return c.run(ctx, "scp -f "+quoteArg(remotePath), func(r *bufio.Reader, w io.Writer) error {
		return scpReceive(r, w, func(mode os.FileMode, size int64, name string) (io.WriteCloser, error) {
			f, err := createLocal(localPath, mode)
			if err != nil {
				return nil, err
			}
			var dst io.Writer = f
			if c.ssh.opts.Progress != nil {
				if p := c.ssh.opts.Progress(path.Base(remotePath), size); p != nil {
					dst = io.MultiWriter(f, p)
				}
			}
			return &syncCloser{Writer: dst, file: f}, nil
		})
	})
}

// run starts command on a new session and drives the protocol function with
// the session's stdout and stdin. Cancelling ctx tears the session down.
func (c *SCP) run(ctx context.Context, command string, fn func(r *bufio.Reader, w io.Writer) error) error {
	session, err := c.ssh.newSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Start(command); err != nil {
		return fmt.Errorf("start %q: %w", command, err)
	}

	done := make(chan error, 1)
	go func() {
		err := fn(bufio.NewReader(stdout), stdin)
		stdin.Close()
		if err != nil {
			done <- err
			return
		}
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		session.Close()
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("scp: %w", err)
		}
		return nil
	}
}

// Close closes the underlying SSH connection.
func (c *SCP) Close() error {
	return c.ssh.Close()
}

// String returns a description of this transport.
func (c *SCP) String() string {
	return "scp+" + c.ssh.String()
}

// scpSend runs the source side of a single-file scp exchange.
func scpSend(r *bufio.Reader, w io.Writer, name string, mode os.FileMode, size int64, src io.Reader) error {
	if err := readAck(r); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "C%04o %d %s\n", mode.Perm(), size, name); err != nil {
		return err
	}
	if err := readAck(r); err != nil {
		return err
	}
	n, err := io.CopyN(w, src, size)
	if err != nil {
		return fmt.Errorf("send payload after %d of %d bytes: %w", n, size, err)
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	return readAck(r)
}

// scpReceive runs the sink side of a single-file scp exchange. open is called
// once the file header arrives.
func scpReceive(r *bufio.Reader, w io.Writer, open func(mode os.FileMode, size int64, name string) (io.WriteCloser, error)) error {
	ack := func() error {
		_, err := w.Write([]byte{0})
		return err
	}

	if err := ack(); err != nil {
		return err
	}

	for {
		kind, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimRight(line, "\n")

		switch kind {
		case 1, 2:
			return fmt.Errorf("remote: %s", line)
		case 'T':
			// Timestamps are not preserved.
			if err := ack(); err != nil {
				return err
			}
			continue
		case 'C':
		default:
			return fmt.Errorf("unexpected scp message %q", string(kind)+line)
		}

		mode, size, name, err := parseFileHeader(line)
		if err != nil {
			return err
		}

		dst, err := open(mode, size, name)
		if err != nil {
			return err
		}
		if err := ack(); err != nil {
			dst.Close()
			return err
		}
		if _, err := io.CopyN(dst, r, size); err != nil {
			dst.Close()
			return fmt.Errorf("receive payload: %w", err)
		}
		if err := dst.Close(); err != nil {
			return err
		}
		if err := readAck(r); err != nil {
			return err
		}
		return ack()
	}
}

// parseFileHeader parses the body of a "C" message: "0644 1234 name".
func parseFileHeader(line string) (os.FileMode, int64, string, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("malformed scp header %q", line)
	}
	mode, err := strconv.ParseUint(parts[0], 8, 32)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed scp mode %q", parts[0])
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || size < 0 {
		return 0, 0, "", fmt.Errorf("malformed scp size %q", parts[1])
	}
	return os.FileMode(mode).Perm(), size, parts[2], nil
}

// readAck consumes one scp status byte.
func readAck(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	switch b {
	case 0:
		return nil
	case 1, 2:
		msg, _ := r.ReadString('\n')
		return fmt.Errorf("remote: %s", strings.TrimSpace(msg))
	default:
		return fmt.Errorf("unexpected scp status byte 0x%02x", b)
	}
}

type syncCloser struct {
	io.Writer
	file *os.File
}

func (s *syncCloser) Close() error {
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

var _ FileTransfer = (*SCP)(nil)
