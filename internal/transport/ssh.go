package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSH is a connection to a device over SSH. It runs CLI commands on exec
// sessions and implements FileTransfer over SFTP.
type SSH struct {
	opts   SSHOptions
	host   string
	client *ssh.Client
	sftp   *sftp.Client
	mu     sync.Mutex
}

// NewSSH creates a new SSH transport. No connection is made until Connect or
// the first operation.
func NewSSH(host string, opts SSHOptions) (*SSH, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}

	s := &SSH{
		opts: opts,
		host: host,
	}

	return s, nil
}

// Connect establishes the SSH connection if not already connected.
func (s *SSH) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	config, err := s.buildSSHConfig()
	if err != nil {
		return fmt.Errorf("build SSH config: %w", err)
	}

	// JoinHostPort handles IPv6 literals
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port()))

	timeout := s.opts.ConnectTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SSH handshake: %w", err)
	}

	s.client = ssh.NewClient(sshConn, chans, reqs)

	if s.opts.KeepAlive > 0 {
		go s.keepAlive(s.client)
	}

	return nil
}

func (s *SSH) port() int {
	if s.opts.Port == 0 {
		return 22
	}
	return s.opts.Port
}

// buildSSHConfig builds the SSH client configuration.
func (s *SSH) buildSSHConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if s.opts.Agent {
		if agentAuth := sshAgentAuth(); agentAuth != nil {
			authMethods = append(authMethods, agentAuth)
		}
	}

	if s.opts.KeyFile != "" {
		keyAuth, err := publicKeyAuth(s.opts.KeyFile, s.opts.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("key file auth: %w", err)
		}
		authMethods = append(authMethods, keyAuth)
	}

	// NX-OS accepts either password or keyboard-interactive depending on
	// the AAA configuration, so offer both.
	if s.opts.Password != "" {
		password := s.opts.Password
		authMethods = append(authMethods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication methods available")
	}

	hostKeyCallback, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	user := s.opts.User
	if user == "" {
		user = os.Getenv("USER")
		if user == "" {
			user = os.Getenv("USERNAME") // Windows
		}
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.opts.ConnectTimeout,
	}, nil
}

func (s *SSH) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.opts.InsecureIgnoreHost {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if s.opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(s.opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("known hosts: %w", err)
		}
		return cb, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		defaultKnownHosts := filepath.Join(home, ".ssh", "known_hosts")
		if _, err := os.Stat(defaultKnownHosts); err == nil {
			if cb, err := knownhosts.New(defaultKnownHosts); err == nil {
				return cb, nil
			}
		}
	}
	// Devices are frequently reached before anyone has recorded their keys.
	return ssh.InsecureIgnoreHostKey(), nil
}

// keepAlive sends periodic keep-alive requests until the client goes away.
func (s *SSH) keepAlive(client *ssh.Client) {
	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		current := s.client
		s.mu.Unlock()

		if current != client {
			return
		}

		if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
			return
		}
	}
}

// getSFTP returns the SFTP client, creating it if necessary.
func (s *SSH) getSFTP() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp != nil {
		return s.sftp, nil
	}

	if s.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	sftpClient, err := sftp.NewClient(s.client)
	if err != nil {
		return nil, fmt.Errorf("create SFTP client: %w", err)
	}

	s.sftp = sftpClient
	return s.sftp, nil
}

func (s *SSH) newSession(ctx context.Context) (*ssh.Session, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("not connected")
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	return session, nil
}

// Run executes a CLI command line on the device and returns the exit code,
// stdout and stderr. A non-zero exit code is not an error.
func (s *SSH) Run(ctx context.Context, command string) (int, string, string, error) {
	if strings.TrimSpace(command) == "" {
		return -1, "", "", fmt.Errorf("empty command")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	session, err := s.newSession(ctx)
	if err != nil {
		return -1, "", "", err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// The session may still be writing to the buffers.
		session.Signal(ssh.SIGKILL)
		return -1, "", "", ctx.Err()
	case err := <-done:
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				exitCode = exitErr.ExitStatus()
				err = nil
			}
		}
		return exitCode, stdout.String(), stderr.String(), err
	}
}

// Put copies a local file to the device over SFTP.
func (s *SSH) Put(ctx context.Context, localPath, remotePath string) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	sftpClient, err := s.getSFTP()
	if err != nil {
		return err
	}

	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer localFile.Close()

	localInfo, err := localFile.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}

	// Volume roots such as "bootflash:" always exist.
	if dir := path.Dir(remotePath); dir != "." && dir != "/" && !strings.HasSuffix(dir, ":") {
		_ = sftpClient.MkdirAll(dir)
	}

	remoteFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file: %w", err)
	}
	defer remoteFile.Close()

	if _, err := copyWithProgress(remoteFile, localFile, filepath.Base(localPath), localInfo.Size(), s.opts.Progress); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	return remoteFile.Close()
}

// Get copies a file from the device to the local host over SFTP.
func (s *SSH) Get(ctx context.Context, remotePath, localPath string) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	sftpClient, err := s.getSFTP()
	if err != nil {
		return err
	}

	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return fmt.Errorf("open remote file: %w", err)
	}
	defer remoteFile.Close()

	remoteInfo, err := remoteFile.Stat()
	if err != nil {
		return fmt.Errorf("stat remote file: %w", err)
	}

	localFile, err := createLocal(localPath, remoteInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer localFile.Close()

	if _, err := copyWithProgress(localFile, remoteFile, path.Base(remotePath), remoteInfo.Size(), s.opts.Progress); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	return localFile.Sync()
}

// Close closes the SFTP session and the SSH connection.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.sftp != nil {
		if err := s.sftp.Close(); err != nil {
			errs = append(errs, err)
		}
		s.sftp = nil
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
		s.client = nil
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// String returns a description of this transport.
func (s *SSH) String() string {
	user := s.opts.User
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf("ssh://%s@%s:%d", user, s.host, s.port())
}

// sshAgentAuth returns an SSH agent authentication method, or nil when no
// agent socket is available.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}

	agentClient := agent.NewClient(conn)
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// publicKeyAuth returns a public key authentication method.
func publicKeyAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// createLocal opens localPath for writing, creating parent directories and
// truncating existing content.
func createLocal(localPath string, perm os.FileMode) (*os.File, error) {
	if perm == 0 {
		perm = 0644
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return nil, fmt.Errorf("create local directory: %w", err)
	}
	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("create local file: %w", err)
	}
	return f, nil
}

// quoteArg single-quotes s when the device shell would split or expand it.
func quoteArg(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsQuoting returns true if the string needs shell quoting.
func needsQuoting(s string) bool {
	for _, c := range s {
		switch c {
		case ' ', '\t', '\n', '"', '\'', '\\', '$', '`', '!', '*', '?', '[', ']', '(', ')', '{', '}', '<', '>', '|', '&', ';':
			return true
		}
	}
	return false
}

// Ensure SSH implements FileTransfer
var _ FileTransfer = (*SSH)(nil)
