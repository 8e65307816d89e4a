// Package app implements the nxsync commands on top of the filecopy,
// device and transport packages.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/tturner/nxsync/internal/config"
	"github.com/tturner/nxsync/internal/device"
	nxerrors "github.com/tturner/nxsync/internal/errors"
	"github.com/tturner/nxsync/internal/filecopy"
	"github.com/tturner/nxsync/internal/history"
	"github.com/tturner/nxsync/internal/logging"
	"github.com/tturner/nxsync/internal/transport"
	"github.com/tturner/nxsync/internal/ui"
)

// PasswordEnv is read when neither the inventory nor the target carries a
// password.
const PasswordEnv = "NXSYNC_PASSWORD"

// CommonOptions selects the device and the logging shared by every command
// that talks to a switch.
type CommonOptions struct {
	ConfigPath string
	Device     string // inventory name
	Target     string // ssh://user@host:port, used without an inventory entry
	FileSystem string
	Port       int
	Protocol   string
	API        string
	LocalRoot  string
	KeyFile    string
	Insecure   bool
	LogFile    string
	LogLevel   string // silent|error|info|verbose|debug, overrides Verbose and Debug
	Verbose    bool
	Debug      bool
}

func newLogger(opts CommonOptions) (*logging.Logger, error) {
	level := logging.LogLevelInfo
	if opts.Debug {
		level = logging.LogLevelDebug
	} else if opts.Verbose {
		level = logging.LogLevelVerbose
	}
	if opts.LogLevel != "" {
		parsed, err := logging.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	logger, err := logging.NewLogger(level, opts.LogFile)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// loadConfig loads the inventory. A missing default file yields the built-in
// defaults; a missing explicit file is an error.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := config.CreateDefault()
			cfg.Devices = nil
			return cfg, nil
		}
	}
	return config.Load(path)
}

// session is one resolved device plus the resources opened for it.
type session struct {
	name    string
	device  config.Device
	sshBase transport.SSHOptions
	history string
	log     *logging.Logger
	closers []io.Closer
}

func openSession(opts CommonOptions) (*session, error) {
	logger, err := newLogger(opts)
	if err != nil {
		return nil, err
	}

	s, err := resolveSession(opts, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}
	return s, nil
}

func resolveSession(opts CommonOptions, logger *logging.Logger) (*session, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &session{
		sshBase: transport.DefaultSSHOptions(),
		history: cfg.HistoryPath(),
		log:     logger,
	}

	switch {
	case opts.Device != "":
		dev, err := cfg.Device(opts.Device)
		if err != nil {
			return nil, err
		}
		s.device = dev
		s.name = dev.Name
	case opts.Target != "":
		ep, sshOpts, err := transport.ParseTarget(opts.Target, s.sshBase)
		if err != nil {
			return nil, err
		}
		dev := config.Device{
			Name:       ep.Host,
			Host:       ep.Host,
			Username:   ep.Username,
			Password:   ep.Password,
			Port:       ep.Port,
			KeyFile:    sshOpts.KeyFile,
			KnownHosts: sshOpts.KnownHostsFile,
		}
		if sshOpts.InsecureIgnoreHost {
			insecure := true
			dev.Insecure = &insecure
		}
		s.device = cfg.Apply(dev)
		s.sshBase = sshOpts
		s.name = ep.Host
	default:
		return nil, fmt.Errorf("either --device or --target is required")
	}

	applyOverrides(&s.device, opts)

	if _, err := transport.ParseProtocol(s.device.Protocol); err != nil {
		return nil, err
	}
	if s.device.API != "nxapi" && s.device.API != "ssh" {
		return nil, fmt.Errorf("unsupported command api: %s", s.device.API)
	}
	if s.device.Username == "" {
		return nil, fmt.Errorf("no username configured for %s", s.name)
	}

	if s.device.Password == "" {
		s.device.Password = os.Getenv(PasswordEnv)
	}
	if s.device.Password == "" && s.needsPassword() {
		pw, err := ui.PromptPassword(s.device.Username, s.device.Host)
		if err != nil {
			return nil, err
		}
		s.device.Password = pw
	}

	return s, nil
}

func applyOverrides(dev *config.Device, opts CommonOptions) {
	if opts.FileSystem != "" {
		dev.FileSystem = opts.FileSystem
	}
	if opts.Port != 0 {
		dev.Port = opts.Port
	}
	if opts.Protocol != "" {
		dev.Protocol = opts.Protocol
	}
	if opts.API != "" {
		dev.API = opts.API
	}
	if opts.LocalRoot != "" {
		dev.LocalRoot = opts.LocalRoot
	}
	if opts.KeyFile != "" {
		dev.KeyFile = opts.KeyFile
	}
	if opts.Insecure {
		insecure := true
		dev.Insecure = &insecure
	}
}

// needsPassword reports whether some channel can only log in with a
// password.
func (s *session) needsPassword() bool {
	if s.device.API == "nxapi" {
		return true
	}
	return s.device.KeyFile == "" && !s.sshBase.Agent
}

func (s *session) identity() device.Identity {
	return device.Identity{
		Host:     s.device.Host,
		Username: s.device.Username,
		Password: s.device.Password,
	}
}

func (s *session) sshOptions(progress transport.ProgressFunc) transport.SSHOptions {
	o := s.sshBase
	o.User = s.device.Username
	o.Password = s.device.Password
	o.Port = s.device.Port
	o.KeyFile = s.device.KeyFile
	o.KnownHostsFile = s.device.KnownHosts
	o.InsecureIgnoreHost = s.device.SkipVerify()
	if s.device.Timeout > 0 {
		o.ConnectTimeout = s.device.Timeout
	}
	o.Progress = progress
	return o
}

// commands opens the command channel selected by the device's api.
func (s *session) commands(ctx context.Context) (device.Channel, error) {
	if s.device.API == "ssh" {
		opts := s.sshOptions(nil)
		opts.Timeout = s.device.Timeout
		conn, err := transport.NewSSH(s.device.Host, opts)
		if err != nil {
			return nil, err
		}
		if err := conn.Connect(ctx); err != nil {
			return nil, nxerrors.WrapConnectError(err, s.device.Host, s.device.Port)
		}
		s.closers = append(s.closers, conn)
		return device.NewSSHChannel(conn, s.log), nil
	}

	return device.NewNXAPI(s.identity(), device.NXAPIOptions{
		Scheme:   s.device.APITransport,
		Port:     s.device.APIPort,
		Timeout:  s.device.Timeout,
		Insecure: s.device.SkipVerify(),
	}, s.log)
}

func (s *session) dialer(progress transport.ProgressFunc) transport.Dialer {
	return transport.Dialer{
		Protocol:  transport.Protocol(s.device.Protocol),
		SSH:       s.sshOptions(progress),
		LocalRoot: s.device.LocalRoot,
	}
}

// synchronizer builds the filecopy.Synchronizer for one local file.
func (s *session) synchronizer(ctx context.Context, localPath, dest string, progress transport.ProgressFunc) (*filecopy.Synchronizer, error) {
	commands, err := s.commands(ctx)
	if err != nil {
		return nil, err
	}
	return filecopy.New(filecopy.SyncJob{
		SourcePath:      localPath,
		DestinationName: dest,
		RemoteDirectory: s.device.FileSystem,
		Port:            s.device.Port,
	}, filecopy.Config{
		Commands: commands,
		Opener:   s.dialer(progress),
		Identity: s.identity(),
		Logger:   s.log,
	})
}

// record appends rec to the history ledger. Ledger failures are logged and
// do not fail the command.
func (s *session) record(rec *history.Record) {
	rec.Device = s.name
	rec.Protocol = s.device.Protocol

	store, err := history.Open(s.history)
	if err != nil {
		s.log.Error("history: %v", err)
		return
	}
	defer store.Close()
	if err := store.Save(rec); err != nil {
		s.log.Error("history: %v", err)
	}
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.log.Debug("close: %v", err)
		}
	}
	s.closers = nil
	s.log.Close()
}

// explain turns library errors into user facing ones.
func (s *session) explain(err error, localPath, remotePath string) error {
	var terr *filecopy.TransferError
	if errors.As(err, &terr) {
		switch terr.Stage {
		case filecopy.StageConnect:
			return nxerrors.WrapConnectError(terr.Unwrap(), s.device.Host, s.device.Port)
		case filecopy.StageData:
			return nxerrors.WrapTransferError(err, localPath, remotePath)
		}
		return err
	}

	var cerr *device.CommandError
	if errors.As(err, &cerr) {
		return nxerrors.WrapCommandError(err, cerr.Command)
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		port := s.device.APIPort
		if port == 0 {
			port = 443
			if s.device.APITransport == "http" {
				port = 80
			}
		}
		return nxerrors.WrapConnectError(err, s.device.Host, port)
	}
	return err
}
