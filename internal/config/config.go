package config

// Device inventory for nxsync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/nxsync/internal/errors"
)

const (
	DefaultFileSystem   = "bootflash:"
	DefaultPort         = 22
	DefaultProtocol     = "scp"
	DefaultAPI          = "nxapi"
	DefaultAPITransport = "https"
	DefaultTimeout      = 30 * time.Second
)

var (
	validProtocols     = []string{"scp", "sftp", "local"}
	validAPIs          = []string{"nxapi", "ssh"}
	validAPITransports = []string{"http", "https"}
)

// Defaults holds settings shared by every device unless overridden.
type Defaults struct {
	FileSystem   string        `yaml:"file_system"`
	Port         int           `yaml:"port"`                   // bulk transfer port
	Protocol     string        `yaml:"protocol"`               // "scp", "sftp", "local"
	API          string        `yaml:"api"`                    // "nxapi", "ssh"
	APITransport string        `yaml:"api_transport"`          // "http", "https"
	Timeout      time.Duration `yaml:"timeout"`                // per command and connect
	Insecure     bool          `yaml:"insecure"`               // skip TLS and host key checks
	KnownHosts   string        `yaml:"known_hosts,omitempty"`  // default ~/.ssh/known_hosts
	KeyFile      string        `yaml:"key_file,omitempty"`     // private key for ssh
	LocalRoot    string        `yaml:"local_root,omitempty"`   // backing directory for protocol local
}

// Device is one managed switch. Zero fields take the value from Defaults.
type Device struct {
	Name         string        `yaml:"name"`
	Host         string        `yaml:"host"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password,omitempty"` // empty: prompt
	APIPort      int           `yaml:"api_port,omitempty"` // 0: 80 or 443
	FileSystem   string        `yaml:"file_system,omitempty"`
	Port         int           `yaml:"port,omitempty"`
	Protocol     string        `yaml:"protocol,omitempty"`
	API          string        `yaml:"api,omitempty"`
	APITransport string        `yaml:"api_transport,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Insecure     *bool         `yaml:"insecure,omitempty"`
	KnownHosts   string        `yaml:"known_hosts,omitempty"`
	KeyFile      string        `yaml:"key_file,omitempty"`
	LocalRoot    string        `yaml:"local_root,omitempty"`
}

// Config is the nxsync configuration file.
type Config struct {
	Defaults    Defaults `yaml:"defaults"`
	HistoryFile string   `yaml:"history_file"` // default ~/.nxsync/history.db
	Devices     []Device `yaml:"devices"`
}

// DefaultPath returns ~/.nxsync/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".nxsync", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// CreateDefault creates a default configuration with one example device.
func CreateDefault() *Config {
	return &Config{
		Defaults: Defaults{
			FileSystem:   DefaultFileSystem,
			Port:         DefaultPort,
			Protocol:     DefaultProtocol,
			API:          DefaultAPI,
			APITransport: DefaultAPITransport,
			Timeout:      DefaultTimeout,
		},
		Devices: []Device{
			{
				Name:     "leaf1",
				Host:     "192.0.2.11",
				Username: "admin",
			},
		},
	}
}

// WriteDefault writes a default configuration to path, creating parent
// directories. An existing file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := yaml.Marshal(CreateDefault())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("parse YAML: %w", err), path)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("validate config: %w", err), path)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Defaults
	if d.FileSystem == "" {
		d.FileSystem = DefaultFileSystem
	}
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.Protocol == "" {
		d.Protocol = DefaultProtocol
	}
	if d.API == "" {
		d.API = DefaultAPI
	}
	if d.APITransport == "" {
		d.APITransport = DefaultAPITransport
	}
	if d.Timeout == 0 {
		d.Timeout = DefaultTimeout
	}
}

// Validate checks a configuration. Defaults must already be applied.
func Validate(cfg *Config) error {
	d := cfg.Defaults
	if strings.TrimSpace(d.FileSystem) == "" {
		return fmt.Errorf("defaults.file_system is required")
	}
	if err := validatePort("defaults.port", d.Port); err != nil {
		return err
	}
	if err := validateChoice("defaults.protocol", d.Protocol, validProtocols); err != nil {
		return err
	}
	if err := validateChoice("defaults.api", d.API, validAPIs); err != nil {
		return err
	}
	if err := validateChoice("defaults.api_transport", d.APITransport, validAPITransports); err != nil {
		return err
	}
	if d.Timeout < 0 {
		return fmt.Errorf("defaults.timeout must be positive")
	}

	seen := make(map[string]bool, len(cfg.Devices))
	for i, dev := range cfg.Devices {
		if err := validateDevice(dev, i); err != nil {
			return err
		}
		if seen[dev.Name] {
			return fmt.Errorf("devices[%d]: duplicate device name %q", i, dev.Name)
		}
		seen[dev.Name] = true
	}
	return nil
}

func validateDevice(dev Device, index int) error {
	section := fmt.Sprintf("devices[%d]", index)
	if strings.TrimSpace(dev.Name) == "" {
		return fmt.Errorf("%s: name is required", section)
	}
	if strings.TrimSpace(dev.Host) == "" {
		return fmt.Errorf("%s (%s): host is required", section, dev.Name)
	}
	if err := validatePort(section+".port", dev.Port); err != nil {
		return err
	}
	if err := validatePort(section+".api_port", dev.APIPort); err != nil {
		return err
	}
	if dev.Protocol != "" {
		if err := validateChoice(section+".protocol", dev.Protocol, validProtocols); err != nil {
			return err
		}
	}
	if dev.API != "" {
		if err := validateChoice(section+".api", dev.API, validAPIs); err != nil {
			return err
		}
	}
	if dev.APITransport != "" {
		if err := validateChoice(section+".api_transport", dev.APITransport, validAPITransports); err != nil {
			return err
		}
	}
	if dev.Timeout < 0 {
		return fmt.Errorf("%s.timeout must be positive", section)
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be between 0 and 65535, got %d", field, port)
	}
	return nil
}

func validateChoice(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// Device returns the named device with every empty field filled from
// Defaults.
func (c *Config) Device(name string) (Device, error) {
	for _, dev := range c.Devices {
		if dev.Name == name {
			return c.resolve(dev), nil
		}
	}
	names := make([]string, 0, len(c.Devices))
	for _, dev := range c.Devices {
		names = append(names, dev.Name)
	}
	if len(names) == 0 {
		return Device{}, fmt.Errorf("unknown device %q: no devices configured", name)
	}
	return Device{}, fmt.Errorf("unknown device %q (configured: %s)", name, strings.Join(names, ", "))
}

// Apply fills the empty fields of dev from Defaults.
func (c *Config) Apply(dev Device) Device {
	return c.resolve(dev)
}

func (c *Config) resolve(dev Device) Device {
	d := c.Defaults
	if dev.FileSystem == "" {
		dev.FileSystem = d.FileSystem
	}
	if dev.Port == 0 {
		dev.Port = d.Port
	}
	if dev.Protocol == "" {
		dev.Protocol = d.Protocol
	}
	if dev.API == "" {
		dev.API = d.API
	}
	if dev.APITransport == "" {
		dev.APITransport = d.APITransport
	}
	if dev.Timeout == 0 {
		dev.Timeout = d.Timeout
	}
	if dev.Insecure == nil {
		insecure := d.Insecure
		dev.Insecure = &insecure
	}
	if dev.KnownHosts == "" {
		dev.KnownHosts = d.KnownHosts
	}
	if dev.KeyFile == "" {
		dev.KeyFile = d.KeyFile
	}
	if dev.LocalRoot == "" {
		dev.LocalRoot = d.LocalRoot
	}
	return dev
}

// SkipVerify reports whether TLS and host key checks are disabled.
func (d Device) SkipVerify() bool {
	return d.Insecure != nil && *d.Insecure
}

// HistoryPath returns the history ledger path, expanding a leading "~/".
func (c *Config) HistoryPath() string {
	if c.HistoryFile == "" {
		return filepath.Join(homeDir(), ".nxsync", "history.db")
	}
	if strings.HasPrefix(c.HistoryFile, "~/") {
		return filepath.Join(homeDir(), c.HistoryFile[2:])
	}
	return c.HistoryFile
}
