package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nxsync.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
devices:
  - name: leaf1
    host: 10.0.0.11
    username: admin
  - name: spine1
    host: 10.0.0.1
    username: ops
    protocol: sftp
    api: ssh
    port: 2222
    timeout: 5s
    insecure: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Defaults.FileSystem != "bootflash:" || cfg.Defaults.Protocol != "scp" || cfg.Defaults.Timeout != 30*time.Second {
		t.Errorf("defaults not applied: %+v", cfg.Defaults)
	}

	leaf, err := cfg.Device("leaf1")
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if leaf.Port != 22 || leaf.API != "nxapi" || leaf.APITransport != "https" || leaf.SkipVerify() {
		t.Errorf("leaf1 = %+v", leaf)
	}

	spine, err := cfg.Device("spine1")
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if spine.Port != 2222 || spine.Protocol != "sftp" || spine.API != "ssh" || spine.Timeout != 5*time.Second || !spine.SkipVerify() {
		t.Errorf("spine1 = %+v", spine)
	}
}

func TestDeviceUnknown(t *testing.T) {
	cfg := CreateDefault()
	_, err := cfg.Device("nope")
	if err == nil || !strings.Contains(err.Error(), "leaf1") {
		t.Fatalf("expected error listing configured devices, got %v", err)
	}

	empty := &Config{}
	if _, err := empty.Device("leaf1"); err == nil {
		t.Fatal("expected error with no devices")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := CreateDefault()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default config", func(*Config) {}, ""},
		{"missing file system", func(c *Config) { c.Defaults.FileSystem = " " }, "file_system"},
		{"bad protocol", func(c *Config) { c.Defaults.Protocol = "ftp" }, "defaults.protocol"},
		{"bad api", func(c *Config) { c.Defaults.API = "netconf" }, "defaults.api"},
		{"bad port", func(c *Config) { c.Defaults.Port = 70000 }, "defaults.port"},
		{"missing name", func(c *Config) { c.Devices[0].Name = "" }, "name is required"},
		{"missing host", func(c *Config) { c.Devices[0].Host = "" }, "host is required"},
		{"bad device api port", func(c *Config) { c.Devices[0].APIPort = -1 }, "api_port"},
		{"bad device transport", func(c *Config) { c.Devices[0].APITransport = "telnet" }, "api_transport"},
		{"duplicate name", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "devices: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := Load(writeConfig(t, "devices:\n  - name: x\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Devices) != 1 || cfg.Defaults.Timeout != DefaultTimeout {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if err := WriteDefault(path); err == nil {
		t.Error("expected error when file exists")
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := &Config{HistoryFile: "/var/lib/nxsync/h.db"}
	if got := cfg.HistoryPath(); got != "/var/lib/nxsync/h.db" {
		t.Errorf("HistoryPath = %q", got)
	}
	cfg.HistoryFile = ""
	if got := cfg.HistoryPath(); !strings.HasSuffix(got, filepath.Join(".nxsync", "history.db")) {
		t.Errorf("HistoryPath = %q", got)
	}
}
