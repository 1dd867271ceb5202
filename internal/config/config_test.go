package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTOMLDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, "framewired.toml", `
node = "edge-a"
listen = "127.0.0.1:9400"
inactivity_timeout = "30s"
read_buffer_size = 512
max_conns = 256
cors_origins = ["http://ops.local"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := DefaultConfig()
	if cfg.Server.Node != "edge-a" || cfg.Admin.Node != "edge-a" {
		t.Fatalf("unexpected node: server=%q admin=%q", cfg.Server.Node, cfg.Admin.Node)
	}
	if cfg.Listen != "127.0.0.1:9400" {
		t.Fatalf("unexpected listen: %q", cfg.Listen)
	}
	if cfg.Server.InactivityTimeout != 30*time.Second {
		t.Fatalf("unexpected inactivity timeout: %v", cfg.Server.InactivityTimeout)
	}
	if cfg.Server.ReadBufferSize != 512 {
		t.Fatalf("unexpected read buffer size: %d", cfg.Server.ReadBufferSize)
	}
	if cfg.Server.MaxConns != 256 {
		t.Fatalf("unexpected max conns: %d", cfg.Server.MaxConns)
	}
	if len(cfg.Admin.CorsOrigins) != 1 || cfg.Admin.CorsOrigins[0] != "http://ops.local" {
		t.Fatalf("unexpected cors origins: %v", cfg.Admin.CorsOrigins)
	}
	if cfg.Server.SweepInterval != def.Server.SweepInterval {
		t.Fatalf("unset sweep interval should keep default, got %v", cfg.Server.SweepInterval)
	}
	if cfg.Admin.Addr != def.Admin.Addr {
		t.Fatalf("unset admin addr should keep default, got %q", cfg.Admin.Addr)
	}
	if cfg.Limits != def.Limits {
		t.Fatalf("unset limits should keep default, got %+v", cfg.Limits)
	}
}

func TestLoadTOMLZeroInactivityDisablesTimeout(t *testing.T) {
	path := writeConfig(t, "framewired.toml", `inactivity_timeout = "0s"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.InactivityTimeout != 0 {
		t.Fatalf("expected timeout disabled, got %v", cfg.Server.InactivityTimeout)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := writeConfig(t, "framewired.yaml", `
node: edge-y
admin_listen: ""
admin_token: " rotate-me "
sweep_interval: 250ms
max_payload_bytes: 1024
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Node != "edge-y" {
		t.Fatalf("unexpected node: %q", cfg.Server.Node)
	}
	if cfg.Admin.Addr != "" {
		t.Fatalf("expected admin disabled, got %q", cfg.Admin.Addr)
	}
	if cfg.Admin.Token != "rotate-me" {
		t.Fatalf("unexpected admin token: %q", cfg.Admin.Token)
	}
	if cfg.Server.SweepInterval != 250*time.Millisecond {
		t.Fatalf("unexpected sweep interval: %v", cfg.Server.SweepInterval)
	}
	if cfg.Limits.MaxPayloadBytes != 1024 {
		t.Fatalf("unexpected payload limit: %d", cfg.Limits.MaxPayloadBytes)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Fatalf("unset listen should keep default, got %q", cfg.Listen)
	}
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "empty.yml", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Fatalf("unexpected listen: %q", cfg.Listen)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"empty listen":    `listen = ""`,
		"zero sweep":      `sweep_interval = "0s"`,
		"zero buffer":     `read_buffer_size = 0`,
		"zero payload":    `max_payload_bytes = 0`,
		"negative conns":  `max_conns = -1`,
		"admin collision": "listen = \":9000\"\nadmin_listen = \":9000\"",
		"bad log level":   `log_level = "loud"`,
		"bad duration":    `tick_interval = "soon"`,
		"unknown key":     `bogus = 1`,
	}
	for name, content := range cases {
		path := writeConfig(t, "framewired.toml", content)
		_, err := Load(path)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.HasPrefix(err.Error(), "load config:") {
			t.Fatalf("%s: unexpected error prefix: %v", name, err)
		}
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "framewired.json", "{}")
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestTemplatesLoadBackAsDefaults(t *testing.T) {
	def := DefaultConfig()
	for _, name := range []string{"framewired.toml", "framewired.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := WriteTemplate(path, false); err != nil {
			t.Fatalf("%s: write template: %v", name, err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load template: %v", name, err)
		}
		if cfg.Listen != def.Listen || cfg.Admin.Addr != def.Admin.Addr {
			t.Fatalf("%s: unexpected addrs: %q %q", name, cfg.Listen, cfg.Admin.Addr)
		}
		if cfg.Server != def.Server {
			t.Fatalf("%s: server config drifted: %+v", name, cfg.Server)
		}
		if cfg.Limits != def.Limits || cfg.LogLevel != def.LogLevel {
			t.Fatalf("%s: limits or level drifted: %+v %q", name, cfg.Limits, cfg.LogLevel)
		}
		if err := WriteTemplate(path, false); err == nil {
			t.Fatalf("%s: expected refusal to overwrite", name)
		}
		if err := WriteTemplate(path, true); err != nil {
			t.Fatalf("%s: overwrite template: %v", name, err)
		}
	}
}
