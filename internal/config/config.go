package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framewire/internal/admin"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/server"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("config: unsupported format")

// Config is the resolved runtime setup of one framewired node.
type Config struct {
	Listen   string
	Server   server.Config
	Admin    admin.Config
	Limits   frame.Limits
	LogLevel string
}

func DefaultConfig() Config {
	srv := server.DefaultConfig()
	return Config{
		Listen: ":7400",
		Server: srv,
		Admin: admin.Config{
			Node: srv.Node,
			Addr: "127.0.0.1:7401",
		},
		Limits:   frame.DefaultLimits(),
		LogLevel: "info",
	}
}

// Duration reads and writes as a Go duration string such as "1500ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// framewired config file key mapping. TOML and YAML share the keys.
type fileConfig struct {
	Node              string   `toml:"node" yaml:"node"`
	Listen            string   `toml:"listen" yaml:"listen"`
	AdminListen       string   `toml:"admin_listen" yaml:"admin_listen"`
	CorsOrigins       []string `toml:"cors_origins" yaml:"cors_origins"`
	AdminToken        string   `toml:"admin_token" yaml:"admin_token"`
	InactivityTimeout Duration `toml:"inactivity_timeout" yaml:"inactivity_timeout"`
	SweepInterval     Duration `toml:"sweep_interval" yaml:"sweep_interval"`
	TickInterval      Duration `toml:"tick_interval" yaml:"tick_interval"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout      Duration `toml:"write_timeout" yaml:"write_timeout"`
	ReadBufferSize    int      `toml:"read_buffer_size" yaml:"read_buffer_size"`
	MaxConns          int      `toml:"max_conns" yaml:"max_conns"`
	MaxPayloadBytes   uint32   `toml:"max_payload_bytes" yaml:"max_payload_bytes"`
	LogLevel          string   `toml:"log_level" yaml:"log_level"`
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		Node:              cfg.Server.Node,
		Listen:            cfg.Listen,
		AdminListen:       cfg.Admin.Addr,
		CorsOrigins:       cfg.Admin.CorsOrigins,
		AdminToken:        cfg.Admin.Token,
		InactivityTimeout: Duration(cfg.Server.InactivityTimeout),
		SweepInterval:     Duration(cfg.Server.SweepInterval),
		TickInterval:      Duration(cfg.Server.TickInterval),
		ShutdownTimeout:   Duration(cfg.Server.ShutdownTimeout),
		WriteTimeout:      Duration(cfg.Server.WriteTimeout),
		ReadBufferSize:    cfg.Server.ReadBufferSize,
		MaxConns:          cfg.Server.MaxConns,
		MaxPayloadBytes:   cfg.Limits.MaxPayloadBytes,
		LogLevel:          cfg.LogLevel,
	}
}

type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads path and overlays the keys it defines onto DefaultConfig.
// The format follows the file extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	var (
		raw     fileConfig
		defined func(key string) bool
	)
	switch f {
	case formatYAML:
		raw, defined, err = decodeYAML(path)
	default:
		raw, defined, err = decodeTOML(path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg := overlay(DefaultConfig(), raw, defined)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeTOML(path string) (fileConfig, func(string) bool, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fileConfig{}, nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return raw, func(key string) bool { return meta.IsDefined(key) }, nil
}

func decodeYAML(path string) (fileConfig, func(string) bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fileConfig{}, nil, err
	}
	keys := map[string]bool{}
	if len(doc.Content) == 0 {
		return fileConfig{}, func(string) bool { return false }, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fileConfig{}, nil, fmt.Errorf("top level must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys[root.Content[i].Value] = true
	}
	var raw fileConfig
	if err := root.Decode(&raw); err != nil {
		return fileConfig{}, nil, err
	}
	return raw, func(key string) bool { return keys[key] }, nil
}

func overlay(cfg Config, raw fileConfig, defined func(string) bool) Config {
	if defined("node") {
		cfg.Server.Node = strings.TrimSpace(raw.Node)
		cfg.Admin.Node = cfg.Server.Node
	}
	if defined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if defined("admin_listen") {
		cfg.Admin.Addr = strings.TrimSpace(raw.AdminListen)
	}
	if defined("cors_origins") && len(raw.CorsOrigins) > 0 {
		cfg.Admin.CorsOrigins = raw.CorsOrigins
	}
	if defined("admin_token") {
		cfg.Admin.Token = strings.TrimSpace(raw.AdminToken)
	}
	if defined("inactivity_timeout") {
		cfg.Server.InactivityTimeout = time.Duration(raw.InactivityTimeout)
	}
	if defined("sweep_interval") {
		cfg.Server.SweepInterval = time.Duration(raw.SweepInterval)
	}
	if defined("tick_interval") {
		cfg.Server.TickInterval = time.Duration(raw.TickInterval)
	}
	if defined("shutdown_timeout") {
		cfg.Server.ShutdownTimeout = time.Duration(raw.ShutdownTimeout)
	}
	if defined("write_timeout") {
		cfg.Server.WriteTimeout = time.Duration(raw.WriteTimeout)
	}
	if defined("read_buffer_size") {
		cfg.Server.ReadBufferSize = raw.ReadBufferSize
	}
	if defined("max_conns") {
		cfg.Server.MaxConns = raw.MaxConns
	}
	if defined("max_payload_bytes") {
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if defined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg
}

// Validate rejects settings the server cannot run with. An empty admin
// address disables the admin surface.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Node) == "" {
		return fmt.Errorf("load config: node is required")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("load config: listen is required")
	}
	if cfg.Admin.Addr != "" && cfg.Admin.Addr == cfg.Listen {
		return fmt.Errorf("load config: admin_listen %q collides with listen", cfg.Admin.Addr)
	}
	if cfg.Server.SweepInterval <= 0 {
		return fmt.Errorf("load config: sweep_interval must be positive")
	}
	if cfg.Server.TickInterval <= 0 {
		return fmt.Errorf("load config: tick_interval must be positive")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("load config: shutdown_timeout must be positive")
	}
	if cfg.Server.WriteTimeout < 0 {
		return fmt.Errorf("load config: write_timeout must not be negative")
	}
	if cfg.Server.ReadBufferSize <= 0 {
		return fmt.Errorf("load config: read_buffer_size must be positive")
	}
	if cfg.Server.MaxConns < 0 {
		return fmt.Errorf("load config: max_conns must not be negative")
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		return fmt.Errorf("load config: max_payload_bytes must be positive")
	}
	if !logging.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("load config: unknown log_level %q", cfg.LogLevel)
	}
	return nil
}
