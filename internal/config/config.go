// Package config loads reviewlink settings from a YAML file overlaid with
// REVIEWLINK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REVIEWLINK_"

type Config struct {
	Addr      string        `mapstructure:"addr"`
	BaseURL   string        `mapstructure:"base_url"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`

	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`

	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Tmux      TmuxConfig      `mapstructure:"tmux"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
}

// StoreConfig selects where the active transport config lives.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the JSON file (file) or database file (sqlite).
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	// Relay fans live events out to every replica through pub/sub.
	Relay bool `mapstructure:"relay"`
}

type TmuxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Binary  string `mapstructure:"binary"`
	Socket  string `mapstructure:"socket"`
}

type MCPConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ClipboardConfig struct {
	System   bool `mapstructure:"system"`
	Terminal bool `mapstructure:"terminal"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Addr:             "127.0.0.1:7421",
		LogLevel:         "info",
		LogFormat:        "text",
		Heartbeat:        30 * time.Second,
		DiscoveryTimeout: 5 * time.Second,
		SendTimeout:      10 * time.Second,
		Store:            StoreConfig{Backend: BackendFile},
		Redis:            RedisConfig{Addr: "localhost:6379", Prefix: "reviewlink:"},
		Tmux:             TmuxConfig{Enabled: true, Binary: "tmux"},
		MCP:              MCPConfig{Enabled: true},
		Clipboard:        ClipboardConfig{System: true, Terminal: true},
	}
}

// envKeys maps environment variables to dotted config keys.
var envKeys = map[string]string{
	"ADDR":               "addr",
	"BASE_URL":           "base_url",
	"LOG_LEVEL":          "log_level",
	"LOG_FORMAT":         "log_format",
	"HEARTBEAT":          "heartbeat",
	"DISCOVERY_TIMEOUT":  "discovery_timeout",
	"SEND_TIMEOUT":       "send_timeout",
	"STORE_BACKEND":      "store.backend",
	"STORE_PATH":         "store.path",
	"REDIS_ADDR":         "redis.addr",
	"REDIS_PASSWORD":     "redis.password",
	"REDIS_DB":           "redis.db",
	"REDIS_PREFIX":       "redis.prefix",
	"REDIS_RELAY":        "redis.relay",
	"TMUX_ENABLED":       "tmux.enabled",
	"TMUX_BINARY":        "tmux.binary",
	"TMUX_SOCKET":        "tmux.socket",
	"MCP_ENABLED":        "mcp.enabled",
	"CLIPBOARD_SYSTEM":   "clipboard.system",
	"CLIPBOARD_TERMINAL": "clipboard.terminal",
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for suffix, key := range envKeys {
		if v, ok := os.LookupEnv(EnvPrefix + suffix); ok {
			setPath(raw, key, v)
		}
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the decoder cannot.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendSQLite && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required for the sqlite backend"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	for name, d := range map[string]time.Duration{
		"heartbeat":         c.Heartbeat,
		"discovery_timeout": c.DiscoveryTimeout,
		"send_timeout":      c.SendTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setPath stores v under a dotted key, creating nested maps as needed.
func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
