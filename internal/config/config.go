// Package config loads and saves toylang.toml, the interpreter's settings
// file. A missing file means defaults; command-line flags override
// whatever the file sets.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"toylang/internal/runtime"
	"toylang/internal/symtab"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "toylang.toml"

// Config is the toylang.toml file structure.
type Config struct {
	Symbols SymbolsConfig `toml:"symbols"`
	Runtime RuntimeConfig `toml:"runtime"`
	Console ConsoleConfig `toml:"console"`
	Log     LogConfig     `toml:"log"`
}

// SymbolsConfig sizes the symbol tables.
type SymbolsConfig struct {
	Capacity int `toml:"capacity"` // slots per table, global and per call
}

// RuntimeConfig selects the evaluation policy.
type RuntimeConfig struct {
	Strict       bool `toml:"strict"`
	MaxCallDepth int  `toml:"max_call_depth"`
	ReadRetries  int  `toml:"read_retries"`
}

// ConsoleConfig controls read prompts and printed number formatting.
type ConsoleConfig struct {
	Prompt string `toml:"prompt"` // "%s" is replaced by the variable name
	Locale string `toml:"locale"` // BCP 47 tag; empty prints plain numbers
}

// LogConfig controls the CLI's slog handler.
type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Symbols: SymbolsConfig{Capacity: symtab.DefaultCapacity},
		Runtime: RuntimeConfig{
			MaxCallDepth: runtime.DefaultMaxCallDepth,
			ReadRetries:  runtime.DefaultReadRetries,
		},
		Console: ConsoleConfig{Prompt: "%s? "},
		Log:     LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads toylang.toml from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			d := Default()
			return &d, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file. Keys the file leaves out keep their
// default values; unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to toylang.toml in dir.
func Save(dir string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Symbols.Capacity < 1 {
		return fmt.Errorf("symbols.capacity must be positive, got %d", c.Symbols.Capacity)
	}
	if c.Runtime.MaxCallDepth < 1 {
		return fmt.Errorf("runtime.max_call_depth must be positive, got %d", c.Runtime.MaxCallDepth)
	}
	if c.Runtime.ReadRetries < 0 {
		return fmt.Errorf("runtime.read_retries must not be negative, got %d", c.Runtime.ReadRetries)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
