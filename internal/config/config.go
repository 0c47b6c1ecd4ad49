// Package config loads application configuration from TOML files with
// environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources" env:"UNDERTOW_LIBRARY_SOURCES" envSeparator:":"`
	StateDir       string   `koanf:"state_dir"       env:"UNDERTOW_STATE_DIR"` // empty means XDG data dir
	LogLevel       string   `koanf:"log_level"       env:"UNDERTOW_LOG_LEVEL"`

	Playback PlaybackConfig `koanf:"playback"`
}

// PlaybackConfig holds engine tuning.
type PlaybackConfig struct {
	// Previous restarts the current item when playback is past this many
	// seconds; below it, Previous steps back through history.
	PreviousThresholdSeconds float64 `koanf:"previous_threshold_seconds" env:"UNDERTOW_PREVIOUS_THRESHOLD_SECONDS"`
	// Interval between position updates published to subscribers.
	TickIntervalMs int `koanf:"tick_interval_ms" env:"UNDERTOW_TICK_INTERVAL_MS"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		LogLevel: "info",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Environment variables override file values
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	if cfg.StateDir != "" {
		cfg.StateDir = expandPath(cfg.StateDir)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/undertow/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "undertow", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// PreviousThreshold returns the configured previous-restart threshold,
// or zero when unset so the engine default applies.
func (c *Config) PreviousThreshold() time.Duration {
	if c.Playback.PreviousThresholdSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Playback.PreviousThresholdSeconds * float64(time.Second))
}

// TickInterval returns the configured position tick interval, or zero
// when unset so the engine default applies.
func (c *Config) TickInterval() time.Duration {
	if c.Playback.TickIntervalMs <= 0 {
		return 0
	}
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}
