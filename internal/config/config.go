// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
package config

import (
	"fmt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// AllowReassignment lets one worker match several requests in a pass.
	// false switches the engine to one-worker-per-pass.
	AllowReassignment bool `koanf:"allow_reassignment"`

	// SnapshotPath optionally seeds workers and requests at startup.
	SnapshotPath string `koanf:"snapshot_path"`

	// DedupeSize bounds the request-id idempotency cache (<= 0: unbounded).
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRequiredCapabilities caps the capabilities a single request may demand.
	MaxRequiredCapabilities int `koanf:"max_required_capabilities"`

	// MaxListLimit caps GET /workers and GET /requests ?limit.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		AllowReassignment:       true,
		DedupeSize:              100_000,
		MaxRequiredCapabilities: 32,
		MaxListLimit:            1000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxRequiredCapabilities < 1:
		return fmt.Errorf("%w: max_required_capabilities must be positive", ErrInvalidConfig)
	case c.MaxListLimit < 1:
		return fmt.Errorf("%w: max_list_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
