// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config contains process configuration for the service, the editor and
// the CLI. Each command reads the keys it needs.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the lineup repository: memory or redis.
	StoreBackend string `koanf:"store_backend"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisPrefix  string `koanf:"redis_prefix"`
	// SeedFile is a YAML or JSON file of lineups loaded at startup.
	SeedFile string `koanf:"seed_file"`

	// MarkerSize is the marker size, in pixels, of rendered pitch images.
	MarkerSize        float64 `koanf:"marker_size"`
	ClampOnRender     bool    `koanf:"clamp_on_render"`
	PitchPNGMaxWidth  int     `koanf:"pitch_png_max_width"`
	PitchPNGMaxHeight int     `koanf:"pitch_png_max_height"`

	// RemoteURL is the lineup service the editor and CLI talk to.
	RemoteURL             string `koanf:"remote_url"`
	RemoteTimeoutMS       int    `koanf:"remote_timeout_ms"`
	BreakerMaxFailures    int    `koanf:"breaker_max_failures"`
	BreakerOpenTimeoutMS  int    `koanf:"breaker_open_timeout_ms"`
	SaveQueueSize         int    `koanf:"save_queue_size"`
	SaveWorkerCount       int    `koanf:"save_worker_count"`
	SaveTimeoutMS         int    `koanf:"save_timeout_ms"`
	EditorMarkerSize      int    `koanf:"editor_marker_size"`
	EditorLogFile         string `koanf:"editor_log_file"`
	TeamID                string `koanf:"team_id"`
	ShutdownGracePeriodMS int    `koanf:"shutdown_grace_period_ms"`
}

// New creates a Config with defaults. The context is reserved for future
// use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		StoreBackend:          BackendMemory,
		RedisPrefix:           "formation:",
		MarkerSize:            40,
		ClampOnRender:         true,
		PitchPNGMaxWidth:      1200,
		PitchPNGMaxHeight:     1800,
		RemoteURL:             "http://localhost:9080",
		RemoteTimeoutMS:       5000,
		BreakerMaxFailures:    5,
		BreakerOpenTimeoutMS:  15000,
		SaveQueueSize:         256,
		SaveWorkerCount:       min(4, runtime.NumCPU()),
		SaveTimeoutMS:         5000,
		EditorMarkerSize:      3,
		EditorLogFile:         "formation-editor.log",
		ShutdownGracePeriodMS: 10000,
	}
}

// Validate checks the keys every command depends on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MarkerSize < 0:
		return fmt.Errorf("%w: marker_size must not be negative", ErrInvalidConfig)
	case c.EditorMarkerSize < 1:
		return fmt.Errorf("%w: editor_marker_size must be at least 1", ErrInvalidConfig)
	case c.StoreBackend != BackendMemory && c.StoreBackend != BackendRedis:
		return fmt.Errorf("%w: store_backend %q is not one of memory, redis", ErrInvalidConfig, c.StoreBackend)
	case c.StoreBackend == BackendRedis && strings.TrimSpace(c.RedisAddr) == "":
		return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
	case c.PitchPNGMaxWidth < 1 || c.PitchPNGMaxHeight < 1:
		return fmt.Errorf("%w: pitch_png_max_width and pitch_png_max_height must be positive", ErrInvalidConfig)
	case c.SaveQueueSize < 1 || c.SaveWorkerCount < 1:
		return fmt.Errorf("%w: save_queue_size and save_worker_count must be positive", ErrInvalidConfig)
	case c.BreakerMaxFailures < 1:
		return fmt.Errorf("%w: breaker_max_failures must be positive", ErrInvalidConfig)
	}
	if u, err := url.Parse(c.RemoteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: remote_url %q is not an absolute URL", ErrInvalidConfig, c.RemoteURL)
	}
	return nil
}

// RemoteTimeout is RemoteTimeoutMS as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// BreakerOpenTimeout is BreakerOpenTimeoutMS as a duration.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutMS) * time.Millisecond
}

// SaveTimeout is SaveTimeoutMS as a duration.
func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.SaveTimeoutMS) * time.Millisecond
}

// ShutdownGracePeriod is ShutdownGracePeriodMS as a duration.
func (c *Config) ShutdownGracePeriod() time.Duration {
	return time.Duration(c.ShutdownGracePeriodMS) * time.Millisecond
}
