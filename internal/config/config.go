// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file, dotenv and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataPath points at the happiness CSV loaded once at startup.
	DataPath string `koanf:"data_path"`

	// InvalidRows is the numeric coercion policy: coerce or skip.
	InvalidRows string `koanf:"invalid_rows"`

	// DefaultSpeedMS is the playback interval preselected in the speed dropdown.
	DefaultSpeedMS int `koanf:"default_speed_ms"`

	// SpeedChoicesMS lists the playback intervals offered by the speed dropdown.
	SpeedChoicesMS []int `koanf:"speed_choices_ms"`

	// SessionTTLSeconds evicts dashboard sessions idle for longer.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// MaxSessions caps concurrently open dashboard sessions.
	MaxSessions int `koanf:"max_sessions"`

	// FrameQueueSize bounds the outgoing frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// DeliveryWorkers sets the number of frame delivery workers.
	DeliveryWorkers int `koanf:"delivery_workers"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DataPath:          "data/world_happiness.csv",
		InvalidRows:       "coerce",
		DefaultSpeedMS:    1000,
		SpeedChoicesMS:    []int{500, 1000, 1500, 2000},
		SessionTTLSeconds: 1800,
		MaxSessions:       1000,
		FrameQueueSize:    4096,
		DeliveryWorkers:   runtime.NumCPU(),
	}
}

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// DefaultSpeed returns the preselected playback interval.
func (c *Config) DefaultSpeed() time.Duration {
	return time.Duration(c.DefaultSpeedMS) * time.Millisecond
}

// SpeedChoices returns the configured playback intervals.
func (c *Config) SpeedChoices() []time.Duration {
	out := make([]time.Duration, len(c.SpeedChoicesMS))
	for i, ms := range c.SpeedChoicesMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}
