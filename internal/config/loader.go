package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names understood by Load.
const (
	envPrefix = "HAPPYMAP_"
	envConfig = "HAPPYMAP_CONFIG"
	envDotenv = "HAPPYMAP_DOTENV"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HAPPYMAP_CONFIG is set
//  3. env (prefix HAPPYMAP_), after HAPPYMAP_DOTENV is applied to the process env
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Dotenv values never override variables already present in the env.
	if path := os.Getenv(envDotenv); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
		}
	}

	// HAPPYMAP_DATA_PATH -> data_path; comma lists become slices.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" || key == "dotenv" {
			return "", nil
		}
		if strings.Contains(value, ",") {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataPath) == "":
		return fmt.Errorf("%w: data_path must not be empty", ErrInvalidConfig)
	case c.InvalidRows != "coerce" && c.InvalidRows != "skip":
		return fmt.Errorf("%w: invalid_rows must be coerce or skip, got %q", ErrInvalidConfig, c.InvalidRows)
	case len(c.SpeedChoicesMS) == 0:
		return fmt.Errorf("%w: speed_choices_ms must not be empty", ErrInvalidConfig)
	case !slices.Contains(c.SpeedChoicesMS, c.DefaultSpeedMS):
		return fmt.Errorf("%w: default_speed_ms %d is not one of speed_choices_ms", ErrInvalidConfig, c.DefaultSpeedMS)
	case c.SessionTTLSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_seconds must be positive", ErrInvalidConfig)
	}
	for _, ms := range c.SpeedChoicesMS {
		if ms <= 0 {
			return fmt.Errorf("%w: speed choice %d must be positive", ErrInvalidConfig, ms)
		}
	}
	return nil
}
