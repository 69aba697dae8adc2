package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

// Environment names.
const (
	EnvPrefix = "SCIT_"
	EnvFile   = "SCIT_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if SCIT_CONFIG is set
//  3. env (prefix SCIT_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	cfg := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SCIT_GEOCODER__BASE_URL -> geocoder.base_url
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The file path itself is not a setting.
	k.Delete("config")

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.Geocoder.Provider {
	case "sim":
	case "nominatim":
		if c.Geocoder.BaseURL == "" {
			return invalid("geocoder.base_url is required for nominatim")
		}
	default:
		return invalid("geocoder.provider must be sim or nominatim, got %q", c.Geocoder.Provider)
	}
	if c.Geocoder.MaxResults < 1 {
		return invalid("geocoder.max_results must be at least 1")
	}
	if c.Geocoder.TimeoutMS <= 0 {
		return invalid("geocoder.timeout_ms must be positive")
	}
	if c.Geocoder.Locale != "" {
		if _, err := language.Parse(c.Geocoder.Locale); err != nil {
			return invalid("geocoder.locale %q: %v", c.Geocoder.Locale, err)
		}
	}

	switch c.Device.Permission {
	case "granted", "denied", "restricted", "unknown":
	default:
		return invalid("device.permission must be granted, denied, restricted or unknown, got %q", c.Device.Permission)
	}
	if c.Device.LatencyMinMS < 0 || c.Device.LatencyMaxMS < c.Device.LatencyMinMS {
		return invalid("device latency range [%d, %d] is invalid", c.Device.LatencyMinMS, c.Device.LatencyMaxMS)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
