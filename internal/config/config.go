// Package config loads the broker's ambient, environment-sourced
// settings. The required CLI surface (ttl-spec, subscriber port,
// publisher ports) is parsed positionally from os.Args by cmd/brokerd
// and is not part of this package — only the settings spec.md leaves
// unspecified live here: logging, metrics, resource monitoring, the
// ingress rate limit, the subscriber cap, and the optional NATS
// bridge.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds ambient broker settings sourced from the environment.
// Tags: env is the variable name, envDefault its fallback value.
type Config struct {
	LogLevel  string `env:"BROKER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BROKER_LOG_FORMAT" envDefault:"json"`

	MetricsAddr string `env:"BROKER_METRICS_ADDR" envDefault:":9090"`

	MemoryWarnBytes uint64        `env:"BROKER_MEMORY_WARN_BYTES" envDefault:"536870912"`
	MonitorInterval time.Duration `env:"BROKER_MONITOR_INTERVAL" envDefault:"15s"`

	// IngressRatePerSec bounds frames parsed per second per publisher
	// connection; IngressBurst is the token bucket's burst size.
	IngressRatePerSec float64 `env:"BROKER_INGRESS_RATE" envDefault:"500"`
	IngressBurst      int     `env:"BROKER_INGRESS_BURST" envDefault:"100"`

	// MaxSubscribers bounds the number of delivery workers the
	// registrar will ever spawn concurrently — the source spawns one
	// per registration with no limit; see REDESIGN FLAGS.
	MaxSubscribers int `env:"BROKER_MAX_SUBSCRIBERS" envDefault:"10000"`

	// NATSURL, when non-empty, enables the best-effort event bridge
	// that republishes every appended message to NATS for external
	// analytics consumers. Empty disables the bridge entirely.
	NATSURL string `env:"BROKER_NATS_URL" envDefault:""`
}

// Load reads .env (if present, non-fatal) then environment variables,
// and validates the result.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using environment variables only")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks range and enum constraints.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("BROKER_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("BROKER_LOG_FORMAT must be one of json, pretty (got %q)", c.LogFormat)
	}
	if c.IngressRatePerSec <= 0 {
		return fmt.Errorf("BROKER_INGRESS_RATE must be > 0, got %f", c.IngressRatePerSec)
	}
	if c.IngressBurst < 1 {
		return fmt.Errorf("BROKER_INGRESS_BURST must be > 0, got %d", c.IngressBurst)
	}
	if c.MaxSubscribers < 1 {
		return fmt.Errorf("BROKER_MAX_SUBSCRIBERS must be > 0, got %d", c.MaxSubscribers)
	}
	return nil
}

// Log emits the loaded configuration as a structured startup entry.
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Str("metrics_addr", c.MetricsAddr).
		Uint64("memory_warn_bytes", c.MemoryWarnBytes).
		Dur("monitor_interval", c.MonitorInterval).
		Float64("ingress_rate_per_sec", c.IngressRatePerSec).
		Int("ingress_burst", c.IngressBurst).
		Int("max_subscribers", c.MaxSubscribers).
		Bool("nats_bridge_enabled", c.NATSURL != "").
		Msg("configuration loaded")
}
