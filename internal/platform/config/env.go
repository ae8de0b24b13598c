// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage driver names accepted by Config.StorageDriver.
const (
	DriverBBolt  = "bbolt"
	DriverSQLite = "sqlite"
)

// Config carries every knob the client core reads from the environment.
type Config struct {
	// APIBaseURL is the root of the JSON backend, e.g. https://api.repasse.app.
	APIBaseURL string `env:"REPASSE_API_URL"`
	// StorageDriver selects the durable KV backend: bbolt (default) or sqlite.
	StorageDriver string `env:"REPASSE_STORAGE_DRIVER"`
	// StoragePath is the file path of the durable KV database.
	StoragePath string `env:"REPASSE_STORAGE_PATH"`
	// HTTPTimeout caps a single backend request.
	HTTPTimeout time.Duration `env:"REPASSE_HTTP_TIMEOUT"`
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `env:"REPASSE_LOG_LEVEL"`
	// OTelEndpoint enables OTLP trace export when non-empty.
	OTelEndpoint string `env:"REPASSE_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and applies defaults for unset values.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.StorageDriver) == "" {
		c.StorageDriver = DriverBBolt
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		c.StoragePath = "repasse.db"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverBBolt, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}
