package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings read from the environment.
// The monitor document (cameras, zones, gpio, detector) lives in the
// JSON file at ConfigPath and is managed by Store.
type Config struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	ConfigPath     string        `env:"CONFIG_PATH" envDefault:"config/config.json"`
	DatabasePath   string        `env:"DB_PATH" envDefault:"data/events.db"`
	LogDirectory   string        `env:"LOG_DIR" envDefault:"logs"`
	CycleInterval  time.Duration `env:"CYCLE_INTERVAL" envDefault:"50ms"`
	StatusInterval time.Duration `env:"STATUS_INTERVAL" envDefault:"1s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
