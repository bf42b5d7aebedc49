// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings for the mock backend.
type Config struct {
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"PORT" envDefault:"8080"`
	DataDir        string        `env:"DATA_DIR" envDefault:"./data"`
	Backend        string        `env:"MEDIUM_BACKEND" envDefault:"file"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	Latency        time.Duration `env:"LATENCY" envDefault:"1500ms"`
	CapacityBytes  int           `env:"CAPACITY_BYTES" envDefault:"5242880"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	SeedFile       string        `env:"SEED_FILE"`
}

// Load parses Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Latency < 0 {
		return Config{}, fmt.Errorf("LATENCY must not be negative, got %s", cfg.Latency)
	}
	if cfg.CapacityBytes <= 0 {
		return Config{}, fmt.Errorf("CAPACITY_BYTES must be positive, got %d", cfg.CapacityBytes)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
