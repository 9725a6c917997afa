// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// File paths
	CreatorsCSVPath string `envconfig:"AGGREGATOR_CSV_PATH" default:"./creators.csv"`
	DBPath          string `envconfig:"AGGREGATOR_DB_PATH" default:"./content.db"`

	// Server settings
	ServerHost string `envconfig:"AGGREGATOR_HOST" default:""`
	ServerPort int    `envconfig:"AGGREGATOR_PORT" default:"8080"`
	APIKey     string `envconfig:"AGGREGATOR_API_KEY" default:""`

	// Processing settings
	WorkerCount     int `envconfig:"AGGREGATOR_WORKER_COUNT" default:"0"`
	IntervalMinutes int `envconfig:"AGGREGATOR_INTERVAL" default:"15"`
	RetentionDays   int `envconfig:"AGGREGATOR_RETENTION_DAYS" default:"90"`
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("AGGREGATOR_DB_PATH is required")
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("AGGREGATOR_PORT must be between 1 and 65535")
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("AGGREGATOR_WORKER_COUNT must be >= 0")
	}
	if c.IntervalMinutes < 0 {
		return fmt.Errorf("AGGREGATOR_INTERVAL must be >= 0")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("AGGREGATOR_RETENTION_DAYS must be >= 1")
	}
	return nil
}

// Interval returns the pause between processing runs; zero means
// one-shot mode.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
