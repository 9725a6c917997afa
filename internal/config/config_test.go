package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./content.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.Interval())
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGGREGATOR_DB_PATH", "/tmp/custom.db")
	t.Setenv("AGGREGATOR_HOST", "127.0.0.1")
	t.Setenv("AGGREGATOR_PORT", "9090")
	t.Setenv("AGGREGATOR_INTERVAL", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
	assert.Equal(t, time.Duration(0), cfg.Interval(), "zero interval selects one-shot mode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"port too small", func(c *Config) { c.ServerPort = 0 }},
		{"port too large", func(c *Config) { c.ServerPort = 70000 }},
		{"negative workers", func(c *Config) { c.WorkerCount = -1 }},
		{"negative interval", func(c *Config) { c.IntervalMinutes = -5 }},
		{"zero retention", func(c *Config) { c.RetentionDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{DBPath: "x.db", ServerPort: 8080, RetentionDays: 30}
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
