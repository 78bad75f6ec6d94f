// Package config assembles runtime configuration for the statementd CLI
// from flags, environment and an optional config file.
package config

import (
	"fmt"
	"time"

	"statement-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// Config holds every tunable of the service.
type Config struct {
	// DatabasePath is the SQLite database file. ":memory:" is accepted
	// for throwaway runs.
	DatabasePath string

	// LockWait bounds how long a mutation waits for the per-account lock.
	LockWait time.Duration

	// MinScore is the classification confidence floor in (0, 1].
	MinScore float64

	LogLevel  string
	LogFormat string
}

// Defaults.
const (
	DefaultDatabasePath = "statements.db"
	DefaultLockWait     = 30 * time.Second
	DefaultMinScore     = 0.72
)

// SetDefaults registers defaults with viper so flags and environment
// variables only need to override what differs.
func SetDefaults() {
	viper.SetDefault("db", DefaultDatabasePath)
	viper.SetDefault("lock-wait", DefaultLockWait)
	viper.SetDefault("min-score", DefaultMinScore)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
}

// Load materializes the configuration from viper's merged sources.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: viper.GetString("db"),
		LockWait:     viper.GetDuration("lock-wait"),
		MinScore:     viper.GetFloat64("min-score"),
		LogLevel:     viper.GetString("log-level"),
		LogFormat:    viper.GetString("log-format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run
// with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("lock-wait must be positive, got %s", c.LockWait)
	}
	if c.MinScore <= 0 || c.MinScore > 1 {
		return fmt.Errorf("min-score must be in (0, 1], got %v", c.MinScore)
	}
	return nil
}

// LoggerConfig converts the logging settings into the logger package's
// configuration.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.Level(c.LogLevel),
		Format: logger.Format(c.LogFormat),
		Output: logger.StderrOutput,
	}
}
