// Package config loads ledger defaults from the environment.
// CLI flags override anything set here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the environment-backed ledger defaults.
type Config struct {
	// DBPath is the fact log location.
	DBPath string `env:"CHRONICLE_DB" envDefault:"chronicle.db"`

	// MaxSnapshots caps interval-snapshot generation per timeline query.
	MaxSnapshots int `env:"CHRONICLE_MAX_SNAPSHOTS" envDefault:"10000"`

	// MaxEvents caps events per timeline query; 0 means unbounded.
	MaxEvents int `env:"CHRONICLE_MAX_EVENTS" envDefault:"0"`

	// QueryDeadline bounds read queries that arrive without their own
	// deadline; 0 disables the bound.
	QueryDeadline time.Duration `env:"CHRONICLE_QUERY_DEADLINE" envDefault:"30s"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `env:"CHRONICLE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
