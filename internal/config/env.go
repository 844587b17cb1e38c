package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds ROLLSTATS_* overrides. Unset variables stay nil.
type EnvConfig struct {
	User     *string `env:"ROLLSTATS_USER"`
	Locale   *string `env:"ROLLSTATS_LOCALE"`
	Collapse *bool   `env:"ROLLSTATS_COLLAPSE"`
	DieOrder *string `env:"ROLLSTATS_DIE_ORDER"`
	Median   *string `env:"ROLLSTATS_MEDIAN"`
	DB       *string `env:"ROLLSTATS_DB"`
	LogLevel *string `env:"ROLLSTATS_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Apply returns cfg with every set environment value taking precedence.
func (e EnvConfig) Apply(cfg FileConfig) FileConfig {
	override(&cfg.Stats.User, e.User)
	override(&cfg.Stats.Locale, e.Locale)
	override(&cfg.Stats.Collapse, e.Collapse)
	override(&cfg.Stats.DieOrder, e.DieOrder)
	override(&cfg.Stats.Median, e.Median)
	override(&cfg.Storage.DB, e.DB)
	override(&cfg.Log.Level, e.LogLevel)
	return cfg
}

func override[T any](target **T, value *T) {
	if value != nil {
		*target = value
	}
}
