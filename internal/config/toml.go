// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Stats   StatsConfig   `toml:"stats"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// StatsConfig maps stats-related settings.
type StatsConfig struct {
	User     *string `toml:"user"`
	Locale   *string `toml:"locale"`
	Collapse *bool   `toml:"collapse"`
	DieOrder *string `toml:"die-order"`
	Median   *string `toml:"median"`
}

// StorageConfig maps roll log settings.
type StorageConfig struct {
	DB *string `toml:"db"`
}

// LogConfig maps diagnostic logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Load reads the config file at path and applies environment overrides.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	var env EnvConfig
	if err := ParseEnv(&env); err != nil {
		return FileConfig{}, err
	}
	return env.Apply(cfg), nil
}
