// Package config loads runtime settings from .ls-sensitivity.yaml,
// LSSC_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Layouts accepted by the layout key.
const (
	LayoutPublic   = "public"
	LayoutInternal = "internal"
)

// Config holds all runtime configuration.
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIVersion  string        `mapstructure:"api_version"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFile     string        `mapstructure:"log_file"`
	Layout      string        `mapstructure:"layout"`
	Legacy      bool          `mapstructure:"legacy"`
	StrictUnits bool          `mapstructure:"strict_units"`
	Preset      string        `mapstructure:"preset"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("base_url", "http://localhost:8000")
	viper.SetDefault("api_version", "1")
	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("layout", LayoutPublic)
	viper.SetDefault("legacy", false)
	viper.SetDefault("strict_units", false)
	viper.SetDefault("preset", "")
	viper.SetDefault("metrics_addr", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that the rest of the program assumes are sane.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	c.APIVersion = strings.TrimPrefix(strings.TrimSpace(c.APIVersion), "v")
	if c.APIVersion == "" {
		return fmt.Errorf("api_version must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	switch c.Layout {
	case LayoutPublic, LayoutInternal:
	default:
		return fmt.Errorf("layout must be %q or %q, got %q", LayoutPublic, LayoutInternal, c.Layout)
	}
	return nil
}
