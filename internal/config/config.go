// Package config provides configuration loading and management for dataos.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	DataDir  string         `json:"data_dir"           mapstructure:"data_dir"`
	Database DatabaseConfig `json:"database,omitempty" mapstructure:"database"`
	Engine   EngineConfig   `json:"engine,omitempty"   mapstructure:"engine"`
	Oracle   OracleConfig   `json:"oracle,omitempty"   mapstructure:"oracle"`
	Cache    CacheConfig    `json:"cache,omitempty"    mapstructure:"cache"`
	Metrics  MetricsConfig  `json:"metrics,omitempty"  mapstructure:"metrics"`
}

// DatabaseConfig locates the metadata database.
type DatabaseConfig struct {
	Path string `json:"path,omitempty" mapstructure:"path"`
}

// EngineConfig locates the compute engine database.
type EngineConfig struct {
	Path string `json:"path,omitempty" mapstructure:"path"`
}

// OracleConfig describes the model-backed planner.
type OracleConfig struct {
	Enabled        bool   `json:"enabled,omitempty"         mapstructure:"enabled"`
	Model          string `json:"model,omitempty"           mapstructure:"model"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	APIKey         string `json:"api_key,omitempty"         mapstructure:"api_key"`
}

// CacheConfig tunes the query result cache.
type CacheConfig struct {
	TTLMinutes int `json:"ttl_minutes,omitempty" mapstructure:"ttl_minutes"`
}

// MetricsConfig locates the optional metric definitions override file.
type MetricsConfig struct {
	Path string `json:"path,omitempty" mapstructure:"path"`
}

// CacheTTL returns the configured cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// OracleTimeout returns the configured planning timeout as a duration.
func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// Load reads configuration from path, falling back to defaults for anything
// unset. An empty path loads pure defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("data_dir", ".dataos")
	v.SetDefault("oracle.model", "gemini-2.0-flash")
	v.SetDefault("oracle.timeout_seconds", 30)
	v.SetDefault("cache.ttl_minutes", 60)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := ValidateSettings(v.AllSettings()); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(cfg.DataDir, "metadata.db")
	}
	if cfg.Engine.Path == "" {
		cfg.Engine.Path = filepath.Join(cfg.DataDir, "engine.db")
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("oracle.timeout_seconds must be > 0")
	}
	return cfg, nil
}
