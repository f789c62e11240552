// Package config loads and validates the autodraft configuration from YAML
// or JSON5 files with environment variable expansion.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the draft service and the client
// pipeline defaults it hands out.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Autosave AutosaveConfig `yaml:"autosave" json:"autosave"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr" json:"addr"`
	ShutdownTimeoutMs int           `yaml:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
	Retention         time.Duration `yaml:"retention" json:"retention"`
	// PruneSchedule is a cron expression for the expiry sweep.
	PruneSchedule string `yaml:"prune_schedule" json:"prune_schedule"`
}

// AuthConfig configures token validation.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" json:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry" json:"token_expiry"`
}

// StoreConfig selects and configures the draft store backend.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path" json:"path"`
	// DSN is the connection string for the postgres driver.
	DSN string `yaml:"dsn" json:"dsn"`
}

// FlowConfig carries the per-flow pipeline tuning.
type FlowConfig struct {
	DebounceMs  int `yaml:"debounce_ms" json:"debounce_ms"`
	MaxDataSize int `yaml:"max_data_size" json:"max_data_size"`
}

// RetryPolicyConfig carries the transport retry tuning.
type RetryPolicyConfig struct {
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	DelayMs     int `yaml:"delay_ms" json:"delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" json:"max_delay_ms"`
}

// AutosaveConfig groups pipeline defaults per flow.
type AutosaveConfig struct {
	Creation FlowConfig        `yaml:"creation" json:"creation"`
	Play     FlowConfig        `yaml:"play" json:"play"`
	Retry    RetryPolicyConfig `yaml:"retry" json:"retry"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ApplyDefaults fills zero fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeoutMs <= 0 {
		c.Server.ShutdownTimeoutMs = 10000
	}
	if c.Server.Retention <= 0 {
		c.Server.Retention = 7 * 24 * time.Hour
	}
	if c.Server.PruneSchedule == "" {
		c.Server.PruneSchedule = "@hourly"
	}
	if c.Auth.TokenExpiry <= 0 {
		c.Auth.TokenExpiry = 24 * time.Hour
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Autosave.Creation.DebounceMs <= 0 {
		c.Autosave.Creation.DebounceMs = 500
	}
	if c.Autosave.Creation.MaxDataSize <= 0 {
		c.Autosave.Creation.MaxDataSize = 2 * 1024 * 1024
	}
	if c.Autosave.Play.DebounceMs <= 0 {
		c.Autosave.Play.DebounceMs = 300
	}
	if c.Autosave.Play.MaxDataSize <= 0 {
		c.Autosave.Play.MaxDataSize = 256 * 1024
	}
	if c.Autosave.Retry.MaxAttempts <= 0 {
		c.Autosave.Retry.MaxAttempts = 3
	}
	if c.Autosave.Retry.DelayMs <= 0 {
		c.Autosave.Retry.DelayMs = 1000
	}
	if c.Autosave.Retry.MaxDelayMs <= 0 {
		c.Autosave.Retry.MaxDelayMs = 10000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Autosave.Retry.MaxAttempts > 10 {
		return fmt.Errorf("autosave.retry.max_attempts must be at most 10")
	}
	return nil
}
