// Package config loads bucketwalk runtime configuration with viper.
//
// Precedence, lowest to highest: defaults, config file, environment
// (BUCKETWALK_*), runtime overrides. Command flags are passed in as
// runtime overrides.
package config

import (
	"time"

	"github.com/3leaps/bucketwalk/pkg/walker"
)

// Config is the full runtime configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Walk    WalkConfig    `mapstructure:"walk"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// StoreConfig selects and reaches the object store.
type StoreConfig struct {
	// Provider is s3, minio or file.
	Provider        string `mapstructure:"provider"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
	RootDir         string `mapstructure:"root_dir"`
	MaxKeys         int    `mapstructure:"max_keys"`

	// MaxOpen caps the buckets a long-running server keeps open.
	MaxOpen int `mapstructure:"max_open"`
}

// WalkConfig mirrors walker.Config.
type WalkConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	BackoffJitter  float64       `mapstructure:"backoff_jitter"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	MaxPrefixes    int           `mapstructure:"max_prefixes"`
}

// WalkerConfig converts to walker.Config.
func (w WalkConfig) WalkerConfig() walker.Config {
	return walker.Config{
		Concurrency:    w.Concurrency,
		MaxAttempts:    w.MaxAttempts,
		InitialBackoff: w.InitialBackoff,
		MaxBackoff:     w.MaxBackoff,
		BackoffJitter:  w.BackoffJitter,
		CallTimeout:    w.CallTimeout,
		RateLimit:      w.RateLimit,
		MaxPrefixes:    w.MaxPrefixes,
	}
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Format is console or json.
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}
