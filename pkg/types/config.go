package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Redis   RedisConfig   `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds connection parameters for the redis backend.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
	DB        int    `json:"db" yaml:"db" mapstructure:"db"`
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultTimeout bounds a single store operation when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// DefaultRedisNamespace is used when RedisConfig.Namespace is empty.
const DefaultRedisNamespace = "default"

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrRedisAddrEmpty  = errors.New("redis address must not be empty")
	ErrTimeoutNegative = errors.New("timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendRedis:  true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Timeout < 0 {
		return ErrTimeoutNegative
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return ErrRedisAddrEmpty
	}
	return nil
}

// GetTimeout returns the per-operation timeout, or DefaultTimeout if unset.
func (c Config) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// GetNamespace returns the redis key namespace, or DefaultRedisNamespace.
func (c RedisConfig) GetNamespace() string {
	if c.Namespace == "" {
		return DefaultRedisNamespace
	}
	return c.Namespace
}
