package api

import (
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds HTTP server settings read from the environment.
type Config struct {
	Port              string        `env:"PORT" envDefault:"3000"`
	Addr              string        `env:"CAULDRON_ADDR"`
	ReadHeaderTimeout time.Duration `env:"CAULDRON_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"CAULDRON_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ParseConfig loads Config from environment variables.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns Addr when set, otherwise all interfaces on Port.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort("", c.Port)
}
