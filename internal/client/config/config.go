// Package config loads runtime configuration for the credcore CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// (-c or -config), CREDCORE_CLI_* environment variables, then flags.
//
//	-a string   address:port of the gRPC endpoint
//	-t int      per-request timeout in seconds
//	-db string  path of the local session database
package config

import (
	"fmt"
	"time"
)

// GlobalFlags are the flags owned by this package. The CLI strips them
// before parsing subcommand flags.
var GlobalFlags = []string{"-a", "-t", "-db", "-c", "-config"}

type Config struct {
	ServerEndpointAddr string        `env:"SERVER_ADDR"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"`
	SessionDB          string        `env:"SESSION_DB"`
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.SessionDB = "credcore-session.db"
}

// LoadConfig applies defaults, then JSON, environment and flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}
