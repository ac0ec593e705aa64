package config

import "github.com/caarlos0/env/v11"

const EnvPrefix = "CREDCORE_CLI_"

func parseEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}
