package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/credcore/internal/flagx"
)

// EnvPrefix namespaces every environment variable the server reads.
const EnvPrefix = "CREDCORE_"

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file (from -env-file, or ./.env when present)
// into the process environment, then overlays CREDCORE_* variables.
// Variables already set in the environment win over the file.
func parseEnv(config *Config) error {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix})
}
