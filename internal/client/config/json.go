package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/credcore/internal/flagx"
	"github.com/dmitrijs2005/credcore/internal/timex"
)

// JsonConfig is the on-disk shape; durations accept "10s" or nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	SessionDB          string         `json:"session_db"`
}

func parseJson(cfg *Config) error {
	return parseJsonFile(cfg, flagx.JsonConfigFlags())
}

// parseJsonFile overlays the non-empty values from path. An empty path is a
// no-op.
func parseJsonFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SessionDB != "" {
		cfg.SessionDB = jc.SessionDB
	}
	return nil
}
