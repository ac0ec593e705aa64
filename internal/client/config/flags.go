package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/credcore/internal/flagx"
)

func parseFlags(cfg *Config) error {
	return parseFlagArgs(cfg, os.Args[1:])
}

// parseFlagArgs picks -a, -t and -db out of args; everything else belongs to
// subcommands and is ignored here.
func parseFlagArgs(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-db"})

	fs := flag.NewFlagSet("credcore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the gRPC server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionDB, "db", cfg.SessionDB, "path of the local session database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
