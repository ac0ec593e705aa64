package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/credcore/internal/flagx"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server"
	"github.com/dmitrijs2005/credcore/internal/server/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	svc, closer, err := server.NewAdminService(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "open user store", "error", err)
		return 1
	}
	defer closer.Close()

	readPassword := func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }

	args := flagx.StripArgs(os.Args[1:], config.OwnedFlags())
	if err := server.RunAdmin(ctx, svc, args, os.Stdout, readPassword); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, server.ErrAdminUsage) {
			return 2
		}
		return 1
	}
	return 0
}
