package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/credcore/internal/buildinfo"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server"
	"github.com/dmitrijs2005/credcore/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)
	logger.Info(ctx, "starting credcore", "version", buildinfo.Version())

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.RunWithSignals(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
