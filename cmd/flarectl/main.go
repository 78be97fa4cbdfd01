package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flare-risk-server/internal/bootstrap"
	"github.com/flare-risk-server/internal/cli"
	"github.com/flare-risk-server/internal/config"
	"github.com/flare-risk-server/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Config file: FLARE_CONFIG, or the usual search paths.
	configManager, err := config.NewManagerWithFile(os.Getenv("FLARE_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := configManager.GetConfig()

	// Keep the terminal quiet unless debugging.
	level := "warn"
	if cfg.Logging.Level == "debug" {
		level = "debug"
	}
	logger := logging.NewWithOutput(level, "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The audit pool is for the long-running server; the CLI only touches
	// the database through the postgres sink and migrations.
	pipeline, err := bootstrap.Build(ctx, configManager, logger, bootstrap.Options{SkipDatabase: true})
	if err != nil {
		return err
	}
	defer pipeline.Close()

	app := &cli.App{
		Predictor: pipeline.Predictor,
		Recorder:  pipeline.Recorder,
		Store:     pipeline.Store,
	}
	if configManager.NeedsDatabase() {
		app.OpenMigrator = func(path string) (cli.Migrator, error) {
			if path == "" {
				path = cfg.Database.MigrationsPath
			}
			return bootstrap.NewMigrator(configManager.GetDatabaseURL(), path, logger)
		}
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
