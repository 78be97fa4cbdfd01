package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/api"
	"github.com/flare-risk-server/internal/bootstrap"
	"github.com/flare-risk-server/internal/config"
	"github.com/flare-risk-server/internal/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv("FLARE_CONFIG"), "path to a config file")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManagerWithFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.FromConfig(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline, err := bootstrap.Build(ctx, configManager, logger, bootstrap.Options{Migrate: cfg.Database.Enabled})
	if err != nil {
		logger.WithError(err).Fatal("Failed to build scoring pipeline")
	}
	defer pipeline.Close()

	opts := []api.ServerOption{}
	if pipeline.Store != nil {
		opts = append(opts, api.WithSymptomStore(pipeline.Store))
	}
	if pipeline.Predictions != nil {
		opts = append(opts,
			api.WithPredictionHistory(pipeline.Predictions),
			api.WithHealthCheck("database", pipeline.DB.Health),
		)
	}

	server := api.NewServer(configManager, pipeline.Predictor, logger, opts...)

	// Handle shutdown signals; SIGHUP re-reads the config file
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				reloadLogLevel(configManager, logger)
				continue
			}
			logger.Info("Shutdown signal received, gracefully shutting down...")
			cancel()
			return
		}
	}()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"scorer":      cfg.Scorer.Kind,
		"sink":        cfg.Sink.Kind,
	}).Info("Starting flare risk server")

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		pipeline.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// reloadLogLevel re-reads the configuration and applies its log level.
// Everything else takes effect on the next restart.
func reloadLogLevel(configManager *config.Manager, logger *logrus.Logger) {
	if err := configManager.Reload(); err != nil {
		logger.WithError(err).Warn("Failed to reload configuration")
		return
	}

	level, err := logrus.ParseLevel(configManager.GetConfig().Logging.Level)
	if err != nil {
		return
	}
	logger.SetLevel(level)
	logger.WithField("level", level.String()).Info("Configuration reloaded")
}
