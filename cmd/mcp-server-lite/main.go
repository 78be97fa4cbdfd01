// Package main provides the lightweight MCP entry point for flare-up risk
// scoring. It needs no external services: the model is fitted in process and
// the symptom log lives in SQLite under the data directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/config"
	"github.com/flare-risk-server/internal/logging"
	"github.com/flare-risk-server/internal/mcp"
)

func main() {
	cfg := config.LoadLiteConfig()

	// stdout carries the stdio transport, so logs go to stderr.
	logger := logging.NewWithOutput(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"data_dir":  cfg.DataDir,
	}).Info("Starting flare risk MCP server (lite)")

	server, err := mcp.NewLiteServer(cfg, mcp.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		server.Close()
		os.Exit(1)
	}

	logger.Info("Flare risk MCP server (lite) stopped")
}
