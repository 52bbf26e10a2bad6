// Package main provides the lightweight entry point for the posbindu risk
// engine MCP server. It needs no external services: assessments are kept in
// SQLite under the data directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/config"
	"github.com/posbindu-risk-engine/internal/logging"
	"github.com/posbindu-risk-engine/internal/mcp"
	"github.com/posbindu-risk-engine/internal/setup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(os.Stdout).Run(ctx, os.Args[2:]); err != nil {
			logrus.WithError(err).Fatal("Setup failed")
		}
		return
	}

	cfg := config.LoadLiteConfig()

	logger, closer, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}
	defer closer.Close()

	logger.WithField("data_dir", cfg.DataDir).Info("Starting posbindu risk engine MCP server (lite)")

	server, err := mcp.NewLiteServer(cfg, mcp.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}
	defer server.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("Posbindu risk engine MCP server (lite) stopped")
}
