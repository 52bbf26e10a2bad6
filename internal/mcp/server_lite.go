// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/posbindu-risk-engine/internal/config"
	"github.com/posbindu-risk-engine/internal/logging"
	"github.com/posbindu-risk-engine/internal/service"
	"github.com/posbindu-risk-engine/internal/store"
)

const (
	serverName    = "posbindu-risk-engine-lite"
	serverVersion = "v0.1.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	store     store.Portable
	cache     *service.AssessmentCache
	service   *service.AssessmentService
	logger    *logrus.Logger
	toolNames []string
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithStore sets a custom assessment store.
func WithStore(st store.Portable) LiteServerOption {
	return func(s *LiteServer) error {
		if st == nil {
			return fmt.Errorf("store must not be nil")
		}
		s.store = st
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, _, err := logging.New(cfg.LoggingConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if server.store == nil {
		st, err := store.NewSQLiteStore(cfg.AssessmentDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create assessment store: %w", err)
		}
		server.store = st
	}

	server.cache = service.NewAssessmentCache(cfg.CacheConfig(), nil, server.logger)
	server.service = service.NewAssessmentService(server.store, server.cache, cfg.EngineConfig(), server.logger)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"data_dir":   cfg.DataDir,
		"tool_count": len(server.toolNames),
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start runs the server on stdio until ctx is cancelled or the client
// disconnects.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting posbindu risk engine MCP server (lite)...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close assessment store")
			return err
		}
	}
	return nil
}

// ToolNames returns the registered tool names in registration order.
func (s *LiteServer) ToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

// Service returns the assessment service backing the tools.
func (s *LiteServer) Service() *service.AssessmentService {
	return s.service
}
