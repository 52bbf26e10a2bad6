// Package main provides the HTTP server of the posbindu risk engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/api"
	"github.com/posbindu-risk-engine/internal/config"
	"github.com/posbindu-risk-engine/internal/database"
	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/internal/logging"
	"github.com/posbindu-risk-engine/internal/repository"
	"github.com/posbindu-risk-engine/internal/service"
	"github.com/posbindu-risk-engine/internal/store"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		logrus.WithError(err).Fatal("Failed to load environment file")
	}

	configManager, err := config.NewManager()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configManager.Validate(); err != nil {
		logrus.WithError(err).Fatal("Configuration validation failed")
	}
	cfg := configManager.GetConfig()

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assessmentStore, storeCheck, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open assessment store")
	}
	resilient := service.NewResilientStore(assessmentStore, service.DefaultBreakerConfig(), logger)
	defer resilient.Close()

	redisClient, err := service.NewRedisClient(cfg.Cache)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Redis client")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := service.NewAssessmentCache(cfg.Cache, redisClient, logger)

	svc := service.NewAssessmentService(resilient, cache, cfg.Engine, logger)

	server := api.NewServer(configManager, svc, logger,
		api.WithHealthCheck("database", storeCheck),
		api.WithHealthCheck("cache", func(ctx context.Context) error {
			if !cache.IsHealthy(ctx) {
				return fmt.Errorf("redis tier unreachable")
			}
			return nil
		}),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":   cfg.Server.Host,
		"port":   cfg.Server.Port,
		"driver": cfg.Database.Driver,
		"redis":  redisClient != nil,
	}).Info("Starting posbindu risk engine HTTP server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}

// openStore opens the configured assessment store and returns a health
// check for it. Postgres schemas are migrated on startup.
func openStore(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (domain.AssessmentStore, api.HealthCheck, error) {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		st, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		check := func(ctx context.Context) error {
			_, err := st.Count(ctx)
			return err
		}
		return st, check, nil
	}

	db, err := database.NewConnection(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.MigrationsPath != "" {
		runner, err := database.NewMigrationRunner(database.DSN(cfg), cfg.MigrationsPath, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		err = runner.Up(ctx)
		runner.Close()
		if err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return &pooledRepository{AssessmentRepository: repository.NewAssessmentRepository(db.Pool, logger), db: db}, db.Health, nil
}

// pooledRepository closes the connection pool together with the repository.
type pooledRepository struct {
	*repository.AssessmentRepository
	db *database.DB
}

func (p *pooledRepository) Close() error {
	err := p.AssessmentRepository.Close()
	p.db.Close()
	return err
}
