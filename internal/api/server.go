// Package api serves the risk engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/internal/middleware"
	"github.com/posbindu-risk-engine/internal/service"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
	healthTimeout   = 2 * time.Second
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a named dependency check to GET /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       *service.AssessmentService
	checks        map[string]HealthCheck
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, svc *service.AssessmentService, logger *logrus.Logger, opts ...Option) *Server {
	cfg := configManager.GetConfig()

	switch cfg.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))
	router.Use(middleware.RateLimit(cfg.RateLimit, logger))

	server := &Server{
		configManager: configManager,
		service:       svc,
		checks:        map[string]HealthCheck{},
		logger:        logger,
		router:        router,
	}
	for _, opt := range opts {
		opt(server)
	}

	registerValidations(logger)
	server.setupRoutes()

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		evaluate := v1.Group("/evaluate")
		evaluate.POST("/bmi", s.handleBMI)
		evaluate.POST("/waist", s.handleWaist)
		evaluate.POST("/blood-pressure", s.handleBloodPressure)
		evaluate.POST("/spo2", s.handleSpO2)
		evaluate.POST("/nutrition", s.handleNutrition)
		evaluate.POST("/lab", s.handleLab)
		evaluate.POST("/screening", s.handleScreening)
		evaluate.POST("/cvd", s.handleCVD)
		evaluate.POST("/maternal", s.handleMaternal)
		evaluate.POST("/stock", s.handleStock)

		v1.POST("/stock/use", s.handleUseStock)
		v1.POST("/visits/assess", s.handleAssessVisit)
		v1.GET("/assessments/:id", s.handleGetAssessment)
		v1.GET("/participants/:id/assessments", s.handleListByParticipant)
		v1.GET("/referrals", s.handleListReferrals)
	}
}

// handleHealth runs every registered dependency check.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.WithError(err).WithField("check", name).Warn("Health check failed")
			checks[name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}
