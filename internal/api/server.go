// Package api exposes the audit core over HTTP for the dashboard frontend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/database"
	"github.com/immunization-audit-server/internal/domain"
	"github.com/immunization-audit-server/internal/export"
	"github.com/immunization-audit-server/internal/middleware"
	"github.com/immunization-audit-server/internal/service"
	"github.com/immunization-audit-server/internal/store"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	router        *gin.Engine
	server        *http.Server
	logger        *logrus.Logger

	store      *store.RecordStore
	classifier *service.ClassifierService
	aggregator *service.AggregatorService
	ledger     domain.ReviewLedger
	exporter   *export.CSVExporter
	hub        *Hub
	db         *database.DB // nil unless the postgres ledger is configured
}

// Deps bundles the collaborators the server routes requests to.
type Deps struct {
	Store      *store.RecordStore
	Classifier *service.ClassifierService
	Aggregator *service.AggregatorService
	Ledger     domain.ReviewLedger
	Exporter   *export.CSVExporter
	DB         *database.DB
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Deps, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	server := &Server{
		configManager: configManager,
		router:        router,
		logger:        logger,
		store:         deps.Store,
		classifier:    deps.Classifier,
		aggregator:    deps.Aggregator,
		ledger:        deps.Ledger,
		exporter:      deps.Exporter,
		hub:           NewHub(logger),
		db:            deps.DB,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server
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
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.hub.CloseAll()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWS)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/records", s.handleRecords)
		v1.GET("/summary", s.handleSummary)
		v1.GET("/lots", s.handleLots)
		v1.GET("/trends/missing-by-date", s.handleMissingByDate)
		v1.GET("/trends/eligibility", s.handleEligibility)
		v1.GET("/guidance", s.handleGuidance)
		v1.GET("/narrative", s.handleNarrative)
		v1.GET("/export", s.handleExport)
		v1.PUT("/records/:id/reviewed", s.handleSetReviewed)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"records":   s.store.Len(),
	}

	if s.db != nil {
		if err := s.db.HealthCheck(c.Request.Context()); err != nil {
			s.logger.WithError(err).Warn("Database health check failed")
			status["status"] = "degraded"
			status["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}
