package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/api"
	"github.com/immunization-audit-server/internal/config"
	"github.com/immunization-audit-server/internal/database"
	"github.com/immunization-audit-server/internal/domain"
	"github.com/immunization-audit-server/internal/export"
	"github.com/immunization-audit-server/internal/ledger"
	"github.com/immunization-audit-server/internal/service"
	"github.com/immunization-audit-server/internal/source"
	"github.com/immunization-audit-server/internal/store"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Load the record extract once; the collection is immutable afterwards.
	loader := source.NewLoader(cfg.Dataset, logger)
	records, err := loader.Load(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load dataset")
	}

	recordStore := store.NewRecordStore(logger)
	recordStore.SetRecords(records)

	reviewLedger, db, err := buildLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize review ledger")
	}
	defer reviewLedger.Close()
	if db != nil {
		defer db.Close()
	}

	classifier, err := service.NewClassifierService(logger, cfg.Cache.ClassificationSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize classifier")
	}
	aggregator := service.NewAggregatorService(logger, classifier)
	exporter := export.NewCSVExporter(classifier, reviewLedger)

	server := api.NewServer(configManager, api.Deps{
		Store:      recordStore,
		Classifier: classifier,
		Aggregator: aggregator,
		Ledger:     reviewLedger,
		Exporter:   exporter,
		DB:         db,
	}, logger)

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"records": recordStore.Len(),
		"ledger":  cfg.Ledger.Backend,
	}).Info("Starting immunization audit server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the shared logrus logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// buildLedger constructs the configured review ledger backend. The postgres
// backend also runs schema migrations and returns a pool for health checks.
func buildLedger(ctx context.Context, cfg domain.LedgerConfig, logger *logrus.Logger) (domain.ReviewLedger, *database.DB, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return ledger.NewMemoryStore(), nil, nil

	case "sqlite":
		store, err := ledger.NewSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "redis":
		store, err := ledger.NewRedisStore(cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "postgres":
		runner, err := database.NewMigrationRunner(cfg.DatabaseURL, cfg.MigrationsPath, logger)
		if err != nil {
			return nil, nil, err
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			return nil, nil, err
		}

		db, err := database.NewConnection(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}

		store, err := ledger.NewPostgresStoreFromURL(cfg.DatabaseURL, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}
