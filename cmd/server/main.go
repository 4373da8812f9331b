package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/api"
	"github.com/postop-risk-server/internal/config"
	"github.com/postop-risk-server/internal/database"
	"github.com/postop-risk-server/internal/domain"
	"github.com/postop-risk-server/internal/repository"
	"github.com/postop-risk-server/internal/review"
	"github.com/postop-risk-server/internal/service"
	"github.com/postop-risk-server/internal/state"
	"github.com/postop-risk-server/pkg/notify"
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

	// State store: in-memory by default, Redis when configured.
	var store domain.StateStore
	if cfg.Cache.Enabled {
		redisStore, err := state.NewRedisStore(ctx, logger,
			strings.TrimPrefix(cfg.Cache.RedisURL, "redis://"), "", 0, cfg.Cache.DefaultTTL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis state store")
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		store = state.NewMemoryStore()
	}

	engine := service.NewRiskEngine(logger, store, cfg.Engine, nil)

	// Optional Postgres persistence for assessments and alerts.
	var repo domain.AssessmentRepository
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(
			"postgres://"+cfg.Database.Username+":"+cfg.Database.Password+"@"+
				cfg.Database.Host+"/"+cfg.Database.Database+"?sslmode="+cfg.Database.SSLMode,
			cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		repo = repository.NewAssessmentRepository(db.Pool, logger)
	}

	reviews := newReviewStore(cfg, configManager, logger)
	if reviews != nil {
		defer reviews.Close()
	}

	notifier := newNotifier(cfg, logger)
	defer notifier.Close()

	server := api.NewServer(api.Deps{
		ConfigManager: configManager,
		Engine:        engine,
		Repository:    repo,
		Reviews:       reviews,
		Notifier:      notifier,
		Logger:        logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting post-operative risk server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
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

func newReviewStore(cfg *domain.Config, configManager domain.ConfigManager, logger *logrus.Logger) review.Store {
	switch cfg.Review.Backend {
	case "postgres":
		store, err := review.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString())
		if err != nil {
			logger.WithError(err).Fatal("Failed to open postgres review store")
		}
		return store
	default:
		store, err := review.NewSQLiteStore(cfg.Review.SQLitePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open sqlite review store")
		}
		return store
	}
}

func newNotifier(cfg *domain.Config, logger *logrus.Logger) domain.AlertNotifier {
	switch cfg.Notifier.Kind {
	case "webhook":
		n, err := notify.NewWebhookNotifier(cfg.Notifier.Webhook, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to build webhook notifier")
		}
		return n
	case "kafka":
		n, err := notify.NewKafkaNotifier(cfg.Notifier.Kafka, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to build kafka notifier")
		}
		return n
	default:
		return notify.NoopNotifier{}
	}
}
