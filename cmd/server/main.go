package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/api"
	"github.com/water-ml-server/internal/config"
	"github.com/water-ml-server/internal/database"
	"github.com/water-ml-server/internal/repository"
	"github.com/water-ml-server/internal/service"
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

	dbCfg := configManager.GetDatabaseConfig()
	db, err := database.NewConnection(ctx, dbCfg, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner, err := database.NewMigrationRunner(dbCfg.URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := runner.Up(ctx); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	runner.Close()

	statsRepo := repository.NewStatsRepository(db.Pool, logger)
	forecastRepo := repository.NewForecastRepository(db.Pool, logger)
	recordRepo := repository.NewTestRecordRepository(db.Pool, logger)
	userRepo := repository.NewUserRepository(db.Pool, logger)
	sessionRepo := repository.NewSessionRepository(db.Pool, logger)

	statsSvc := service.NewStatsService(statsRepo, logger)
	if cfg.Cache.Enabled {
		statsSvc, err = service.NewCachedStatsService(statsRepo, cfg.Cache.RedisURL, cfg.Cache.StatsTTL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect stats cache: %v", err)
		}
		defer statsSvc.Close()
	}
	forecastSvc := service.NewForecastService(forecastRepo, cfg.Cache.ForecastSize, cfg.Cache.ForecastTTL, logger)
	importer := service.NewImporter(recordRepo, logger)

	server := api.NewServer(
		api.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			RateLimit:       cfg.Server.RateLimit,
			RateBurst:       cfg.Server.RateBurst,
			SessionTTL:      cfg.Auth.SessionTTL,
			Debug:           cfg.Logging.Level == "debug",
		},
		api.Dependencies{
			Stats:    statsSvc,
			Forecast: forecastSvc,
			Records:  recordRepo,
			Users:    userRepo,
			Sessions: sessionRepo,
			Importer: importer,
			Health:   db.Health,
		},
		logger,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting disease surveillance server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
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
	return logger
}
