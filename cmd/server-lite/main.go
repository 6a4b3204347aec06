// The lite server runs the surveillance API against an embedded SQLite
// database for field deployments without a Postgres instance.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/api"
	"github.com/water-ml-server/internal/config"
	"github.com/water-ml-server/internal/litestore"
	"github.com/water-ml-server/internal/service"
)

func main() {
	cfg, err := config.LoadLiteConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store, err := litestore.NewStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	statsSvc := service.NewStatsService(store, logger)
	forecastSvc := service.NewForecastService(store, 64, 5*time.Minute, logger)
	importer := service.NewImporter(store, logger)

	server := api.NewServer(
		api.Config{
			Host:            cfg.Host,
			Port:            cfg.Port,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      cfg.SessionTTL,
			Debug:           cfg.LogLevel == "debug",
		},
		api.Dependencies{
			Stats:    statsSvc,
			Forecast: forecastSvc,
			Records:  store,
			Users:    store.Users(),
			Sessions: store.Sessions(),
			Importer: importer,
			Health:   store.Health,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DBPath,
	}).Info("Starting lite surveillance server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
