package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/api"
	"github.com/radreport-mcp-server/internal/app"
	"github.com/radreport-mcp-server/internal/config"
	"github.com/radreport-mcp-server/internal/domain"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	configManager.WatchConfig(func(next *domain.Config, err error) {
		if err != nil {
			logger.WithError(err).Warn("Ignoring invalid configuration change")
			return
		}
		config.ApplyLogging(logger, next.Logging)
		logger.Info("Configuration reloaded")
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	server := api.NewServer(configManager, api.Dependencies{
		Logic:    services.Logic,
		Reports:  services.Reports,
		Compiler: services.Compiler,
		Health:   services.Health,
		Logger:   logger,
	})

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting radiology report server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}
	logger.Info("Server stopped")
}
