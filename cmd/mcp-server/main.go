package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/app"
	"github.com/radreport-mcp-server/internal/config"
	"github.com/radreport-mcp-server/internal/mcp"
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer services.Close()

	server := mcp.NewServer(mcp.Info{
		Name:        cfg.MCP.ServerName,
		Version:     cfg.MCP.ServerVersion,
		DefaultUser: cfg.MCP.DefaultUser,
	}, mcp.Dependencies{
		Logic:    services.Logic,
		Reports:  services.Reports,
		Compiler: services.Compiler,
		Logger:   logger,
	})

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
	}
}
