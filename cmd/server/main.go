// Package main implements the entry point for the Muse API server,
// which accepts AI tool invocations, routes them to generation
// providers, and tracks per-user quota.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/natefry/muse-api/internal/config"
	"github.com/natefry/muse-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_configured", cfg.Database.URL != "",
		"queue_configured", cfg.Queue.RedisURL != "")

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
