package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/natefry/muse-api/internal/config"
	"github.com/natefry/muse-api/internal/platform/memstore"
	"github.com/natefry/muse-api/internal/platform/postgres"
	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/queue"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/service/auth"
	"github.com/natefry/muse-api/internal/store"
	"github.com/natefry/muse-api/internal/task"
	"github.com/natefry/muse-api/internal/tools"
)

// application holds the wired dependencies for the server process.
type application struct {
	config *config.Config
	logger *slog.Logger

	db        *sql.DB
	taskQueue *queue.RedisQueue

	toolRegistry tools.Registry
	ledger       *quota.Ledger
	worker       *task.Worker
	dispatcher   *task.Dispatcher
	jwtService   auth.JWTService
}

// newApplication wires every component from configuration. Storage is
// PostgreSQL when a database URL is configured and in-memory otherwise;
// dispatch is queue-backed when a Redis URL is configured and inline
// otherwise. Both choices are fixed for the process lifetime.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var taskStore store.TaskStore
	var quotaStore store.QuotaStore
	var subscriptionStore store.SubscriptionStore

	if cfg.Database.URL != "" {
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := runMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		taskStore = postgres.NewPostgresTaskStore(db, logger)
		quotaStore = postgres.NewPostgresQuotaStore(db, logger)
		subscriptionStore = postgres.NewPostgresSubscriptionStore(db, logger)
		app.toolRegistry = postgres.NewPostgresToolRegistry(db, logger)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		taskStore = memstore.NewTaskStore()
		quotaStore = memstore.NewQuotaStore()
		subscriptionStore = memstore.NewSubscriptionStore()
		app.toolRegistry = tools.NewStaticRegistry()
	}

	entitlements := quota.NewTierEntitlements(subscriptionStore, cfg.Quota.FreeDailyLimit)
	app.ledger = quota.NewLedger(quotaStore, entitlements, logger)

	providerRegistry, err := buildProviderRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	router := provider.NewRouter(providerRegistry)

	app.worker = task.NewWorker(taskStore, app.toolRegistry, router, app.ledger, logger)

	var exec task.Executor
	if cfg.Queue.RedisURL != "" {
		q, err := queue.NewRedisQueue(ctx, cfg.Queue.RedisURL, queue.Config{
			Consumers: cfg.Queue.Workers,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up task queue: %w", err)
		}
		app.taskQueue = q
		exec = task.NewQueueExecutor(q)
	} else {
		logger.Warn("no queue configured, executing tasks inline")
		exec = task.NewInlineExecutor(app.worker)
	}

	app.dispatcher = task.NewDispatcher(taskStore, app.toolRegistry, app.ledger, exec, logger)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set up JWT service: %w", err)
	}
	app.jwtService = jwtService

	return app, nil
}

// buildProviderRegistry creates the provider adapters in their fixed
// registration order. Adapters without credentials register anyway and
// report unavailable; the mock comes last and enables itself only when
// every real adapter is down, so a bare deployment still demos.
func buildProviderRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	openRouter := provider.NewOpenRouterAdapter(cfg.Providers.OpenRouterAPIKey)
	a2e := provider.NewA2EAdapter(cfg.Providers.A2EAPIKey)
	gemini, err := provider.NewGeminiAdapter(ctx, cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up gemini adapter: %w", err)
	}
	mock := provider.NewMockAdapter(openRouter, a2e, gemini)

	return provider.NewRegistry(openRouter, a2e, gemini, mock), nil
}

// run starts the queue consumers (when configured) and the HTTP
// server, blocking until shutdown.
func (app *application) run(ctx context.Context) error {
	if app.taskQueue != nil {
		if err := app.taskQueue.Start(app.worker.Run); err != nil {
			return fmt.Errorf("failed to start queue consumers: %w", err)
		}
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases process resources after the HTTP server stops.
func (app *application) cleanup() {
	if app.taskQueue != nil {
		if err := app.taskQueue.Stop(); err != nil {
			app.logger.Error("failed to stop task queue", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
