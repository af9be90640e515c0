package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/todo-api/internal/cache"
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/postgres"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
	"github.com/phrazzld/todo-api/internal/redact"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
)

// application holds the shared dependencies so they can be wired once and
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore
	taskCache *cache.TaskListCache

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	userService      service.UserService
	taskService      service.TaskService
}

// newApplication wires stores, cache and services on top of an open db.
// The cache provider is created here and released by cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	switch cfg.Database.Driver {
	case driverSQLite:
		app.userStore = sqlite.NewSQLiteUserStore(db, cfg.Auth.BCryptCost, logger)
		app.taskStore = sqlite.NewSQLiteTaskStore(db, logger)
	case driverPostgres:
		app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
		app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.taskCache, err = cache.NewFromConfig(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task cache: %w", err)
	}
	logger.Info("task cache initialized",
		"enabled", cfg.Cache.Enabled,
		"provider", cfg.Cache.Provider,
		"codec", cfg.Cache.Codec,
		"ttl_seconds", cfg.Cache.TTLSeconds)

	app.userService, err = service.NewUserService(app.userStore, app.passwordVerifier, logger)
	if err != nil {
		app.closeCache()
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.taskCache,
		service.TaskServiceOptions{SingleFlight: cfg.Cache.SingleFlight},
		logger,
	)
	if err != nil {
		app.closeCache()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down and releases
// every resource.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) closeCache() {
	if app.taskCache == nil {
		return
	}
	if err := app.taskCache.Close(); err != nil {
		app.logger.Error("failed to close task cache", "error", redact.Error(err))
	}
}

// cleanup releases the cache provider and the database, in that order.
func (app *application) cleanup() {
	app.closeCache()

	if app.db != nil {
		closeDatabase(app.db, app.logger)
	}

	app.logger.Info("application shutdown completed")
}
