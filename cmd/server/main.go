// Package main is the entry point for the todo API server, which serves
// per-user task lists over HTTP with a read-through list cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/todo-api/internal/platform/migrations"
)

// options are the command line flags.
type options struct {
	configPath string
	migrate    string
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run parses args, loads configuration, and either runs a migration command
// or serves HTTP until SIGINT or SIGTERM.
func run(args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer closeDatabase(db, logger)
		return runMigrations(ctx, db, cfg.Database.Driver, opts.migrate, logger)
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, db, cfg.Database.Driver, migrations.CommandUp, logger); err != nil {
			closeDatabase(db, logger)
			return err
		}
	}

	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		closeDatabase(db, logger)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a config file (default ./config.yaml if present)")
	fs.StringVar(&opts.migrate, "migrate", "",
		"run a migration command and exit: up, down, reset, status or version")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.migrate != "" && !validMigrateCommand(opts.migrate) {
		return options{}, fmt.Errorf("%w: %q", migrations.ErrUnknownCommand, opts.migrate)
	}
	return opts, nil
}

func validMigrateCommand(cmd string) bool {
	switch cmd {
	case migrations.CommandUp, migrations.CommandDown, migrations.CommandReset,
		migrations.CommandStatus, migrations.CommandVersion:
		return true
	default:
		return false
	}
}
