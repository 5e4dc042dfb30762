package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/publish"
	"github.com/cadencehq/cadence/internal/scheduler"
	"github.com/cadencehq/cadence/internal/session"
	"github.com/cadencehq/cadence/internal/store"
	"github.com/cadencehq/cadence/internal/validation"
)

func main() {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("cadence exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	db, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	validator, err := validation.NewSnapshotValidator()
	if err != nil {
		return err
	}

	adapter := store.NewAdapter(db, validator, logger)
	sessions := session.NewManager(adapter, logger)
	publisher := publish.NewPublisher(sessions.Snapshot, publish.NewHTTPSubmitter(cfg.BackendURL), logger)

	sched := scheduler.NewScheduler(db, publisher, logger)
	if err := sched.Start(context.Background()); err != nil {
		return err
	}
	defer sched.Stop()

	app := newApp(&server{
		sessions:  sessions,
		publisher: publisher,
		store:     db,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	logger.Info("cadence listening",
		slog.String("addr", cfg.ListenAddr),
		slog.String("db", cfg.DBPath),
		slog.String("backend", cfg.BackendURL),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		return app.Shutdown()
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(logging.NewCorrelationHandler(inner))
	slog.SetDefault(logger)
	return logger
}
