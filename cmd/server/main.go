/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the investor profit distribution server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize the structured logger
  3. Open the store (SQLite, or in-memory with -db=mem)
  4. Wire notifications, profit service, FX converter, report renderer
  5. Register and start the background jobs
  6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DATABASE_PATH)
           Use ":memory:" for a throwaway SQLite database,
           or "mem" for the plain in-memory store

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM, or when the listener fails:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop background jobs
  4. Close database connection

EXAMPLES:
  ./server -db="./data/investors.db"
  ./server -db=mem -port=3000

SEE ALSO:
  - config/config.go: environment variables
  - api/server.go: Router configuration
  - api/jobs.go: background jobs
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abd-elrahmann/inestors-backend/api"
	"github.com/Abd-elrahmann/inestors-backend/config"
	"github.com/Abd-elrahmann/inestors-backend/fx"
	"github.com/Abd-elrahmann/inestors-backend/logger"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
	"github.com/Abd-elrahmann/inestors-backend/reports"
	"github.com/Abd-elrahmann/inestors-backend/store/memory"
	"github.com/Abd-elrahmann/inestors-backend/store/sqlite"
)

// store is what both the profit service and the notification sink need.
type store interface {
	profit.Store
	notify.Store
}

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, `SQLite database path ("mem" for in-memory store)`)
	flag.Parse()
	cfg.Port, cfg.DatabasePath = *port, *dbPath

	log := logger.Init(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// run wires the server and blocks until a signal arrives or the listener
// fails. Every exit path goes through the same shutdown sequence.
func run(cfg *config.Config, log *slog.Logger) error {
	st, closeStore, err := openStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database %s: %w", cfg.DatabasePath, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("failed to close database", slog.Any("error", err))
		}
	}()

	sink := notify.NewSink(st, notify.Options{TTL: cfg.NotificationTTL, Logger: log})
	svc := profit.NewService(st, profit.Options{Notifier: sink, Logger: log})
	converter := fx.New(fx.Options{
		BaseURL:           cfg.FXAPIURL,
		APIKey:            cfg.FXAPIKey,
		CacheTTL:          cfg.FXCacheTTL,
		RequestsPerSecond: cfg.FXRateLimit,
		StaticUSDToIQD:    cfg.USDToIQD,
		Logger:            log,
	})
	renderer := reports.New(reports.Options{Dir: cfg.ExportsDir, MaxAge: cfg.ExportMaxAge, Logger: log})

	scheduler := api.NewScheduler(log)
	err = api.RegisterDefaultJobs(scheduler, svc, sink, renderer, api.JobIntervals{
		Recalculation:       cfg.RecalcInterval,
		AutoRollover:        cfg.RolloverInterval,
		ExportCleanup:       cfg.ExportCleanupInterval,
		NotificationCleanup: cfg.NotificationCleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	if cfg.SchedulerEnabled {
		scheduler.StartAll()
	} else {
		log.Info("scheduler disabled, jobs only run on demand")
	}

	handler := api.NewHandler(api.Deps{
		Service:       svc,
		Notifications: sink,
		FX:            converter,
		Reports:       renderer,
		Scheduler:     scheduler,
		Logger:        log,
	})
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", server.Addr), slog.String("db", cfg.DatabasePath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = fmt.Errorf("listen on %s: %w", server.Addr, err)
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}
	if err := scheduler.StopAll(ctx); err != nil {
		log.Warn("background jobs did not stop in time", slog.Any("error", err))
	}

	log.Info("server stopped")
	return runErr
}

func openStore(path string) (store, func() error, error) {
	if path == "mem" {
		return memory.New(), func() error { return nil }, nil
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
