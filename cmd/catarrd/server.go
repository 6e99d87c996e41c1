package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	v1 "github.com/vmunix/catarr/internal/api/v1"
	"github.com/vmunix/catarr/internal/config"
	"github.com/vmunix/catarr/internal/events"
	"github.com/vmunix/catarr/internal/history"
	"github.com/vmunix/catarr/internal/importer"
	"github.com/vmunix/catarr/internal/migrations"
	"github.com/vmunix/catarr/internal/queue"
	"github.com/vmunix/catarr/internal/scheduler"
	"github.com/vmunix/catarr/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	return config.WriteDefault(path)
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure data directories exist
	for _, p := range []string{cfg.Database.Path, cfg.Queue.StatePath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	// Single-instance lock: two daemons would both drain the same queue.
	lockPath := filepath.Join(filepath.Dir(cfg.Queue.StatePath), "catarrd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another catarrd instance holds %s", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	// Open history database
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// === Stores ===
	queueStore := queue.NewStore(cfg.Queue.StatePath, logger)
	historyStore := history.NewStore(db)

	// === Event bus ===
	bus := events.NewBus(logger.With("component", "bus"))
	defer bus.Close()

	// === Media server client ===
	client := importer.NewCollectionClient(cfg.MediaServer.URL, cfg.MediaServer.Token, logger)
	if ident, err := client.ServerIdentity(context.Background()); err != nil {
		logger.Warn("media server not reachable at startup", "url", cfg.MediaServer.URL, "error", err)
	} else {
		logger.Info("media server connected", "name", ident.Name, "version", ident.Version)
	}

	// === Scheduler and runner ===
	sched := scheduler.New(queueStore, client, historyStore, bus, scheduler.Config{
		MaxParallelMovieImports: cfg.Import.MaxParallelMovieImports,
		SeriesImportDelay:       cfg.Import.SeriesImportDelay.Duration,
		CatalogImportTimeout:    cfg.Import.CatalogImportTimeout.Duration,
	}, logger)

	runner := server.NewRunner(queueStore, sched, historyStore, bus, server.Config{
		PollInterval:     cfg.Import.PollInterval.Duration,
		HistoryRetention: cfg.Import.HistoryRetention.Duration,
	}, logger)

	// === HTTP API ===
	mux := http.NewServeMux()
	v1.New(queueStore, historyStore, bus, version, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: logRequests(mux, logger.With("component", "http")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("catarrd started", "version", version, "addr", addr,
			"queued_catalogs", queueStore.PendingCount())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("runner: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
