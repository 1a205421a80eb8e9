// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/catalogservice"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	if app.mcpMode {
		// stdout carries the MCP protocol; keep logs off it.
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("catalog_source", cfg.Catalog.Source),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite metadata store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Catalog source and syncer.
	var source catalog.Source
	switch cfg.Catalog.Source {
	case CatalogSourceFile:
		source = catalog.NewFileSource(cfg.Catalog.SnapshotPath)
	default:
		source = catalog.NewHTTPSource(cfg.Catalog.URL, cfg.Catalog.FetchTimeout, cfg.Catalog.Retries, logger)
	}

	svc := catalogservice.NewService(db)
	syncer := &catalog.Syncer{
		Store:         db,
		Source:        source,
		Logger:        logger,
		BatchSize:     cfg.Catalog.BatchSize,
		Retries:       cfg.Catalog.Retries,
		OnBatchCommit: svc.InvalidateCache,
	}
	project := catalog.ProjectContext{ProjectID: cfg.Catalog.Project}

	// Export dispatcher against the live Earth Engine API.
	jobs := export.NewEarthEngineJobs(cfg.EarthEngine.BaseURL, cfg.EarthEngine.Timeout, logger)
	disp := export.NewDispatcher(db, jobs, logger)

	if app.mcpMode {
		// Populate an empty store so tools have data to answer from.
		if n, err := db.CountDatasets(); err == nil && n == 0 && cfg.Catalog.SyncOnStart {
			if summary, err := syncer.Run(ctx, project); err != nil {
				logger.Warn("initial sync failed", slog.String("error", err.Error()))
			} else {
				logger.Info("initial sync done",
					slog.Int("succeeded", summary.Succeeded),
					slog.Int("failed", summary.Failed),
					slog.Int("skipped", summary.Skipped))
			}
		}
		return mcpserver.New(svc, disp).ServeStdio()
	}

	// Run initial sync.
	if cfg.Catalog.SyncOnStart {
		if summary, err := syncer.Run(ctx, project); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else {
			logger.Info("initial sync done",
				slog.Int("succeeded", summary.Succeeded),
				slog.Int("failed", summary.Failed),
				slog.Int("skipped", summary.Skipped))
		}
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(svc, disp, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := db.CountDatasets(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch a local catalog snapshot and re-sync on change.
	if cfg.Catalog.Source == CatalogSourceFile {
		g.Go(func() error {
			err := catalog.Watch(gCtx, syncer, project, cfg.Catalog.SnapshotPath, logger, func(summary catalog.Summary) {
				broker.PublishSyncResult(summary)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("catalog watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
