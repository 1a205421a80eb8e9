package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/store"
)

// RunSync performs a one-shot catalog sync and reports its counts. Used by
// the sync CLI command; the serve path syncs through Run instead.
func RunSync(ctx context.Context, cfg *Config, projectID string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	var source catalog.Source
	switch cfg.Catalog.Source {
	case CatalogSourceFile:
		source = catalog.NewFileSource(cfg.Catalog.SnapshotPath)
	default:
		source = catalog.NewHTTPSource(cfg.Catalog.URL, cfg.Catalog.FetchTimeout, cfg.Catalog.Retries, logger)
	}

	syncer := &catalog.Syncer{
		Store:     db,
		Source:    source,
		Logger:    logger,
		BatchSize: cfg.Catalog.BatchSize,
		Retries:   cfg.Catalog.Retries,
	}
	if projectID == "" {
		projectID = cfg.Catalog.Project
	}

	summary, err := syncer.Run(ctx, catalog.ProjectContext{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	logger.Info("sync done",
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))
	return nil
}
