package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/checksum"
)

// SyncCallback is called after a watcher-driven sync run completes.
type SyncCallback func(Summary)

// Watch starts an fsnotify watcher on the catalog snapshot file and re-syncs
// the store whenever its content changes, until ctx is cancelled. Events are
// debounced so editors that write-and-rename trigger a single run, and a
// content checksum gates out rewrites with identical bytes. Runs are serial:
// the watcher loop is the only goroutine invoking the syncer.
func Watch(ctx context.Context, syncer *Syncer, project ProjectContext, snapshotPath string, logger *slog.Logger, cb SyncCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the parent directory: replace-by-rename (the common atomic write
	// pattern) would otherwise detach a watch on the file itself.
	dir := filepath.Dir(snapshotPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(snapshotPath)

	lastSum := snapshotChecksum(target)
	logger.Info("watcher: started", slog.String("snapshot", target))

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(500 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(500 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			sum := snapshotChecksum(target)
			if sum == "" || sum == lastSum {
				logger.Debug("watcher: snapshot unchanged, skipping sync")
				continue
			}
			lastSum = sum

			summary, runErr := syncer.Run(ctx, project)
			if runErr != nil {
				logger.Warn("watcher: sync failed", slog.String("error", runErr.Error()))
				continue
			}
			logger.Info("watcher: snapshot re-synced",
				slog.Int("succeeded", summary.Succeeded),
				slog.Int("failed", summary.Failed),
				slog.Int("skipped", summary.Skipped))
			if cb != nil {
				cb(summary)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshotChecksum hashes the snapshot content, or returns "" when unreadable
// (mid-rename, deleted).
func snapshotChecksum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return checksum.Sum(data)
}
