package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/store"
)

// DefaultBatchSize is how many dataset upserts are grouped per transaction.
const DefaultBatchSize = 100

// Summary reports the outcome of one sync run. A run with Failed > 0 still
// completed: partial failure is a summary condition, not an error.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Syncer reconciles the metadata store with the external catalog source.
// Only the syncer writes dataset/band/tag rows; it must not run concurrently
// with itself against one store.
type Syncer struct {
	Store  store.MetadataStore
	Source Source
	Logger *slog.Logger

	// BatchSize groups upserts per transaction (default DefaultBatchSize).
	BatchSize int
	// Retries bounds re-fetch attempts per record beyond the first try.
	Retries int
	// RetryWait is the base delay between attempts; it grows linearly.
	RetryWait time.Duration
	// OnBatchCommit, when set, runs after every committed batch. Used to
	// invalidate search result caches and notify listeners.
	OnBatchCommit func()
}

// Run fetches the full catalog enumeration and upserts it in batches. One bad
// record never aborts the run: fetch and mapping failures are logged with the
// dataset id and counted. Cancelling ctx stops the run between batches;
// already-committed batches remain applied.
func (s *Syncer) Run(ctx context.Context, project ProjectContext) (Summary, error) {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	retryWait := s.RetryWait
	if retryWait <= 0 {
		retryWait = time.Second
	}

	var sum Summary

	ids, err := s.Source.ListDatasetIDs(ctx, project)
	if err != nil {
		return sum, err
	}
	s.Logger.Info("sync: started",
		slog.Int("datasets", len(ids)),
		slog.Int("batch_size", batchSize))

	batch := make([]store.DatasetRecord, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.Store.UpsertBatch(batch); err != nil {
			// The batch is one transaction: nothing from it was applied.
			s.Logger.Warn("sync: batch commit failed",
				slog.Int("size", len(batch)),
				slog.String("error", err.Error()))
			sum.Failed += len(batch)
		} else {
			sum.Succeeded += len(batch)
			s.Logger.Debug("sync: batch committed", slog.Int("size", len(batch)))
			if s.OnBatchCommit != nil {
				s.OnBatchCommit()
			}
		}
		batch = batch[:0]
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			flush()
			s.Logger.Info("sync: interrupted", slog.String("reason", err.Error()))
			return sum, err
		}

		doc, err := s.fetchWithRetry(ctx, project, id, retryWait)
		if err != nil {
			s.Logger.Warn("sync: fetch failed",
				slog.String("id", id),
				slog.String("error", err.Error()))
			sum.Failed++
			continue
		}

		rec := MapDocument(doc, s.Logger)
		if rec.ID == "" {
			s.Logger.Warn("sync: document without id skipped", slog.String("listed_id", id))
			sum.Skipped++
			continue
		}

		batch = append(batch, rec)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()

	s.Logger.Info("sync: completed",
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped))
	return sum, nil
}

// fetchWithRetry retries a single record fetch a bounded number of times with
// an increasing delay. Throttling and transient network failures are retried;
// a cancelled context is not.
func (s *Syncer) fetchWithRetry(ctx context.Context, project ProjectContext, id string, wait time.Duration) (*Document, error) {
	var lastErr error
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * wait):
			}
			s.Logger.Debug("sync: retrying fetch",
				slog.String("id", id), slog.Int("attempt", attempt))
		}
		doc, err := s.Source.FetchMetadata(ctx, project, id)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
