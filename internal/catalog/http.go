package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/starford/raido/internal/apperr"
)

// DefaultCatalogURL is the published Earth Engine community catalog listing.
const DefaultCatalogURL = "https://raw.githubusercontent.com/samapriya/Earth-Engine-Datasets-List/master/gee_catalog.json"

// HTTPSource serves catalog metadata from a remote JSON listing. The listing
// is fetched once per process and cached in memory; FetchMetadata answers from
// that cache, so each sync run hits the network a bounded number of times.
type HTTPSource struct {
	url    string
	client *resty.Client
	logger *slog.Logger

	mu   sync.Mutex
	ids  []string
	docs map[string]*Document
}

// NewHTTPSource creates a source for the listing at url with a bounded request
// timeout and retry-with-backoff on transient failures.
func NewHTTPSource(url string, timeout time.Duration, retries int, logger *slog.Logger) *HTTPSource {
	if url == "" {
		url = DefaultCatalogURL
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	return &HTTPSource{url: url, client: client, logger: logger}
}

// ListDatasetIDs fetches (or reuses) the catalog listing and returns its ids
// in listing order.
func (s *HTTPSource) ListDatasetIDs(ctx context.Context, _ ProjectContext) ([]string, error) {
	if _, err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...), nil
}

// FetchMetadata returns the cached document for id.
func (s *HTTPSource) FetchMetadata(ctx context.Context, _ ProjectContext, id string) (*Document, error) {
	docs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[id]
	if !ok {
		return nil, apperr.Externalf("catalog", "dataset %s missing from listing", id)
	}
	return doc, nil
}

func (s *HTTPSource) load(ctx context.Context) (map[string]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs != nil {
		return s.docs, nil
	}

	s.logger.Info("catalog: fetching listing", slog.String("url", s.url))
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(s.url)
	if err != nil {
		return nil, apperr.External("catalog", fmt.Errorf("fetch listing: %w", err))
	}
	if resp.IsError() {
		return nil, apperr.Externalf("catalog", "listing returned status %d", resp.StatusCode())
	}

	var listing []*Document
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, apperr.External("catalog", fmt.Errorf("decode listing: %w", err))
	}

	docs := make(map[string]*Document, len(listing))
	ids := make([]string, 0, len(listing))
	for _, doc := range listing {
		// Entries without an id are kept in the enumeration so the syncer
		// can count them as skipped.
		if _, dup := docs[doc.ID]; !dup || doc.ID == "" {
			ids = append(ids, doc.ID)
		}
		docs[doc.ID] = doc
	}
	s.docs = docs
	s.ids = ids
	s.logger.Info("catalog: listing loaded", slog.Int("datasets", len(docs)))
	return docs, nil
}

// Invalidate drops the cached listing so the next call re-fetches it.
func (s *HTTPSource) Invalidate() {
	s.mu.Lock()
	s.docs = nil
	s.ids = nil
	s.mu.Unlock()
}
