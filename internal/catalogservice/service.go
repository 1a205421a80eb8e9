package catalogservice

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/raido/internal/store"
)

// Service coordinates catalog reads for the API and MCP surfaces. Search
// results are cached per query until the next sync invalidates them.
type Service struct {
	store store.MetadataStore

	mu    sync.Mutex
	cache map[string]*store.SearchResult
}

// NewService creates a new catalog service.
func NewService(st store.MetadataStore) *Service {
	return &Service{store: st, cache: make(map[string]*store.SearchResult)}
}

// GetDataset returns the full record for one dataset.
func (s *Service) GetDataset(_ context.Context, id string) (*store.DatasetRecord, error) {
	return s.store.GetDataset(id)
}

// ListTags returns the full tag vocabulary.
func (s *Service) ListTags(_ context.Context) ([]store.Tag, error) {
	return s.store.ListTags()
}

// CountDatasets reports how many datasets are indexed.
func (s *Service) CountDatasets(_ context.Context) (int, error) {
	return s.store.CountDatasets()
}

// Search runs a catalog query, serving repeated queries from cache.
func (s *Service) Search(_ context.Context, params store.SearchParams) (*store.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	key := cacheKey(params)

	s.mu.Lock()
	if res, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	res, err := s.store.Search(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = res
	s.mu.Unlock()
	return res, nil
}

// InvalidateCache drops all cached search results. Wired to sync batch
// commits so readers never see pre-sync pages after new data lands.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cache = make(map[string]*store.SearchResult)
	s.mu.Unlock()
}

// cacheKey normalizes params so equivalent queries share a cache entry.
func cacheKey(p store.SearchParams) string {
	tags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(tags)

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(p.Query)))
	b.WriteByte('\x00')
	b.WriteString(strings.Join(tags, ","))
	b.WriteByte('\x00')
	b.WriteString(p.Sort)
	b.WriteByte('\x00')
	b.WriteString(strconv.Itoa(p.Page))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(p.PerPage))
	return b.String()
}
