package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/starford/raido/internal/apperr"
)

// FileSource serves catalog metadata from a local snapshot of the listing
// (same JSON array shape as the remote catalog). The snapshot is re-read on
// every ListDatasetIDs call so a watcher-triggered re-sync sees fresh content.
type FileSource struct {
	path string
	docs map[string]*Document
	ids  []string
}

// NewFileSource creates a source reading the snapshot at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListDatasetIDs reads the snapshot and returns its ids in file order.
func (s *FileSource) ListDatasetIDs(_ context.Context, _ ProjectContext) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperr.External("catalog", fmt.Errorf("read snapshot %s: %w", s.path, err))
	}
	var listing []*Document
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, apperr.External("catalog", fmt.Errorf("decode snapshot %s: %w", s.path, err))
	}

	s.docs = make(map[string]*Document, len(listing))
	s.ids = s.ids[:0]
	for _, doc := range listing {
		// Entries without an id stay in the enumeration; the syncer skips
		// and counts them.
		if _, dup := s.docs[doc.ID]; !dup || doc.ID == "" {
			s.ids = append(s.ids, doc.ID)
		}
		s.docs[doc.ID] = doc
	}
	return append([]string(nil), s.ids...), nil
}

// FetchMetadata returns the document for id from the last snapshot read.
func (s *FileSource) FetchMetadata(_ context.Context, _ ProjectContext, id string) (*Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, apperr.Externalf("catalog", "dataset %s missing from snapshot", id)
	}
	return doc, nil
}
