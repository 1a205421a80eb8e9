// Package catalog reconciles the metadata store with an external dataset catalog.
package catalog

import "context"

// ProjectContext is the opaque project/credential context for the external
// catalog. Sync passes it through to the Source untouched; it is never ambient
// process state.
type ProjectContext struct {
	ProjectID string
	Token     string
}

// Source enumerates the external catalog and serves per-dataset metadata.
type Source interface {
	// ListDatasetIDs returns every dataset identifier the catalog knows about.
	ListDatasetIDs(ctx context.Context, project ProjectContext) ([]string, error)
	// FetchMetadata returns the metadata document for one dataset id.
	FetchMetadata(ctx context.Context, project ProjectContext, id string) (*Document, error)
}
