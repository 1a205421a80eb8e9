package store

// MetadataStore defines the store operations consumed by the sync, search,
// and export layers.
type MetadataStore interface {
	UpsertBatch(recs []DatasetRecord) error
	GetDataset(id string) (*DatasetRecord, error)
	ListTags() ([]Tag, error)
	Search(p SearchParams) (*SearchResult, error)
	CountDatasets() (int, error)
	Close() error
}

// Verify *DB satisfies MetadataStore at compile time.
var _ MetadataStore = (*DB)(nil)
