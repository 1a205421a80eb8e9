package store

import "time"

// DatasetRecord is one catalog dataset with its bands and tag names.
// ID is the external catalog identifier and the only identity: re-upserting
// the same ID updates the existing row.
type DatasetRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Provider    string `json:"provider"`

	// Temporal range, "YYYY-MM-DD" or empty when the source does not know it.
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	TemporalResolution string `json:"temporal_resolution"`
	UpdateFrequency    string `json:"update_frequency"`

	SpatialResolution string `json:"spatial_resolution"`
	SpatialCoverage   string `json:"spatial_coverage"`
	CoordinateSystem  string `json:"coordinate_system"`

	AssetURL         string `json:"asset_url"`
	ThumbnailURL     string `json:"thumbnail_url"`
	VisualizationURL string `json:"visualization_url"`
	SampleURL        string `json:"sample_url"`

	Citation string `json:"citation"`
	License  string `json:"license"`
	TermsURL string `json:"terms_url"`
	DocsURL  string `json:"docs_url"`

	Keywords   string `json:"keywords"`
	FamilyName string `json:"family_name"`
	DOI        string `json:"doi"`

	Bands []Band   `json:"bands"`
	Tags  []string `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Band is one named measurable variable within a dataset.
// (dataset, name) is the natural key.
type Band struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Units       string   `json:"units"`
	DataType    string   `json:"data_type"`
	MinValue    *float64 `json:"min_value,omitempty"`
	MaxValue    *float64 `json:"max_value,omitempty"`
}

// Tag is a shared taxonomy label with a lifecycle independent of datasets.
type Tag struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasBand reports whether the record carries a band with the given name.
func (d *DatasetRecord) HasBand(name string) bool {
	for _, b := range d.Bands {
		if b.Name == name {
			return true
		}
	}
	return false
}
