package catalog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/raido/internal/store"
)

// Document is the loosely-typed metadata shape the external catalog publishes
// for one dataset. Field names follow the source JSON; anything the source
// omits stays at its zero value.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Provider    string `json:"provider"`

	// Tags is a comma-separated list in the source.
	Tags string `json:"tags"`

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

	Citation         string `json:"citation"`
	License          string `json:"license"`
	TermsOfUse       string `json:"terms_of_use"`
	DocumentationURL string `json:"documentation_url"`

	Keywords   string `json:"keywords"`
	FamilyName string `json:"family_name"`
	DOI        string `json:"doi"`

	Bands []BandDocument `json:"bands"`
}

// BandDocument is the source shape of one band entry.
type BandDocument struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Units       string   `json:"units"`
	DataType    string   `json:"data_type"`
	MinValue    *float64 `json:"min_value"`
	MaxValue    *float64 `json:"max_value"`
}

const dateLayout = "2006-01-02"

// MapDocument converts a source document into a store record. This is the
// single missing-field policy: absent source fields map to empty/null, never
// to synthesized values. Unparsable dates and inverted ranges are dropped to
// empty with a warning rather than stored as-is.
func MapDocument(doc *Document, logger *slog.Logger) store.DatasetRecord {
	rec := store.DatasetRecord{
		ID:                 strings.TrimSpace(doc.ID),
		Title:              doc.Title,
		Description:        doc.Description,
		Provider:           doc.Provider,
		StartDate:          normalizeDate(doc.StartDate, doc.ID, "start_date", logger),
		EndDate:            normalizeDate(doc.EndDate, doc.ID, "end_date", logger),
		TemporalResolution: doc.TemporalResolution,
		UpdateFrequency:    doc.UpdateFrequency,
		SpatialResolution:  doc.SpatialResolution,
		SpatialCoverage:    doc.SpatialCoverage,
		CoordinateSystem:   doc.CoordinateSystem,
		AssetURL:           doc.AssetURL,
		ThumbnailURL:       doc.ThumbnailURL,
		VisualizationURL:   doc.VisualizationURL,
		SampleURL:          doc.SampleURL,
		Citation:           doc.Citation,
		License:            doc.License,
		TermsURL:           doc.TermsOfUse,
		DocsURL:            doc.DocumentationURL,
		Keywords:           doc.Keywords,
		FamilyName:         doc.FamilyName,
		DOI:                doc.DOI,
		Tags:               splitTags(doc.Tags),
		Bands:              mapBands(doc, logger),
	}

	if rec.StartDate != "" && rec.EndDate != "" && rec.StartDate > rec.EndDate {
		logger.Warn("catalog: inverted temporal range dropped",
			slog.String("id", rec.ID),
			slog.String("start_date", rec.StartDate),
			slog.String("end_date", rec.EndDate))
		rec.StartDate, rec.EndDate = "", ""
	}
	return rec
}

func mapBands(doc *Document, logger *slog.Logger) []store.Band {
	bands := make([]store.Band, 0, len(doc.Bands))
	seen := make(map[string]struct{}, len(doc.Bands))
	for _, b := range doc.Bands {
		name := strings.TrimSpace(b.ID)
		if name == "" {
			logger.Warn("catalog: unnamed band dropped", slog.String("id", doc.ID))
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		band := store.Band{
			Name:        name,
			Description: b.Description,
			Units:       b.Units,
			DataType:    b.DataType,
			MinValue:    b.MinValue,
			MaxValue:    b.MaxValue,
		}
		if band.MinValue != nil && band.MaxValue != nil && *band.MinValue > *band.MaxValue {
			logger.Warn("catalog: inverted band range dropped",
				slog.String("id", doc.ID), slog.String("band", name))
			band.MinValue, band.MaxValue = nil, nil
		}
		bands = append(bands, band)
	}
	return bands
}

// normalizeDate keeps only dates the source expresses as YYYY-MM-DD.
func normalizeDate(raw, id, field string, logger *slog.Logger) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		logger.Warn("catalog: unparsable date dropped",
			slog.String("id", id), slog.String("field", field), slog.String("value", raw))
		return ""
	}
	return raw
}

// splitTags splits the source's comma-separated tag list, trimming and
// deduplicating entries.
func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
