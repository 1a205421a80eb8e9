package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
)

// UpsertBatch writes a batch of dataset records as one transaction: either the
// whole batch is visible or none of it is. Existing rows are matched by id;
// created_at is preserved, updated_at refreshed. Bands and tag associations
// are replaced wholesale; tag rows themselves are created on demand and never
// deleted here.
func (db *DB) UpsertBatch(recs []DatasetRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for i := range recs {
		if err := upsertDataset(tx, &recs[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertDataset(tx *sql.Tx, rec *DatasetRecord) error {
	_, err := tx.Exec(`
		INSERT INTO datasets (
			id, title, description, provider,
			start_date, end_date, temporal_resolution, update_frequency,
			spatial_resolution, spatial_coverage, coordinate_system,
			asset_url, thumbnail_url, visualization_url, sample_url,
			citation, license, terms_url, docs_url,
			keywords, family_name, doi,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title               = excluded.title,
			description         = excluded.description,
			provider            = excluded.provider,
			start_date          = excluded.start_date,
			end_date            = excluded.end_date,
			temporal_resolution = excluded.temporal_resolution,
			update_frequency    = excluded.update_frequency,
			spatial_resolution  = excluded.spatial_resolution,
			spatial_coverage    = excluded.spatial_coverage,
			coordinate_system   = excluded.coordinate_system,
			asset_url           = excluded.asset_url,
			thumbnail_url       = excluded.thumbnail_url,
			visualization_url   = excluded.visualization_url,
			sample_url          = excluded.sample_url,
			citation            = excluded.citation,
			license             = excluded.license,
			terms_url           = excluded.terms_url,
			docs_url            = excluded.docs_url,
			keywords            = excluded.keywords,
			family_name         = excluded.family_name,
			doi                 = excluded.doi,
			updated_at          = CURRENT_TIMESTAMP
	`,
		rec.ID, rec.Title, rec.Description, rec.Provider,
		rec.StartDate, rec.EndDate, rec.TemporalResolution, rec.UpdateFrequency,
		rec.SpatialResolution, rec.SpatialCoverage, rec.CoordinateSystem,
		rec.AssetURL, rec.ThumbnailURL, rec.VisualizationURL, rec.SampleURL,
		rec.Citation, rec.License, rec.TermsURL, rec.DocsURL,
		rec.Keywords, rec.FamilyName, rec.DOI,
	)
	if err != nil {
		return fmt.Errorf("store: upsert dataset %s: %w", rec.ID, err)
	}

	// Replace bands: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM bands WHERE dataset_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("store: clear bands for %s: %w", rec.ID, err)
	}
	if len(rec.Bands) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO bands (dataset_id, name, description, units, data_type, min_value, max_value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare band insert: %w", err)
		}
		for _, b := range rec.Bands {
			if _, err := stmt.Exec(rec.ID, b.Name, b.Description, b.Units, b.DataType, b.MinValue, b.MaxValue); err != nil {
				stmt.Close()
				return fmt.Errorf("store: insert band %s/%s: %w", rec.ID, b.Name, err)
			}
		}
		stmt.Close()
	}

	// Reset tag associations. Tag rows are shared taxonomy and stay around
	// even when their last dataset reference goes away.
	if _, err := tx.Exec(`DELETE FROM dataset_tags WHERE dataset_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("store: clear tags for %s: %w", rec.ID, err)
	}
	for _, name := range rec.Tags {
		if name == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("store: ensure tag %q: %w", name, err)
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO dataset_tags (dataset_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`, rec.ID, name); err != nil {
			return fmt.Errorf("store: associate tag %q with %s: %w", name, rec.ID, err)
		}
	}
	return nil
}

const datasetColumns = `
	id, title, description, provider,
	start_date, end_date, temporal_resolution, update_frequency,
	spatial_resolution, spatial_coverage, coordinate_system,
	asset_url, thumbnail_url, visualization_url, sample_url,
	citation, license, terms_url, docs_url,
	keywords, family_name, doi,
	created_at, updated_at`

func scanDataset(row interface{ Scan(...any) error }) (*DatasetRecord, error) {
	var d DatasetRecord
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Provider,
		&d.StartDate, &d.EndDate, &d.TemporalResolution, &d.UpdateFrequency,
		&d.SpatialResolution, &d.SpatialCoverage, &d.CoordinateSystem,
		&d.AssetURL, &d.ThumbnailURL, &d.VisualizationURL, &d.SampleURL,
		&d.Citation, &d.License, &d.TermsURL, &d.DocsURL,
		&d.Keywords, &d.FamilyName, &d.DOI,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDataset returns one dataset with its bands and tags, or apperr.ErrNotFound.
func (db *DB) GetDataset(id string) (*DatasetRecord, error) {
	row := db.conn.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: dataset %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get dataset %s: %w", id, err)
	}
	if d.Bands, err = db.datasetBands(id); err != nil {
		return nil, err
	}
	if d.Tags, err = db.datasetTags(id); err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) datasetBands(id string) ([]Band, error) {
	rows, err := db.conn.Query(`
		SELECT name, description, units, data_type, min_value, max_value
		FROM bands WHERE dataset_id = ? ORDER BY name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: bands for %s: %w", id, err)
	}
	defer rows.Close()

	bands := []Band{}
	for rows.Next() {
		var b Band
		if err := rows.Scan(&b.Name, &b.Description, &b.Units, &b.DataType, &b.MinValue, &b.MaxValue); err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

func (db *DB) datasetTags(id string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT t.name FROM tags t
		JOIN dataset_tags dt ON dt.tag_id = t.id
		WHERE dt.dataset_id = ? ORDER BY t.name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: tags for %s: %w", id, err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// ListTags returns the whole tag vocabulary ordered by name.
func (db *DB) ListTags() ([]Tag, error) {
	rows, err := db.conn.Query(`SELECT name, description, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountDatasets returns the total number of dataset rows.
func (db *DB) CountDatasets() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM datasets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count datasets: %w", err)
	}
	return n, nil
}
