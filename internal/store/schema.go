// Package store provides the SQLite-backed metadata store for the dataset catalog.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	provider            TEXT NOT NULL DEFAULT '',
	start_date          TEXT NOT NULL DEFAULT '',
	end_date            TEXT NOT NULL DEFAULT '',
	temporal_resolution TEXT NOT NULL DEFAULT '',
	update_frequency    TEXT NOT NULL DEFAULT '',
	spatial_resolution  TEXT NOT NULL DEFAULT '',
	spatial_coverage    TEXT NOT NULL DEFAULT '',
	coordinate_system   TEXT NOT NULL DEFAULT '',
	asset_url           TEXT NOT NULL DEFAULT '',
	thumbnail_url       TEXT NOT NULL DEFAULT '',
	visualization_url   TEXT NOT NULL DEFAULT '',
	sample_url          TEXT NOT NULL DEFAULT '',
	citation            TEXT NOT NULL DEFAULT '',
	license             TEXT NOT NULL DEFAULT '',
	terms_url           TEXT NOT NULL DEFAULT '',
	docs_url            TEXT NOT NULL DEFAULT '',
	keywords            TEXT NOT NULL DEFAULT '',
	family_name         TEXT NOT NULL DEFAULT '',
	doi                 TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bands (
	dataset_id  TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	units       TEXT NOT NULL DEFAULT '',
	data_type   TEXT NOT NULL DEFAULT '',
	min_value   REAL,
	max_value   REAL,
	UNIQUE(dataset_id, name)
);

CREATE TABLE IF NOT EXISTS tags (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dataset_tags (
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	tag_id     INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	UNIQUE(dataset_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_bands_dataset ON bands(dataset_id);
CREATE INDEX IF NOT EXISTS idx_dataset_tags_dataset ON dataset_tags(dataset_id);
CREATE INDEX IF NOT EXISTS idx_dataset_tags_tag ON dataset_tags(tag_id);
CREATE INDEX IF NOT EXISTS idx_datasets_title ON datasets(title);
CREATE INDEX IF NOT EXISTS idx_datasets_provider ON datasets(provider);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
