// Package index mirrors the flattened catalog into SQLite so searches can be
// answered without decoding the manifest.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// The *_fold columns hold search.Fold of the matching field so lookups use
// the exact case mapping of the in-memory search.
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS resources (
	position     INTEGER PRIMARY KEY,
	id           TEXT NOT NULL DEFAULT '',
	year         TEXT NOT NULL DEFAULT '',
	branch       TEXT NOT NULL DEFAULT '',
	subject      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL DEFAULT '',
	year_fold    TEXT NOT NULL DEFAULT '',
	branch_fold  TEXT NOT NULL DEFAULT '',
	subject_fold TEXT NOT NULL DEFAULT '',
	title_fold   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_resources_id ON resources(id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
