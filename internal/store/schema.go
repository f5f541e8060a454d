// Package store persists classification and evaluation runs in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    created_at TEXT NOT NULL,
    settings TEXT NOT NULL,
    documents INTEGER NOT NULL,
    sentences INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    violations INTEGER NOT NULL,
    elapsed_secs REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sentences (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    document_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    text TEXT,
    label TEXT NOT NULL,
    paragraph TEXT NOT NULL,
    source TEXT,
    rule TEXT,
    true_label TEXT
);

CREATE INDEX IF NOT EXISTS idx_sentences_run ON sentences(run_id);

CREATE TABLE IF NOT EXISTS evaluations (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    config TEXT NOT NULL,
    macro_precision REAL,
    macro_recall REAL,
    macro_f1 REAL,
    micro_precision REAL,
    micro_recall REAL,
    micro_f1 REAL,
    result TEXT NOT NULL
);
`

// Open opens the database at path, creating the file, its directory and the
// schema as needed
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}
