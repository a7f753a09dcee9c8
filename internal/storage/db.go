package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)

	// attempts reference runs; WAL lets the web server read history while a run writes
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}
	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS examples (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		blueprint TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		source TEXT,
		imported_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_examples_hash ON examples(content_hash);
	CREATE INDEX IF NOT EXISTS idx_examples_imported ON examples(imported_at);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		provider TEXT,
		state TEXT NOT NULL,
		page_id TEXT,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS attempts (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		n INTEGER NOT NULL,
		temperature REAL NOT NULL,
		top_p REAL NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		raw TEXT,
		started_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, n)
	);
	`

	_, err := d.db.Exec(schema)
	return err
}
