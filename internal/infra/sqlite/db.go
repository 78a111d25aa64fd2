// Package sqlite provides the durable document store backed by SQLite
// (modernc.org/sqlite, pure Go). Each store persists its whole state as a
// single versioned document keyed by (scope, kind).
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "pocket.db"

// DB wraps the SQLite connection.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database inside dir and applies migrations.
func Open(dir string) (*DB, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Single writer: every store already serializes its own load-mutate-persist.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{db: sqlDB, path: path}
	if err := db.initPragmas(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes the database.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		// FULL: a mutation is not reported successful until it is on disk.
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// One row per store per isolation scope.
		`CREATE TABLE IF NOT EXISTS documents (
			scope      TEXT NOT NULL,
			kind       TEXT NOT NULL,
			version    INTEGER NOT NULL DEFAULT 1,
			body       BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (scope, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
