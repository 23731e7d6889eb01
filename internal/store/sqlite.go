// Package store persists interaction logs, templates, targets and tags in an
// embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique record is added twice.
	ErrAlreadyExists = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS interaction_logs (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp        TEXT    NOT NULL,
	message_id       TEXT    NOT NULL,
	thread_id        TEXT    NOT NULL,
	username         TEXT    NOT NULL,
	original_message TEXT    NOT NULL,
	intent           TEXT    NOT NULL,
	suggestion       TEXT    NOT NULL,
	used_template    INTEGER NOT NULL DEFAULT 0,
	resolved         INTEGER NOT NULL DEFAULT 0,
	response_time    REAL,
	template_id      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_logs_thread_message ON interaction_logs(thread_id, message_id);
CREATE INDEX IF NOT EXISTS idx_logs_username ON interaction_logs(username);

CREATE TABLE IF NOT EXISTS templates (
	id      INTEGER PRIMARY KEY,
	intent  TEXT NOT NULL,
	title   TEXT NOT NULL,
	content TEXT NOT NULL,
	tags    TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_templates_intent ON templates(intent);

CREATE TABLE IF NOT EXISTS targets (
	username TEXT PRIMARY KEY,
	added_at TEXT NOT NULL,
	active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tags (
	name TEXT PRIMARY KEY
);
`

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps each transaction atomic
	// with respect to the others.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
