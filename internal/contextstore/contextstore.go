// Package contextstore persists the most recent retrieval context in a
// local SQLite database. Whenever the knowledge base is searched on
// behalf of a caller, the query and the retrieved context are recorded
// here so downstream consumers (the context endpoint, post-call
// analysis) can see what the retriever actually surfaced. The snapshot
// survives restarts.
package contextstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is one recorded retrieval snapshot.
type Entry struct {
	// Query is the caller's question as sent to the retriever.
	Query string
	// Context is the formatted context returned for the query. Empty when
	// retrieval found nothing relevant.
	Context string
	// HasContext reports whether retrieval surfaced any passages.
	HasContext bool
	// Timestamp is when the snapshot was recorded.
	Timestamp time.Time
}

// Store persists retrieval snapshots. Implementations must be safe for
// concurrent use.
type Store interface {
	// Set records a new snapshot, making it the latest.
	Set(ctx context.Context, query, contextText string) error
	// Latest returns the most recent snapshot, or nil when none exists
	// (fresh database or after Reset).
	Latest(ctx context.Context) (*Entry, error)
	// Reset deletes all recorded snapshots.
	Reset(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the context database.
// It resolves to ~/.voararag/context.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("contextstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".voararag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("contextstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "context.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("contextstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS retrieval_context (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    query       TEXT    NOT NULL,
    context     TEXT    NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_retrieval_context_created
    ON retrieval_context (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("contextstore: migrate: %w", err)
	}
	return nil
}

// Set records a new snapshot, making it the latest.
func (s *SQLiteStore) Set(ctx context.Context, query, contextText string) error {
	const q = `INSERT INTO retrieval_context (query, context, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, query, contextText, time.Now().Unix()); err != nil {
		return fmt.Errorf("contextstore: set: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when none exists.
func (s *SQLiteStore) Latest(ctx context.Context) (*Entry, error) {
	const q = `
SELECT query, context, created_at
FROM   retrieval_context
ORDER  BY created_at DESC, id DESC
LIMIT  1`

	var e Entry
	var ts int64
	err := s.db.QueryRowContext(ctx, q).Scan(&e.Query, &e.Context, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contextstore: latest: %w", err)
	}
	e.Timestamp = time.Unix(ts, 0)
	e.HasContext = e.Context != ""
	return &e, nil
}

// Reset deletes all recorded snapshots.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM retrieval_context`); err != nil {
		return fmt.Errorf("contextstore: reset: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
