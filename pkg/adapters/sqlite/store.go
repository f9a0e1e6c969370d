// Package sqlite provides a ports.EntryStore backed by an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"

	_ "modernc.org/sqlite"
)

// Ensure Store implements EntryStore
var _ ports.EntryStore = (*Store)(nil)

// Store keeps entries in a single table. expires_at holds Unix milliseconds;
// zero means the entry never expires.
type Store struct {
	db    *sql.DB
	owned bool
	clock func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used to hide expired entries.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database handle and prepares the schema.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to init sqlite entry store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS entries_expires_at ON entries (expires_at);`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Put upserts the entry inside a transaction.
func (s *Store) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO entries (key, data, expires_at, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at, updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, query, key, data, millis(expiresAt), s.clock().UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return tx.Commit()
}

// Get returns the entry, hiding expired rows.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM entries WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`
	var data []byte
	err := s.db.QueryRowContext(ctx, query, key, s.clock().UnixMilli()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// List returns unexpired keys ordered by last update.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := `SELECT key FROM entries WHERE expires_at = 0 OR expires_at > ? ORDER BY updated_at, key`
	rows, err := s.db.QueryContext(ctx, query, s.clock().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE expires_at != 0 AND expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
