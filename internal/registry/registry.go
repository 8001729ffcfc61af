// Package registry keeps the office-file counter and the list of issued
// filenames in a local SQLite database.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("registry: not found")

// CounterWidth is the width of a formatted office-file number.
const CounterWidth = 9

// Entry is one issued filename.
type Entry struct {
	EncodedName  string
	Hash         string
	OriginalName string
	ArchivePath  string
	RecordedAt   time.Time
}

// Registry wraps the SQLite database.
type Registry struct {
	db     *sql.DB
	logger *slog.Logger
}

var schema = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA busy_timeout=5000;`,
	`CREATE TABLE IF NOT EXISTS counter (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		value INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS issued (
		id INTEGER PRIMARY KEY,
		encoded_name TEXT NOT NULL,
		hash TEXT NOT NULL,
		original_name TEXT NOT NULL,
		archive_path TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_issued_hash ON issued(hash);`,
}

// Open opens or creates the database at path. The counter starts at 1.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize registry: %w", err)
		}
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO counter (id, value, updated_at) VALUES (1, 1, ?)`,
		now())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed counter: %w", err)
	}

	logger.Debug("registry opened", "path", path)
	return &Registry{db: db, logger: logger.With("component", "registry")}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// FormatCounter renders n as a zero-padded office-file number.
func FormatCounter(n int64) string {
	return fmt.Sprintf("%0*d", CounterWidth, n)
}

// Current returns the next office-file number without consuming it.
func (r *Registry) Current(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT value FROM counter WHERE id = 1`).Scan(&n); err != nil {
		return "", fmt.Errorf("read counter: %w", err)
	}
	return FormatCounter(n), nil
}

// Increment advances the counter and returns the new value. It is called
// after a document carrying the current number has been submitted.
func (r *Registry) Increment(ctx context.Context) (string, error) {
	n, err := withTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE counter SET value = value + 1, updated_at = ? WHERE id = 1`, now()); err != nil {
			return 0, err
		}
		var n int64
		err := tx.QueryRowContext(ctx, `SELECT value FROM counter WHERE id = 1`).Scan(&n)
		return n, err
	})
	if err != nil {
		return "", fmt.Errorf("increment counter: %w", err)
	}
	r.logger.Debug("counter incremented", "value", n)
	return FormatCounter(n), nil
}

// Reserve returns the current number and advances the counter in one
// transaction, so concurrent callers never receive the same number.
func (r *Registry) Reserve(ctx context.Context) (string, error) {
	n, err := withTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		var n int64
		if err := tx.QueryRowContext(ctx, `SELECT value FROM counter WHERE id = 1`).Scan(&n); err != nil {
			return 0, err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE counter SET value = ?, updated_at = ? WHERE id = 1`, n+1, now())
		return n, err
	})
	if err != nil {
		return "", fmt.Errorf("reserve counter: %w", err)
	}
	r.logger.Debug("counter reserved", "value", n)
	return FormatCounter(n), nil
}

// Record stores an issued filename. A zero RecordedAt is set to now.
func (r *Registry) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO issued (encoded_name, hash, original_name, archive_path, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.EncodedName, e.Hash, e.OriginalName, e.ArchivePath, e.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s: %w", e.EncodedName, err)
	}
	r.logger.Debug("filename recorded", "name", e.EncodedName, "hash", e.Hash)
	return nil
}

// LookupHash returns the earliest entry recorded for hash, or ErrNotFound.
func (r *Registry) LookupHash(ctx context.Context, hash string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT encoded_name, hash, original_name, archive_path, recorded_at
		 FROM issued WHERE hash = ? ORDER BY id LIMIT 1`, hash)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", hash, err)
	}
	return e, nil
}

// Entries returns the most recent entries, newest first. limit <= 0 returns
// every entry.
func (r *Registry) Entries(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT encoded_name, hash, original_name, archive_path, recorded_at
		FROM issued ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var recorded string
	if err := s.Scan(&e.EncodedName, &e.Hash, &e.OriginalName, &e.ArchivePath, &recorded); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, recorded)
	if err != nil {
		return nil, err
	}
	e.RecordedAt = t
	return &e, nil
}

// withTx runs fn in a transaction, committing on success.
func withTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return result, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
