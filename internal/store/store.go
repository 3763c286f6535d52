// Package store provides the local key-value substrate: an embedded
// SQLite database holding one opaque value per key. Data-module contents
// and the encrypted credentials blob both live here; the store knows
// nothing about either shape.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Store is a SQLite-backed key-value store. Safe for concurrent use by
// virtue of database/sql connection pooling and single-statement writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt  *sql.Stmt
	putStmt  *sql.Stmt
	delStmt  *sql.Stmt
	keysStmt *sql.Stmt
}

// Open creates or opens the database at dbPath, applies pragmas and
// pending migrations, and prepares the statement set.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: applying %q: %w", p, err)
		}
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.prepare(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) prepare(ctx context.Context) error {
	var err error

	if s.getStmt, err = s.db.PrepareContext(ctx, `SELECT value FROM kv WHERE key = ?`); err != nil {
		return fmt.Errorf("store: preparing get: %w", err)
	}

	if s.putStmt, err = s.db.PrepareContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`); err != nil {
		return fmt.Errorf("store: preparing put: %w", err)
	}

	if s.delStmt, err = s.db.PrepareContext(ctx, `DELETE FROM kv WHERE key = ?`); err != nil {
		return fmt.Errorf("store: preparing delete: %w", err)
	}

	if s.keysStmt, err = s.db.PrepareContext(ctx, `SELECT key FROM kv ORDER BY key`); err != nil {
		return fmt.Errorf("store: preparing keys: %w", err)
	}

	return nil
}

// Get returns the value stored under key, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("store: reading %q: %w", key, err)
	}

	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.putStmt.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("store: writing %q: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.delStmt.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("store: deleting %q: %w", key, err)
	}

	return nil
}

// Keys returns all stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.keysStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string

	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("store: scanning key: %w", err)
		}

		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating keys: %w", err)
	}

	return keys, nil
}

// Path returns the directory containing the database file, for watchers.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "aiosync.db")
}

// Close releases prepared statements and closes the database.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.delStmt, s.keysStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}
