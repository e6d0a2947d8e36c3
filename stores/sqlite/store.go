// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package store keeps a SQLite catalog of parsed G-EQDSK files.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore wraps a SQLite database connection for the catalog.
type SQLiteStore struct {
	db *sql.DB
}

// StoreConfig holds configuration for creating a SQLiteStore.
type StoreConfig struct {
	// Path is the file path for file-based SQLite.
	// If empty, an in-memory database is used.
	Path string

	// Create allows Open to create a missing database file.
	Create bool
}

// NewSQLiteStore creates a new in-memory SQLite store with schema loaded.
func NewSQLiteStore(ctx context.Context) (*SQLiteStore, error) {
	return Open(ctx, StoreConfig{})
}

// Open opens the catalog described by cfg and applies the schema.
// For file-based mode the database file must already exist unless
// cfg.Create is set.
func Open(ctx context.Context, cfg StoreConfig) (*SQLiteStore, error) {
	var dsn string
	if cfg.Path == "" {
		// every connection to :memory: is a separate database, so the pool
		// is limited to one connection below
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if _, err := os.Stat(cfg.Path); os.IsNotExist(err) && !cfg.Create {
			return nil, fmt.Errorf("database file does not exist: %s", cfg.Path)
		}
		// Apply PRAGMA's per-connection via DSN so the pool always has them.
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_txlock=immediate",
			cfg.Path,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Path == "" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// TableStats returns the number of rows in each catalog table.
func (s *SQLiteStore) TableStats(ctx context.Context) (map[string]int, error) {
	stats := map[string]int{}
	for _, table := range []string{"runs", "equilibria", "arrays", "failures"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// Digest returns the catalog key for the raw bytes of a file.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
