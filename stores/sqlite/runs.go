// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"
)

// Failure records a file that could not be parsed during a run.
type Failure struct {
	ID        int64
	RunID     string
	Name      string
	ErrorCode string
	ErrorMsg  string
	CreatedAt time.Time
}

// BeginRun inserts a run row.
func (s *SQLiteStore) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	const query = `INSERT INTO runs (id, started_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, runID, startedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, files, failed int, finishedAt time.Time) error {
	const query = `UPDATE runs SET finished_at = ?, files = ?, failed = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, finishedAt.UTC().Format(time.RFC3339), files, failed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("finish run: %w", err)
	} else if n != 1 {
		return fmt.Errorf("finish run: run %q not found", runID)
	}
	return nil
}

// InsertFailure inserts a Failure and returns its assigned ID.
func (s *SQLiteStore) InsertFailure(ctx context.Context, f *Failure) (int64, error) {
	const query = `
		INSERT INTO failures (run_id, name, error_code, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		nullString(f.RunID),
		f.Name,
		f.ErrorCode,
		f.ErrorMsg,
		f.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert failure: %w", err)
	}
	return result.LastInsertId()
}

// ListFailures returns the failures recorded for runID, oldest first.
func (s *SQLiteStore) ListFailures(ctx context.Context, runID string) ([]*Failure, error) {
	const query = `
		SELECT id, name, error_code, error_msg, created_at
		FROM failures
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var list []*Failure
	for rows.Next() {
		f := &Failure{RunID: runID}
		var createdAt string
		if err := rows.Scan(&f.ID, &f.Name, &f.ErrorCode, &f.ErrorMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			f.CreatedAt = t
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
