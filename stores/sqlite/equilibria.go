// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mdhender/eqdsk"
)

// Equilibrium is a parsed file on its way into the catalog.
type Equilibrium struct {
	RunID     string // optional
	Name      string // path or name of the source
	Digest    string // see Digest
	Content   *eqdsk.Content
	CreatedAt time.Time
}

// Summary is the catalog row for one equilibrium, without its arrays.
type Summary struct {
	ID        int64
	RunID     string
	Name      string
	Digest    string
	CaseID    string
	Nw, Nh    int
	Nbbbs     int
	Limitr    int
	Rmaxis    float64
	Zmaxis    float64
	Bcentr    float64
	Current   float64
	CreatedAt time.Time
}

// InsertEquilibrium stores eq and returns its assigned ID.
// If a file with the same digest is already in the catalog, the existing
// ID is returned with duplicate set and nothing is written.
func (s *SQLiteStore) InsertEquilibrium(ctx context.Context, eq *Equilibrium) (id int64, duplicate bool, err error) {
	c := eq.Content
	if err := c.Validate(); err != nil {
		return 0, false, fmt.Errorf("insert equilibrium: %w", err)
	}
	scalars, err := json.Marshal(c.Scalars)
	if err != nil {
		return 0, false, fmt.Errorf("insert equilibrium: scalars: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT id FROM equilibria WHERE digest = ?`, eq.Digest).Scan(&id)
	if err == nil {
		return id, true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("check duplicate: %w", err)
	}

	const query = `
		INSERT INTO equilibria (
			run_id, name, digest, case_id, idum,
			nw, nh, nbbbs, limitr,
			rdim, zdim, rcentr, rleft, zmid,
			rmaxis, zmaxis, simag, sibry, bcentr, current,
			scalars, trailer, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		nullString(eq.RunID),
		eq.Name,
		eq.Digest,
		c.CaseID,
		c.Idum,
		c.Nw, c.Nh, c.Nbbbs, c.Limitr,
		c.Rdim, c.Zdim, c.Rcentr, c.Rleft, c.Zmid,
		c.Rmaxis, c.Zmaxis, c.Simag, c.Sibry, c.Bcentr, c.Current,
		string(scalars),
		nullBytes(c.Trailer),
		eq.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert equilibrium: %w", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, false, fmt.Errorf("insert equilibrium: %w", err)
	}

	for _, a := range []struct {
		name   string
		values []float64
	}{
		{"fpol", c.Fpol},
		{"pres", c.Pres},
		{"ffprim", c.FFprim},
		{"pprime", c.Pprime},
		{"psirz", c.PsiFlat()},
		{"qpsi", c.Qpsi},
		{"rbbbs", c.Rbbbs},
		{"zbbbs", c.Zbbbs},
		{"rlim", c.Rlim},
		{"zlim", c.Zlim},
	} {
		data, err := json.Marshal(a.values)
		if err != nil {
			return 0, false, fmt.Errorf("insert %s: %w", a.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO arrays (equilibrium_id, name, data) VALUES (?, ?, ?)`,
			id, a.name, string(data),
		); err != nil {
			return 0, false, fmt.Errorf("insert %s: %w", a.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return id, false, nil
}

const summaryColumns = `
	id, run_id, name, digest, case_id, nw, nh, nbbbs, limitr,
	rmaxis, zmaxis, bcentr, current, created_at
`

// GetByDigest returns the summary for a digest, or nil if it is not in the catalog.
func (s *SQLiteStore) GetByDigest(ctx context.Context, digest string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM equilibria WHERE digest = ?`, digest)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get by digest: %w", err)
	}
	return sum, nil
}

// ListEquilibria returns every summary in insertion order.
func (s *SQLiteStore) ListEquilibria(ctx context.Context) ([]*Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM equilibria ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list equilibria: %w", err)
	}
	defer rows.Close()

	var list []*Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equilibrium: %w", err)
		}
		list = append(list, sum)
	}
	return list, rows.Err()
}

// GetEquilibrium rebuilds the full Content for id.
// It returns nil, nil, nil if id is not in the catalog.
func (s *SQLiteStore) GetEquilibrium(ctx context.Context, id int64) (*Summary, *eqdsk.Content, error) {
	const query = `
		SELECT idum, rdim, zdim, rcentr, rleft, zmid, simag, sibry, scalars, trailer
		FROM equilibria
		WHERE id = ?
	`
	sum, err := scanSummary(s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM equilibria WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, fmt.Errorf("get equilibrium: %w", err)
	}

	c := &eqdsk.Content{
		CaseID:  sum.CaseID,
		Nw:      sum.Nw,
		Nh:      sum.Nh,
		Nbbbs:   sum.Nbbbs,
		Limitr:  sum.Limitr,
		Rmaxis:  sum.Rmaxis,
		Zmaxis:  sum.Zmaxis,
		Bcentr:  sum.Bcentr,
		Current: sum.Current,
	}
	var scalars string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.Idum, &c.Rdim, &c.Zdim, &c.Rcentr, &c.Rleft, &c.Zmid, &c.Simag, &c.Sibry,
		&scalars, &c.Trailer,
	); err != nil {
		return nil, nil, fmt.Errorf("get equilibrium: %w", err)
	}
	if len(c.Trailer) == 0 {
		c.Trailer = nil
	}
	if err := json.Unmarshal([]byte(scalars), &c.Scalars); err != nil {
		return nil, nil, fmt.Errorf("get equilibrium: scalars: %w", err)
	}

	arrays, err := s.loadArrays(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c.Fpol, c.Pres, c.FFprim, c.Pprime = arrays["fpol"], arrays["pres"], arrays["ffprim"], arrays["pprime"]
	c.Qpsi = arrays["qpsi"]
	c.Rbbbs, c.Zbbbs, c.Rlim, c.Zlim = arrays["rbbbs"], arrays["zbbbs"], arrays["rlim"], arrays["zlim"]
	flat := arrays["psirz"]
	if len(flat) != c.Nw*c.Nh {
		return nil, nil, fmt.Errorf("get equilibrium %d: psirz has %d values, want %d", id, len(flat), c.Nw*c.Nh)
	}
	c.Psirz = make([][]float64, c.Nw)
	for i := range c.Psirz {
		c.Psirz[i] = make([]float64, c.Nh)
		for j := range c.Psirz[i] {
			c.Psirz[i][j] = flat[j*c.Nw+i]
		}
	}
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("get equilibrium %d: %w", id, err)
	}
	return sum, c, nil
}

func (s *SQLiteStore) loadArrays(ctx context.Context, id int64) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM arrays WHERE equilibrium_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load arrays: %w", err)
	}
	defer rows.Close()

	arrays := map[string][]float64{}
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("scan array: %w", err)
		}
		values := []float64{}
		if err := json.Unmarshal([]byte(data), &values); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		} else if values == nil {
			values = []float64{}
		}
		arrays[name] = values
	}
	return arrays, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*Summary, error) {
	var sum Summary
	var runID sql.NullString
	var createdAt string
	if err := row.Scan(
		&sum.ID,
		&runID,
		&sum.Name,
		&sum.Digest,
		&sum.CaseID,
		&sum.Nw,
		&sum.Nh,
		&sum.Nbbbs,
		&sum.Limitr,
		&sum.Rmaxis,
		&sum.Zmaxis,
		&sum.Bcentr,
		&sum.Current,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if runID.Valid {
		sum.RunID = runID.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		sum.CreatedAt = t
	}
	return &sum, nil
}
