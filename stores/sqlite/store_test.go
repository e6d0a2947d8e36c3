// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdhender/eqdsk"
	store "github.com/mdhender/eqdsk/stores/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture parses a small generated file so that the content has every
// field populated the way the reader populates it.
func fixture(t *testing.T, nw, nh, nbbbs, limitr int) ([]byte, *eqdsk.Content) {
	t.Helper()
	c := &eqdsk.Content{
		CaseID: "CATALOG TEST", Idum: 3, Nw: nw, Nh: nh,
		Rdim: 1.5, Zdim: 3, Rcentr: 1.7, Rleft: 0.8, Zmid: 0.01,
		Rmaxis: 1.75, Zmaxis: -0.02, Simag: -0.4, Sibry: 0.1, Bcentr: -2.1, Current: 1.1e6,
		Nbbbs: nbbbs, Limitr: limitr,
	}
	fill := func(n int, base float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = base + float64(i)/8
		}
		return out
	}
	c.Fpol, c.Pres, c.FFprim, c.Pprime, c.Qpsi = fill(nw, -3.5), fill(nw, 1e4), fill(nw, -0.5), fill(nw, -1e4), fill(nw, 1)
	c.Rbbbs, c.Zbbbs, c.Rlim, c.Zlim = fill(nbbbs, 1), fill(nbbbs, -1), fill(limitr, 0.5), fill(limitr, -1.5)
	c.Psirz = make([][]float64, nw)
	for i := range c.Psirz {
		c.Psirz[i] = fill(nh, float64(i))
	}
	var buf bytes.Buffer
	require.NoError(t, eqdsk.Write(&buf, c))
	parsed, err := eqdsk.Parse("fixture", buf.Bytes())
	require.NoError(t, err)
	return buf.Bytes(), parsed
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(ctx)
	require.NoError(t, err)
	defer s.Close()

	data, c := fixture(t, 5, 4, 3, 0)
	id, dup, err := s.InsertEquilibrium(ctx, &store.Equilibrium{
		Name:      "g000001.01000",
		Digest:    store.Digest(data),
		Content:   c,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, dup)

	sum, got, err := s.GetEquilibrium(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "g000001.01000", sum.Name)
	assert.Equal(t, "CATALOG TEST", sum.CaseID)
	assert.Equal(t, "", sum.RunID)
	assert.Equal(t, c, got)

	missingSum, missing, err := s.GetEquilibrium(ctx, id+100)
	require.NoError(t, err)
	assert.Nil(t, missingSum)
	assert.Nil(t, missing)
}

func TestSQLiteStore_DuplicateDigest(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(ctx)
	require.NoError(t, err)
	defer s.Close()

	data, c := fixture(t, 3, 3, 1, 1)
	eq := &store.Equilibrium{Name: "first", Digest: store.Digest(data), Content: c, CreatedAt: time.Now()}
	first, dup, err := s.InsertEquilibrium(ctx, eq)
	require.NoError(t, err)
	require.False(t, dup)

	eq.Name = "second"
	second, dup, err := s.InsertEquilibrium(ctx, eq)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first, second)

	list, err := s.ListEquilibria(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Name)

	stats, err := s.TableStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["equilibria"])
	assert.Equal(t, 10, stats["arrays"])

	found, err := s.GetByDigest(ctx, store.Digest(data))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first, found.ID)

	notFound, err := s.GetByDigest(ctx, store.Digest([]byte("other")))
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestSQLiteStore_RejectsInvalidContent(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(ctx)
	require.NoError(t, err)
	defer s.Close()

	_, c := fixture(t, 2, 2, 0, 0)
	c.Qpsi = nil
	_, _, err = s.InsertEquilibrium(ctx, &store.Equilibrium{Name: "bad", Digest: "x", Content: c})
	assert.ErrorIs(t, err, eqdsk.ErrInvalid)
}

func TestSQLiteStore_RunsAndFailures(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(ctx)
	require.NoError(t, err)
	defer s.Close()

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.BeginRun(ctx, "run-1", started))
	_, err = s.InsertFailure(ctx, &store.Failure{
		RunID:     "run-1",
		Name:      "g-broken",
		ErrorCode: eqdsk.ErrCodeTrunc,
		ErrorMsg:  "g-broken: qpsi[3]: unexpected end of input",
		CreatedAt: started,
	})
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, "run-1", 4, 1, started.Add(time.Second)))
	assert.Error(t, s.FinishRun(ctx, "run-2", 0, 0, started))

	failures, err := s.ListFailures(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, eqdsk.ErrCodeTrunc, failures[0].ErrorCode)
	assert.Equal(t, started, failures[0].CreatedAt)
}

func TestOpen_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	_, err := store.Open(ctx, store.StoreConfig{Path: path})
	assert.Error(t, err, "missing file without Create")

	s, err := store.Open(ctx, store.StoreConfig{Path: path, Create: true})
	require.NoError(t, err)
	data, c := fixture(t, 2, 2, 0, 0)
	_, _, err = s.InsertEquilibrium(ctx, &store.Equilibrium{Name: "g", Digest: store.Digest(data), Content: c, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(ctx, store.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()
	list, err := s.ListEquilibria(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
