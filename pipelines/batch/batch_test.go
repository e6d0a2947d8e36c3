// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package batch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mdhender/eqdsk"
	"github.com/mdhender/eqdsk/pipelines/batch"
	store "github.com/mdhender/eqdsk/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render writes a small, valid file whose values depend on seed.
func render(t *testing.T, seed float64) []byte {
	t.Helper()
	nw, nh := 4, 3
	c := &eqdsk.Content{
		CaseID: fmt.Sprintf("BATCH %g", seed), Nw: nw, Nh: nh,
		Rdim: 1, Zdim: 2, Rcentr: 1.5, Rleft: 1, Rmaxis: 1.5,
		Simag: seed, Sibry: seed + 1, Bcentr: 2, Current: 1e6,
		Nbbbs: 2, Limitr: 1,
		Fpol: make([]float64, nw), Pres: make([]float64, nw),
		FFprim: make([]float64, nw), Pprime: make([]float64, nw), Qpsi: make([]float64, nw),
		Rbbbs: []float64{1, 2}, Zbbbs: []float64{-1, 1},
		Rlim: []float64{0.5}, Zlim: []float64{0},
	}
	c.Psirz = make([][]float64, nw)
	for i := range c.Psirz {
		c.Psirz[i] = make([]float64, nh)
		for j := range c.Psirz[i] {
			c.Psirz[i][j] = seed + float64(i*nh+j)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, eqdsk.Write(&buf, c))
	return buf.Bytes()
}

func testFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	good := render(t, 1)
	files := map[string][]byte{
		"/shots/g141459.03000":      good,
		"/shots/g141459.03100":      render(t, 2),
		"/shots/copy.geqdsk":        good,
		"/shots/broken.eqdsk":       good[:bytes.LastIndexByte(good[:len(good)/2], '\n')+1],
		"/shots/notes.txt":          []byte("not an equilibrium"),
		"/shots/.cache/g000001.001": good,
		"/shots/sub/run.gfile":      render(t, 3),
	}
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, data, 0o644))
	}
	return fs
}

func TestIsCandidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"g141459.03000", true},
		{"g1.2", true},
		{"shot.geqdsk", true},
		{"SHOT.EQDSK", true},
		{"x.gfile", true},
		{"g141459", false},
		{"gfile.txt", false},
		{"a141459.03000", false},
	} {
		assert.Equal(t, tc.want, batch.IsCandidate(tc.name), tc.name)
	}
}

func TestService_Collect(t *testing.T) {
	svc := batch.NewService(nil, 2, nil)
	svc.SetFS(testFS(t))

	paths, err := svc.Collect("/shots", "/shots/notes.txt", "/shots/copy.geqdsk")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/shots/broken.eqdsk",
		"/shots/copy.geqdsk",
		"/shots/g141459.03000",
		"/shots/g141459.03100",
		"/shots/notes.txt",
		"/shots/sub/run.gfile",
	}, paths)

	_, err = svc.Collect("/missing")
	var ioErr *eqdsk.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "stat", ioErr.Op)
}

func TestService_Run_WithoutStore(t *testing.T) {
	svc := batch.NewService(nil, 3, nil)
	svc.SetFS(testFS(t))

	paths := []string{"/shots/g141459.03000", "/shots/broken.eqdsk", "/shots/missing.geqdsk"}
	rpt, err := svc.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, rpt.Results, 3)
	assert.NotEmpty(t, rpt.RunID)
	assert.Equal(t, 2, rpt.Failed)

	ok := rpt.Results[0]
	assert.Equal(t, paths[0], ok.Path)
	require.NoError(t, ok.Err)
	require.NotNil(t, ok.Content)
	assert.Equal(t, 4, ok.Content.Nw)
	assert.Zero(t, ok.ID)

	assert.ErrorIs(t, rpt.Results[1].Err, eqdsk.ErrTruncated)
	assert.Equal(t, eqdsk.ErrCodeTrunc, rpt.Results[1].ErrorCode)
	assert.Nil(t, rpt.Results[1].Content)

	var ioErr *eqdsk.IOError
	assert.True(t, errors.As(rpt.Results[2].Err, &ioErr))
	assert.Equal(t, eqdsk.ErrCodeIO, rpt.Results[2].ErrorCode)
}

func TestService_Run_WithStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx)
	require.NoError(t, err)
	defer st.Close()

	svc := batch.NewService(st, 4, nil)
	svc.SetFS(testFS(t))
	paths, err := svc.Collect("/shots")
	require.NoError(t, err)

	rpt, err := svc.Run(ctx, paths)
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.Failed)

	// copy.geqdsk and g141459.03000 hold the same bytes
	byPath := map[string]*batch.Result{}
	for _, res := range rpt.Results {
		byPath[res.Path] = res
	}
	a, b := byPath["/shots/copy.geqdsk"], byPath["/shots/g141459.03000"]
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.Duplicate != b.Duplicate, "exactly one copy is a duplicate")

	list, err := st.ListEquilibria(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, sum := range list {
		assert.Equal(t, rpt.RunID, sum.RunID)
	}

	failures, err := st.ListFailures(ctx, rpt.RunID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "/shots/broken.eqdsk", failures[0].Name)
	assert.Equal(t, eqdsk.ErrCodeTrunc, failures[0].ErrorCode)
}

func TestService_Run_Canceled(t *testing.T) {
	svc := batch.NewService(nil, 1, nil)
	svc.SetFS(testFS(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, []string{"/shots/g141459.03000"})
	assert.ErrorIs(t, err, context.Canceled)
}

// options given to the service reach the parser
func TestService_Run_Options(t *testing.T) {
	svc := batch.NewService(nil, 1, nil, eqdsk.WithMaxGrid(4))
	svc.SetFS(testFS(t))

	rpt, err := svc.Run(context.Background(), []string{"/shots/g141459.03000"})
	require.NoError(t, err)
	assert.ErrorIs(t, rpt.Results[0].Err, eqdsk.ErrBadDimension)
}

// brokenStore accepts runs but fails every insert.
type brokenStore struct{}

func (brokenStore) BeginRun(context.Context, string, time.Time) error { return nil }

func (brokenStore) FinishRun(context.Context, string, int, int, time.Time) error { return nil }

func (brokenStore) InsertEquilibrium(context.Context, *store.Equilibrium) (int64, bool, error) {
	return 0, false, errors.New("disk full")
}

func (brokenStore) InsertFailure(context.Context, *store.Failure) (int64, error) {
	return 0, errors.New("disk full")
}

func TestService_Run_DatabaseError(t *testing.T) {
	svc := batch.NewService(brokenStore{}, 2, nil)
	svc.SetFS(testFS(t))

	_, err := svc.Run(context.Background(), []string{"/shots/g141459.03000"})
	var dbErr *batch.DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "insert equilibrium", dbErr.Op)
	assert.Equal(t, "/shots/g141459.03000", dbErr.Path)
	assert.EqualError(t, err, "/shots/g141459.03000: database insert equilibrium: disk full")
}
