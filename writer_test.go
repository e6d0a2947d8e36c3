// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mdhender/eqdsk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_Layout(t *testing.T) {
	c := sample(6, 2, 3, 0)
	var buf bytes.Buffer
	require.NoError(t, eqdsk.Write(&buf, c))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")

	assert.Len(t, lines[0], 60)
	assert.True(t, strings.HasPrefix(lines[0], "EFIT SAMPLE   #000001 1000ms"))
	assert.True(t, strings.HasSuffix(lines[0], "   3   6   2"))
	for _, line := range lines[1:5] {
		assert.Len(t, line, 80)
	}
	// fpol: 6 values, every array starts on its own record
	assert.Len(t, lines[5], 80)
	assert.Len(t, lines[6], 16)
	assert.Contains(t, lines, "    3    0")
	assert.Equal(t, "    3    0", lines[len(lines)-3])
}

func TestWrite_RoundTripIsStable(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, eqdsk.Write(&first, sample(5, 7, 4, 6)))
	c, err := eqdsk.Parse("first", first.Bytes())
	require.NoError(t, err)
	require.NoError(t, eqdsk.Write(&second, c))
	assert.Equal(t, first.String(), second.String())
}

func TestWrite_WideExponents(t *testing.T) {
	c := sample(2, 2, 0, 0)
	c.Rleft = -1.0e-100
	c.Current = 1.5e200
	var buf bytes.Buffer
	require.NoError(t, eqdsk.Write(&buf, c))
	got, err := eqdsk.Parse("wide", buf.Bytes(), eqdsk.WithTokenizer(eqdsk.FixedWidth{}))
	require.NoError(t, err)
	assert.InEpsilon(t, -1.0e-100, got.Rleft, 1e-8)
	assert.InEpsilon(t, 1.5e200, got.Current, 1e-8)
}

func TestWrite_Rejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(c *eqdsk.Content)
	}{
		{"short profile", func(c *eqdsk.Content) { c.Pres = c.Pres[:1] }},
		{"ragged psi", func(c *eqdsk.Content) { c.Psirz[1] = c.Psirz[1][:1] }},
		{"boundary mismatch", func(c *eqdsk.Content) { c.Nbbbs++ }},
		{"nan", func(c *eqdsk.Content) { c.Qpsi[0] = math.NaN() }},
		{"inf", func(c *eqdsk.Content) { c.Bcentr = math.Inf(-1) }},
		{"multi-line case", func(c *eqdsk.Content) { c.CaseID = "one\ntwo" }},
		{"wide header", func(c *eqdsk.Content) { c.Idum = 12345 }},
		{"long case", func(c *eqdsk.Content) { c.CaseID = strings.Repeat("X", 49) }},
		{"long multi-byte case", func(c *eqdsk.Content) { c.CaseID = strings.Repeat("É", 25) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := sample(2, 2, 1, 1)
			tc.mutate(c)
			err := eqdsk.Write(&bytes.Buffer{}, c)
			assert.ErrorIs(t, err, eqdsk.ErrInvalid)
			assert.Equal(t, eqdsk.ErrCodeInvalid, eqdsk.ErrorCode(err))
		})
	}
}

func TestWrite_CaseID(t *testing.T) {
	for _, tc := range []struct {
		name string
		id   string
		want string
	}{
		{"empty", "", ""},
		{"full width", strings.Repeat("X", 48), strings.Repeat("X", 48)},
		{"multi-byte", "ÉQUILIBRE", "ÉQUILIBRE"},
		{"multi-byte full width", strings.Repeat("É", 24), strings.Repeat("É", 24)},
		{"trailing blanks are dropped", "SHOT 1  \t", "SHOT 1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := sample(2, 2, 1, 1)
			c.CaseID = tc.id
			var buf bytes.Buffer
			require.NoError(t, eqdsk.Write(&buf, c))
			header, _, _ := strings.Cut(buf.String(), "\n")
			assert.Len(t, header, 60)
			assert.True(t, strings.HasSuffix(header, "   3   2   2"))
			for _, tokenizer := range []eqdsk.Tokenizer{eqdsk.Auto{}, eqdsk.FixedWidth{}} {
				got, err := eqdsk.Parse(tc.name, buf.Bytes(), eqdsk.WithTokenizer(tokenizer))
				require.NoError(t, err, tokenizer)
				assert.Equal(t, tc.want, got.CaseID, tokenizer)
				assert.Equal(t, 2, got.Nw, tokenizer)
			}
		})
	}
}

func TestContent_Grids(t *testing.T) {
	c := sample(5, 3, 0, 0)
	assert.Equal(t, []float64{0.75, 1.125, 1.5, 1.875, 2.25}, c.RGrid())
	assert.Equal(t, []float64{-1.5, 0, 1.5}, c.ZGrid())
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, c.PsiNormGrid())
	psi := c.PsiGrid()
	assert.Equal(t, c.Simag, psi[0])
	assert.Equal(t, c.Sibry, psi[len(psi)-1])

	one := sample(1, 1, 0, 0)
	assert.Equal(t, []float64{0.75}, one.RGrid())
}
