// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package config_test

import (
	"testing"

	"github.com/mdhender/eqdsk"
	"github.com/mdhender/eqdsk/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Overrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "eqdsk.yaml", []byte(`
reader:
  tokenizer: whitespace
  allow_trailing_data: true
database: catalog.db
workers: 3
`), 0o644))

	cfg, err := config.Load(fs, "eqdsk.yaml")
	require.NoError(t, err)
	assert.Equal(t, "whitespace", cfg.Reader.Tokenizer)
	assert.True(t, cfg.Reader.AllowTrailingData)
	assert.Equal(t, eqdsk.DefaultMaxGrid, cfg.Reader.MaxGrid, "missing keys keep defaults")
	assert.Equal(t, "catalog.db", cfg.Database)
	assert.Equal(t, 3, cfg.Workers)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "empty.yaml", nil, 0o644))

	cfg, err := config.Load(fs, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Rejects(t *testing.T) {
	fs := afero.NewMemMapFs()
	for name, text := range map[string]string{
		"unknown.yaml":   "reader:\n  columns: 16\n",
		"tokenizer.yaml": "reader:\n  tokenizer: columns\n",
		"workers.yaml":   "workers: -1\n",
		"syntax.yaml":    "reader: [\n",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(text), 0o644))
		_, err := config.Load(fs, name)
		assert.Errorf(t, err, "%s: expected error", name)
	}

	_, err := config.Load(fs, "missing.yaml")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	want := config.Default()
	want.Database = "g.db"
	want.Reader.Tokenizer = "fixed"
	require.NoError(t, config.Save(fs, "out.yaml", want))

	got, err := config.Load(fs, "out.yaml")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
