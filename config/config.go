// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config loads the settings file for the eqdsk command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/mdhender/eqdsk"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the in-memory representation of the settings file.
type Config struct {
	Reader   ReaderConfig `yaml:"reader"`
	Database string       `yaml:"database,omitempty"` // catalog file; empty means in-memory
	Workers  int          `yaml:"workers,omitempty"`  // parallel parses during ingest
}

// ReaderConfig holds the parser options.
type ReaderConfig struct {
	Tokenizer         string `yaml:"tokenizer"`                     // auto, fixed or whitespace
	AllowTrailingData bool   `yaml:"allow_trailing_data,omitempty"` // keep data after the limiter block
	MaxGrid           int    `yaml:"max_grid,omitempty"`            // upper bound on nw*nh
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			Tokenizer: "auto",
			MaxGrid:   eqdsk.DefaultMaxGrid,
		},
		Workers: runtime.NumCPU(),
	}
}

// Load reads the YAML file at path on fs. Keys that are missing keep
// their defaults; unknown keys are an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save marshals cfg and writes it to path on fs.
func Save(fs afero.Fs, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that the reader and the pipeline would reject later.
func (c *Config) Validate() error {
	if _, err := eqdsk.TokenizerByName(c.Reader.Tokenizer); err != nil {
		return fmt.Errorf("reader: %w", err)
	}
	if c.Reader.MaxGrid < 0 {
		return fmt.Errorf("reader: max_grid must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Options converts the reader settings into parser options.
func (c *Config) Options() ([]eqdsk.Option, error) {
	tokenizer, err := eqdsk.TokenizerByName(c.Reader.Tokenizer)
	if err != nil {
		return nil, err
	}
	opts := []eqdsk.Option{
		eqdsk.WithTokenizer(tokenizer),
		eqdsk.WithTrailingData(c.Reader.AllowTrailingData),
	}
	if c.Reader.MaxGrid > 0 {
		opts = append(opts, eqdsk.WithMaxGrid(c.Reader.MaxGrid))
	}
	return opts, nil
}
