// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"fmt"
	"log/slog"
)

// DefaultMaxGrid bounds nw*nh, and each contour length, before anything is allocated.
const DefaultMaxGrid = 1 << 22

type Config struct {
	name          string
	tokenizer     Tokenizer
	logger        *slog.Logger
	allowTrailing bool
	maxGrid       int
}

type Option func(c *Config) error

func newConfig(name string, opts ...Option) (*Config, error) {
	c := &Config{
		name:      name,
		tokenizer: Auto{},
		maxGrid:   DefaultMaxGrid,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithName sets the name used in errors and log messages.
func WithName(name string) Option {
	return func(c *Config) error {
		c.name = name
		return nil
	}
}

// WithTokenizer selects how records are split into fields. The default is Auto.
func WithTokenizer(t Tokenizer) Option {
	return func(c *Config) error {
		if t == nil {
			return fmt.Errorf("tokenizer: must not be nil")
		}
		c.tokenizer = t
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithTrailingData accepts data after the limiter block and keeps it in
// Content.Trailer. Many EFIT producers append rotation and mass records there.
func WithTrailingData(flag bool) Option {
	return func(c *Config) error {
		c.allowTrailing = flag
		return nil
	}
}

func WithMaxGrid(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("max grid: must be positive, got %d", n)
		}
		c.maxGrid = n
		return nil
	}
}
