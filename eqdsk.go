// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package eqdsk reads and writes G-EQDSK files, the fixed-column text
// format that equilibrium codes such as EFIT use to describe tokamak
// plasma geometry and magnetic fields.
//
// Records are split into fields by a Tokenizer. The default, Auto, accepts
// whitespace separated values and falls back to the traditional 16 column
// fields when values touch. Fortran D exponents ("1.23D+02") and three
// digit exponents without a marker ("1.0-100") are read as real numbers.
package eqdsk

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 1,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}
