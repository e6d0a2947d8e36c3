// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package batch

import "fmt"

// DatabaseError is returned when the catalog rejects a write.
// It aborts the run; parse failures never do.
type DatabaseError struct {
	Op   string // begin run, finish run, insert equilibrium, insert failure
	Path string // empty for run level operations
	Err  error
}

func (e *DatabaseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("database %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: database %s: %v", e.Path, e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
