// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"errors"
	"fmt"
)

// Causes carried by FormatError. Test with errors.Is.
var (
	ErrBadHeader    = errors.New("malformed header")
	ErrBadNumber    = errors.New("malformed number")
	ErrBadDimension = errors.New("invalid dimension")
	ErrTruncated    = errors.New("unexpected end of input")
	ErrExtraValues  = errors.New("unexpected values")
	ErrTrailingData = errors.New("unexpected data after limiter")
	ErrInvalid      = errors.New("invalid content")
)

// IOError is returned when the input file or stream cannot be opened or read.
type IOError struct {
	Op   string // open, read, stat
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError is returned when the input does not match the G-EQDSK layout.
type FormatError struct {
	Name     string // name of the input source
	Span     Span   // where in the input it occurred
	Field    string // "nw", "psirz[12]", ...
	Expected string // "integer", "5 values", ...
	Found    string // the offending lexeme, or a description
	Err      error  // one of the Err* causes
}

func (e *FormatError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Expected != "" {
		msg = fmt.Sprintf("%s: expected %s, found %s", msg, e.Expected, e.Found)
	} else if e.Found != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Found)
	}
	if e.Span.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Span.Line, e.Span.Column, msg)
	}
	return fmt.Sprintf("%s: %s", e.Name, msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Error code constants for the catalog and the command line.
const (
	ErrCodeIO       = "IO"
	ErrCodeHeader   = "BAD_HEADER"
	ErrCodeNumber   = "BAD_NUMBER"
	ErrCodeDim      = "BAD_DIMENSION"
	ErrCodeTrunc    = "TRUNCATED"
	ErrCodeExtra    = "EXTRA_VALUES"
	ErrCodeTrailing = "TRAILING_DATA"
	ErrCodeInvalid  = "INVALID"
	ErrCodeUnknown  = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ErrCodeIO
	}
	switch {
	case errors.Is(err, ErrBadHeader):
		return ErrCodeHeader
	case errors.Is(err, ErrBadNumber):
		return ErrCodeNumber
	case errors.Is(err, ErrBadDimension):
		return ErrCodeDim
	case errors.Is(err, ErrTruncated):
		return ErrCodeTrunc
	case errors.Is(err, ErrExtraValues):
		return ErrCodeExtra
	case errors.Is(err, ErrTrailingData):
		return ErrCodeTrailing
	case errors.Is(err, ErrInvalid):
		return ErrCodeInvalid
	}
	return ErrCodeUnknown
}
