// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"errors"
	"strconv"
)

var (
	errEmptyNumber  = errors.New("empty number")
	errNotANumber   = errors.New("not a number")
	errNumberRange  = errors.New("number out of range")
	errNotAnInteger = errors.New("not an integer")
	errIntegerRange = errors.New("integer out of range")
)

// parseFloat converts a Fortran real literal.
//
// Accepted exponent markers are E, e, D and d. Fortran writes three digit
// exponents without the marker ("1.0-100"), so a sign that follows a digit
// is treated as the start of the exponent. Inf and NaN are rejected.
func parseFloat(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, errEmptyNumber
	}
	buf := make([]byte, 0, len(b)+1)
	sawDigit, sawExp := false, false
	for i, ch := range b {
		switch {
		case isdigit(ch):
			sawDigit = true
			buf = append(buf, ch)
		case ch == '.':
			if sawExp {
				return 0, errNotANumber
			}
			buf = append(buf, ch)
		case ch == 'E' || ch == 'e' || ch == 'D' || ch == 'd':
			if sawExp || !sawDigit {
				return 0, errNotANumber
			}
			sawExp = true
			buf = append(buf, 'E')
		case ch == '+' || ch == '-':
			if i == 0 {
				buf = append(buf, ch)
			} else if prev := b[i-1]; prev == 'E' || prev == 'e' || prev == 'D' || prev == 'd' {
				buf = append(buf, ch)
			} else if !sawExp && (isdigit(prev) || prev == '.') {
				sawExp = true
				buf = append(buf, 'E', ch)
			} else {
				return 0, errNotANumber
			}
		default:
			return 0, errNotANumber
		}
	}
	if !sawDigit {
		return 0, errNotANumber
	}
	f, err := strconv.ParseFloat(string(buf), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errNumberRange
		}
		return 0, errNotANumber
	}
	return f, nil
}

// parseInt converts a Fortran integer literal.
func parseInt(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errEmptyNumber
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errIntegerRange
		}
		return 0, errNotAnInteger
	}
	return n, nil
}
