// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

const (
	// CR and LF are control characters, respectively coded 0x0D (13 decimal) and 0x0A (10 decimal).
	// Windows uses CR + LF, Unix/Mac uses LF, Classic Mac uses CR.
	// This package doesn't support Classic Mac, so stray CR characters are treated as spaces.

	// CR is 0x0D or '\r'
	CR byte = 13

	// LF is 0x0A or '\n'
	LF byte = 10
)

func init() {
	for _, ch := range []byte{' ', '\t', '\r', '\v', '\f', 0} {
		spaces[ch] = true
	}
	for _, ch := range []byte("0123456789") {
		digits[ch] = true
	}
}

var (
	spaces = [256]bool{}
	digits = [256]bool{}
)

// isspace reports whether ch is a field separator. LF is never a space.
func isspace(ch byte) bool {
	return spaces[ch]
}

func isdigit(ch byte) bool {
	return digits[ch]
}

// isblank reports whether b holds nothing but spaces.
func isblank(b []byte) bool {
	for _, ch := range b {
		if !isspace(ch) {
			return false
		}
	}
	return true
}
