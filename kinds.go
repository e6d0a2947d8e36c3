// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

// Kind implements enums for tokens
type Kind int

const (
	UNKNOWN Kind = iota

	Line  // a record, not including the end of line
	Blank // a record holding only spaces
	Field // one value sliced out of a record by a Tokenizer

	EndOfInput // end of input
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "Line"
	case Blank:
		return "Blank"
	case Field:
		return "Field"
	case EndOfInput:
		return "EndOfInput"
	}
	return "UNKNOWN"
}
