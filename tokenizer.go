// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import "fmt"

// Nominal field widths of the G-EQDSK records.
const (
	HeaderTextWidth = 48 // (6a8)
	HeaderIntWidth  = 4  // (3i4)
	FloatWidth      = 16 // (5e16.9)
	CountWidth      = 5  // (2i5)
	ValuesPerLine   = 5
)

// Tokenizer splits one record into fields.
//
// width is the nominal width of a field in the record being read.
// Implementations that do not slice by column are free to ignore it.
// The returned tokens are Field tokens positioned in the original input.
type Tokenizer interface {
	Split(input []byte, line *Token, width int) []*Token
}

// FixedWidth slices a record into columns of the nominal width.
// Blank columns are dropped.
type FixedWidth struct{}

func (FixedWidth) Split(input []byte, line *Token, width int) []*Token {
	if width <= 0 {
		panic(fmt.Sprintf("assert(width > 0): got %d", width))
	}
	var fields []*Token
	for col := line.Start; col < line.End; col += width {
		end := col + width
		if end > line.End {
			end = line.End
		}
		if tok := trimField(input, line, col, end); tok != nil {
			fields = append(fields, tok)
		}
	}
	return fields
}

func (FixedWidth) String() string { return "fixed" }

// Whitespace splits a record on runs of spaces.
// It tolerates producers that do not honor the column widths, as long as
// they separate values with at least one space.
type Whitespace struct{}

func (Whitespace) Split(input []byte, line *Token, _ int) []*Token {
	var fields []*Token
	pos := line.Start
	for pos < line.End {
		for pos < line.End && isspace(input[pos]) {
			pos++
		}
		if pos >= line.End {
			break
		}
		start := pos
		for pos < line.End && !isspace(input[pos]) {
			pos++
		}
		fields = append(fields, newField(line, start, pos))
	}
	return fields
}

func (Whitespace) String() string { return "whitespace" }

// Auto splits on whitespace and falls back to fixed columns when any of the
// resulting fields is not a number. The fallback handles records where a
// negative value fills its column and touches its neighbor, as in
// "1.000000000E+00-2.000000000E+00".
type Auto struct{}

func (Auto) Split(input []byte, line *Token, width int) []*Token {
	fields := Whitespace{}.Split(input, line, width)
	for _, tok := range fields {
		if _, err := parseFloat(tok.Lexeme(input)); err != nil {
			return FixedWidth{}.Split(input, line, width)
		}
	}
	return fields
}

func (Auto) String() string { return "auto" }

// TokenizerByName returns the strategy for a configuration name.
func TokenizerByName(name string) (Tokenizer, error) {
	switch name {
	case "", "auto":
		return Auto{}, nil
	case "fixed", "fixed-width":
		return FixedWidth{}, nil
	case "whitespace", "free":
		return Whitespace{}, nil
	}
	return nil, fmt.Errorf("unknown tokenizer %q", name)
}

// trimField returns the field in input[start:end] without surrounding spaces,
// or nil if the slice is blank.
func trimField(input []byte, line *Token, start, end int) *Token {
	for start < end && isspace(input[start]) {
		start++
	}
	for end > start && isspace(input[end-1]) {
		end--
	}
	if start == end {
		return nil
	}
	return newField(line, start, end)
}

func newField(line *Token, start, end int) *Token {
	return &Token{
		Position: Position{
			Line:   line.Line,
			Column: start - line.Start + 1,
			Start:  start,
		},
		End:  end,
		Kind: Field,
	}
}
