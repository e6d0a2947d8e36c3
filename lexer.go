// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"fmt"
	"log/slog"
)

// Lexer invariants and coordinate system
//
// The lexer treats input as an immutable byte slice and returns one token
// per record (line). G-EQDSK files are ASCII, so columns are byte columns.
//
// Fields:
//   input    - the original []byte
//   length   - len(input)
//   pos      - index into input of the first byte of the next record,
//              or length when every record has been returned.
//   line     - 1-based line number of the record starting at pos.
//
// Invariants (must always hold):
//   0 <= pos <= length
//   a returned Line or Blank token never includes its line ending;
//   "\r\n" and "\n" both end a record, a stray "\r" is a space.
//
// Once the input is exhausted, Scan always returns the same EOF token.

type Lexer struct {
	name   string // name of the input source
	line   int    // line number of the next record
	pos    int    // position of the next record
	length int    // length of input buffer
	input  []byte

	// returns a canonical end of input token
	endToken *Token

	// logging
	logger    *slog.Logger
	lineCount int
}

func NewLexer(name string, input []byte, logger *slog.Logger) *Lexer {
	return &Lexer{
		name:   name,
		input:  input,
		length: len(input),
		line:   1,
		logger: logger,
	}
}

// Scan returns the next record from the input buffer.
//
// Once we reach end of input, we always return the same EOF token.
func (l *Lexer) Scan() *Token {
	if l.iseof() {
		if l.endToken == nil {
			l.seteof()
		}
		return l.endToken
	}

	start, end := l.pos, l.pos
	for end < l.length && l.input[end] != LF {
		end++
	}
	next := end
	if next < l.length {
		next++ // consume the LF
	}
	// drop the CR from a CR+LF pair
	if end > start && l.input[end-1] == CR && next > end {
		end--
	}

	tok := &Token{
		Position: Position{
			Line:   l.line,
			Column: 1,
			Start:  start,
		},
		End:  end,
		Kind: Line,
	}
	if isblank(l.input[start:end]) {
		tok.Kind = Blank
	}

	l.pos = next
	l.line++
	l.lineCount++
	return tok
}

// ScanNonBlank returns the next record that holds something other than spaces,
// or the EOF token.
func (l *Lexer) ScanNonBlank() *Token {
	for {
		tok := l.Scan()
		if tok.Kind != Blank {
			return tok
		}
		l.debug("skipping blank line %d", tok.Line)
	}
}

// Lines returns the number of records scanned so far, blank ones included.
func (l *Lexer) Lines() int {
	return l.lineCount
}

// Rest returns the unscanned part of the input.
func (l *Lexer) Rest() []byte {
	return l.input[l.pos:]
}

func (l *Lexer) iseof() bool {
	return l.pos >= l.length
}

func (l *Lexer) debug(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(fmt.Sprintf("%s:%d: %s", l.name, l.line, fmt.Sprintf(format, args...)))
}

// seteof updates the Lexer state to enforce the end of input invariants:
// * pos is length
// * endToken is set to the canonical EOF token
func (l *Lexer) seteof() {
	l.pos = l.length
	if l.endToken == nil {
		l.endToken = &Token{
			Position: Position{
				Line:   l.line,
				Column: 1,
				Start:  l.length,
			},
			End:  l.length,
			Kind: EndOfInput,
		}
	}
}
