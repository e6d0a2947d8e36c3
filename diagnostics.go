// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// PrintDiagnostic writes err in compiler style. When err is a FormatError
// and src holds the input it was produced from, the offending record is
// printed with a caret under the offending field.
//
// Errors without a position print as a single line.
func PrintDiagnostic(w io.Writer, err error, src []byte) {
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Span.Line == 0 {
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	// Header: file:line:column: error: message
	span := fe.Span
	_, _ = fmt.Fprintf(w, "%s:%d:%d: error: %s\n", fe.Name, span.Line, span.Column, fe.message())

	line := findLine(src, span.Start)
	if line == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "    %s\n", line)

	// caret underline, one caret per byte of the lexeme on this line
	width := len(span.Text(src))
	if room := len(line) - (span.Column - 1); width > room {
		width = room
	}
	if width < 1 {
		width = 1
	}
	_, _ = fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", span.Column-1), strings.Repeat("^", width))

	if fe.Expected != "" {
		_, _ = fmt.Fprintf(w, "    note: expected %s\n", fe.Expected)
	}
}

// message is the error text without the location prefix.
func (e *FormatError) message() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Found != "" {
		msg = fmt.Sprintf("%s: found %s", msg, e.Found)
	}
	return msg
}

// findLine returns the line containing the start byte, without its line ending.
// It returns nil if start is past the end of src.
func findLine(src []byte, start int) []byte {
	if start < 0 || start > len(src) {
		return nil
	}
	lineStart := start
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := start
	for lineEnd < len(src) && src[lineEnd] != '\n' {
		lineEnd++
	}
	if lineEnd > lineStart && src[lineEnd-1] == '\r' {
		lineEnd--
	}
	return src[lineStart:lineEnd]
}
