// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// ReadFile builds a Content from the G-EQDSK file at path.
func ReadFile(path string, opts ...Option) (*Content, error) {
	return ReadFS(afero.NewOsFs(), path, opts...)
}

// ReadFS builds a Content from the G-EQDSK file at path on fs.
func ReadFS(fs afero.Fs, path string, opts ...Option) (*Content, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer fp.Close()
	return Read(fp, append([]Option{WithName(path)}, opts...)...)
}

// Read builds a Content from a stream holding a G-EQDSK file.
// The stream is read to the end before parsing starts.
func Read(r io.Reader, opts ...Option) (*Content, error) {
	cfg, err := newConfig("<stream>", opts...)
	if err != nil {
		return nil, err
	}
	input, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Path: cfg.name, Err: err}
	}
	return parse(cfg, input)
}

// Parse builds a Content from a G-EQDSK file that is already in memory.
// The Content does not share memory with input.
func Parse(name string, input []byte, opts ...Option) (*Content, error) {
	cfg, err := newConfig(name, opts...)
	if err != nil {
		return nil, err
	}
	return parse(cfg, input)
}

// scalarNames are the slots of the four scalar records, in file order.
var scalarNames = [20]string{
	"rdim", "zdim", "rcentr", "rleft", "zmid",
	"rmaxis", "zmaxis", "simag", "sibry", "bcentr",
	"current", "simag", "xdum", "rmaxis", "xdum",
	"zmaxis", "xdum", "sibry", "xdum", "xdum",
}

// reader walks the records in a single forward pass.
type reader struct {
	cfg   *Config
	lex   *Lexer
	input []byte

	// fields of the current record that have not been consumed yet
	pending []*Token
}

func parse(cfg *Config, input []byte) (*Content, error) {
	r := &reader{
		cfg:   cfg,
		lex:   NewLexer(cfg.name, input, cfg.logger),
		input: input,
	}
	c, err := r.content()
	if err != nil {
		r.debug("parse failed: %v", err)
		return nil, err
	}
	r.debug("parsed %d x %d grid, %d boundary points, %d limiter points", c.Nw, c.Nh, c.Nbbbs, c.Limitr)
	return c, nil
}

func (r *reader) content() (*Content, error) {
	c := &Content{}

	var err error
	c.CaseID, c.Idum, c.Nw, c.Nh, err = r.header()
	if err != nil {
		return nil, err
	}

	scalars, err := r.floats(len(c.Scalars), func(i int) string { return scalarNames[i] })
	if err != nil {
		return nil, err
	}
	copy(c.Scalars[:], scalars)
	c.Rdim, c.Zdim, c.Rcentr, c.Rleft, c.Zmid = scalars[0], scalars[1], scalars[2], scalars[3], scalars[4]
	c.Rmaxis, c.Zmaxis, c.Simag, c.Sibry, c.Bcentr = scalars[5], scalars[6], scalars[7], scalars[8], scalars[9]
	c.Current = scalars[10]

	for _, profile := range []struct {
		name string
		dst  *[]float64
	}{
		{"fpol", &c.Fpol},
		{"pres", &c.Pres},
		{"ffprim", &c.FFprim},
		{"pprime", &c.Pprime},
	} {
		if *profile.dst, err = r.floats(c.Nw, indexed(profile.name)); err != nil {
			return nil, err
		}
	}

	nw := c.Nw
	flat, err := r.floats(c.Nw*c.Nh, func(k int) string {
		return fmt.Sprintf("psirz[%d][%d]", k%nw, k/nw)
	})
	if err != nil {
		return nil, err
	}
	c.Psirz = make([][]float64, c.Nw)
	for i := range c.Psirz {
		c.Psirz[i] = make([]float64, c.Nh)
		for j := range c.Psirz[i] {
			c.Psirz[i][j] = flat[j*c.Nw+i]
		}
	}

	if c.Qpsi, err = r.floats(c.Nw, indexed("qpsi")); err != nil {
		return nil, err
	}

	if c.Nbbbs, c.Limitr, err = r.counts(); err != nil {
		return nil, err
	}
	if c.Rbbbs, c.Zbbbs, err = r.contour("rbbbs", "zbbbs", c.Nbbbs); err != nil {
		return nil, err
	}
	if c.Rlim, c.Zlim, err = r.contour("rlim", "zlim", c.Limitr); err != nil {
		return nil, err
	}

	if c.Trailer, err = r.trailer(); err != nil {
		return nil, err
	}

	return c, nil
}

// header reads the (6a8,3i4) identification record.
func (r *reader) header() (caseID string, idum, nw, nh int, err error) {
	tok := r.lex.ScanNonBlank()
	if tok.Is(EndOfInput) {
		return "", 0, 0, 0, r.errorf(tok, "header", "identification record", "end of input", ErrTruncated)
	}

	switch r.cfg.tokenizer.(type) {
	case FixedWidth:
		caseID, idum, nw, nh, err = r.fixedHeader(tok)
	case Whitespace:
		caseID, idum, nw, nh, err = r.freeHeader(tok)
	default:
		caseID, idum, nw, nh, err = r.fixedHeader(tok)
		freeCase, freeIdum, freeNw, freeNh, freeErr := r.freeHeader(tok)
		if err != nil {
			r.debug("header: fixed columns: %v", err)
			caseID, idum, nw, nh, err = freeCase, freeIdum, freeNw, freeNh, freeErr
		} else if freeErr == nil && (freeNw != nw || freeNh != nh) {
			// the columns cut through whitespace separated integers.
			// idum is not compared: case text may touch it.
			r.debug("header: fixed columns read %d %d %d, fields read %d %d %d", idum, nw, nh, freeIdum, freeNw, freeNh)
			caseID, idum, nw, nh = freeCase, freeIdum, freeNw, freeNh
		}
	}
	if err != nil {
		return "", 0, 0, 0, err
	}

	if nw <= 0 {
		return "", 0, 0, 0, r.errorf(tok, "nw", "positive integer", fmt.Sprint(nw), ErrBadDimension)
	} else if nh <= 0 {
		return "", 0, 0, 0, r.errorf(tok, "nh", "positive integer", fmt.Sprint(nh), ErrBadDimension)
	} else if nw > r.cfg.maxGrid/nh {
		return "", 0, 0, 0, r.errorf(tok, "nw*nh", fmt.Sprintf("at most %d grid points", r.cfg.maxGrid), fmt.Sprintf("%d x %d", nw, nh), ErrBadDimension)
	}
	r.debug("header: case %q, idum %d, nw %d, nh %d", caseID, idum, nw, nh)
	return caseID, idum, nw, nh, nil
}

// fixedHeader reads 48 columns of text followed by three I4 fields.
// Anything after column 60 must be blank.
func (r *reader) fixedHeader(tok *Token) (string, int, int, int, error) {
	const intsEnd = HeaderTextWidth + 3*HeaderIntWidth
	if tok.Length() < intsEnd {
		return "", 0, 0, 0, r.errorf(tok, "header", fmt.Sprintf("%d columns", intsEnd), fmt.Sprintf("%d", tok.Length()), ErrBadHeader)
	}
	if !isblank(r.input[tok.Start+intsEnd : tok.End]) {
		return "", 0, 0, 0, r.errorf(tok, "header", fmt.Sprintf("blank after column %d", intsEnd), "data", ErrBadHeader)
	}
	ints := &Token{
		Position: Position{Line: tok.Line, Column: tok.Column + HeaderTextWidth, Start: tok.Start + HeaderTextWidth},
		End:      tok.Start + intsEnd,
		Kind:     Line,
	}
	fields := FixedWidth{}.Split(r.input, ints, HeaderIntWidth)
	// FixedWidth reports columns relative to the slice it was given
	for _, f := range fields {
		f.Column += HeaderTextWidth
	}
	values, err := r.headerInts(tok, fields)
	if err != nil {
		return "", 0, 0, 0, err
	}
	caseID := string(bytes.TrimRight(r.input[tok.Start:tok.Start+HeaderTextWidth], " \t\r"))
	return caseID, values[0], values[1], values[2], nil
}

// freeHeader reads free text followed by three whitespace separated integers.
func (r *reader) freeHeader(tok *Token) (string, int, int, int, error) {
	fields := Whitespace{}.Split(r.input, tok, 0)
	if len(fields) < 3 {
		return "", 0, 0, 0, r.errorf(tok, "header", "3 trailing integers", fmt.Sprintf("%d fields", len(fields)), ErrBadHeader)
	}
	fields = fields[len(fields)-3:]
	values, err := r.headerInts(tok, fields)
	if err != nil {
		return "", 0, 0, 0, err
	}
	caseID := string(bytes.TrimRight(r.input[tok.Start:fields[0].Start], " \t\r"))
	return caseID, values[0], values[1], values[2], nil
}

func (r *reader) headerInts(tok *Token, fields []*Token) ([3]int, error) {
	var values [3]int
	if len(fields) != 3 {
		return values, r.errorf(tok, "header", "3 integers", fmt.Sprintf("%d fields", len(fields)), ErrBadHeader)
	}
	for i, name := range []string{"idum", "nw", "nh"} {
		n, err := parseInt(fields[i].Lexeme(r.input))
		if err != nil {
			return values, r.errorf(fields[i], name, "integer", fmt.Sprintf("%q", fields[i].Lexeme(r.input)), ErrBadHeader)
		}
		values[i] = n
	}
	return values, nil
}

// floats reads n values from the (5e16.9) records. Values may continue
// from the record that ended the previous array.
func (r *reader) floats(n int, name func(i int) string) ([]float64, error) {
	values := make([]float64, n)
	for i := range values {
		if len(r.pending) == 0 {
			rec := r.lex.ScanNonBlank()
			if rec.Is(EndOfInput) {
				return nil, r.errorf(rec, name(i), fmt.Sprintf("%d values", n), fmt.Sprintf("%d", i), ErrTruncated)
			}
			r.pending = r.cfg.tokenizer.Split(r.input, rec, FloatWidth)
		}
		tok := r.pending[0]
		r.pending = r.pending[1:]
		v, err := parseFloat(tok.Lexeme(r.input))
		if err != nil {
			return nil, r.errorf(tok, name(i), "real number", fmt.Sprintf("%q (%v)", tok.Lexeme(r.input), err), ErrBadNumber)
		}
		values[i] = v
	}
	return values, nil
}

// counts reads the (2i5) record holding nbbbs and limitr.
func (r *reader) counts() (nbbbs, limitr int, err error) {
	if len(r.pending) != 0 {
		tok := r.pending[0]
		return 0, 0, r.errorf(tok, "qpsi", "end of record", fmt.Sprintf("%q", tok.Lexeme(r.input)), ErrExtraValues)
	}
	rec := r.lex.ScanNonBlank()
	if rec.Is(EndOfInput) {
		return 0, 0, r.errorf(rec, "nbbbs", "contour counts", "end of input", ErrTruncated)
	}
	fields := r.cfg.tokenizer.Split(r.input, rec, CountWidth)
	if _, ok := r.cfg.tokenizer.(Auto); ok && len(fields) != 2 {
		// counts of five digits leave no space between the fields
		fields = FixedWidth{}.Split(r.input, rec, CountWidth)
	}
	if len(fields) < 2 {
		return 0, 0, r.errorf(rec, "nbbbs", "2 integers", fmt.Sprintf("%d fields", len(fields)), ErrBadDimension)
	} else if len(fields) > 2 {
		return 0, 0, r.errorf(fields[2], "limitr", "end of record", fmt.Sprintf("%q", fields[2].Lexeme(r.input)), ErrExtraValues)
	}
	var values [2]int
	for i, name := range []string{"nbbbs", "limitr"} {
		n, err := parseInt(fields[i].Lexeme(r.input))
		if err != nil {
			return 0, 0, r.errorf(fields[i], name, "integer", fmt.Sprintf("%q", fields[i].Lexeme(r.input)), ErrBadNumber)
		} else if n < 0 || n > r.cfg.maxGrid {
			return 0, 0, r.errorf(fields[i], name, fmt.Sprintf("0..%d", r.cfg.maxGrid), fmt.Sprint(n), ErrBadDimension)
		}
		values[i] = n
	}
	r.debug("contours: nbbbs %d, limitr %d", values[0], values[1])
	return values[0], values[1], nil
}

// contour reads n interleaved (R, Z) pairs.
func (r *reader) contour(rName, zName string, n int) ([]float64, []float64, error) {
	flat, err := r.floats(2*n, func(k int) string {
		if k%2 == 0 {
			return fmt.Sprintf("%s[%d]", rName, k/2)
		}
		return fmt.Sprintf("%s[%d]", zName, k/2)
	})
	if err != nil {
		return nil, nil, err
	}
	rs, zs := make([]float64, n), make([]float64, n)
	for k := 0; k < n; k++ {
		rs[k], zs[k] = flat[2*k], flat[2*k+1]
	}
	return rs, zs, nil
}

// trailer checks what follows the limiter block.
// Blank lines are ignored; anything else is kept or rejected.
func (r *reader) trailer() ([]byte, error) {
	start := -1
	if len(r.pending) != 0 {
		start = r.pending[0].Start
	} else if rest := r.lex.Rest(); !isblank(bytes.ReplaceAll(rest, []byte{LF}, nil)) {
		tok := r.lex.ScanNonBlank()
		start = tok.Start
	}
	if start < 0 {
		return nil, nil
	}
	if !r.cfg.allowTrailing {
		tok := r.tokenAt(start)
		return nil, r.errorf(tok, "trailer", "end of input", fmt.Sprintf("%q", tok.Lexeme(r.input)), ErrTrailingData)
	}
	r.pending = nil
	trailer := bytes.Clone(r.input[start:])
	r.debug("trailer: kept %d bytes", len(trailer))
	return trailer, nil
}

// tokenAt returns a token for the rest of the record holding start.
func (r *reader) tokenAt(start int) *Token {
	lineStart := bytes.LastIndexByte(r.input[:start], LF) + 1
	end := start
	for end < len(r.input) && r.input[end] != LF && r.input[end] != CR {
		end++
	}
	return &Token{
		Position: Position{
			Line:   bytes.Count(r.input[:start], []byte{LF}) + 1,
			Column: start - lineStart + 1,
			Start:  start,
		},
		End:  end,
		Kind: Field,
	}
}

func (r *reader) errorf(tok *Token, field, expected, found string, cause error) error {
	return &FormatError{
		Name:     r.cfg.name,
		Span:     spanFromToken(tok),
		Field:    field,
		Expected: expected,
		Found:    found,
		Err:      cause,
	}
}

func (r *reader) debug(format string, args ...any) {
	if r.cfg.logger == nil {
		return
	}
	r.cfg.logger.Debug(fmt.Sprintf("%s: %s", r.cfg.name, fmt.Sprintf(format, args...)))
}

func indexed(name string) func(i int) string {
	return func(i int) string {
		return fmt.Sprintf("%s[%d]", name, i)
	}
}
