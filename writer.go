// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

// Write emits c in the traditional G-EQDSK layout: a (6a8,3i4) header,
// (5e16.9) records with every array starting on a new record, and a (2i5)
// count record. The output reads back into an equal Content, except that
// trailing blanks in CaseID are not kept.
func Write(w io.Writer, c *Content) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, n := range []int{c.Idum, c.Nw, c.Nh} {
		if n > 9999 || n < -999 {
			return fmt.Errorf("content: %w: header integer %d does not fit in %d columns", ErrInvalid, n, HeaderIntWidth)
		}
	}
	if c.Nbbbs > 99999 || c.Limitr > 99999 {
		return fmt.Errorf("content: %w: contour counts %d, %d do not fit in %d columns", ErrInvalid, c.Nbbbs, c.Limitr, CountWidth)
	}
	if strings.ContainsAny(c.CaseID, "\r\n") {
		return fmt.Errorf("content: %w: case id spans lines", ErrInvalid)
	}
	caseID := strings.TrimRight(c.CaseID, " \t\r")
	if len(caseID) > HeaderTextWidth {
		return fmt.Errorf("content: %w: case id is %d bytes, at most %d fit", ErrInvalid, len(caseID), HeaderTextWidth)
	}

	bw := bufio.NewWriter(w)
	// pad by bytes so the integers start at column 49 whatever the encoding
	caseID += strings.Repeat(" ", HeaderTextWidth-len(caseID))
	if _, err := fmt.Fprintf(bw, "%s%4d%4d%4d\n", caseID, c.Idum, c.Nw, c.Nh); err != nil {
		return err
	}

	scalars := c.scalarRecords()
	contourR := interleave(c.Rbbbs, c.Zbbbs)
	contourL := interleave(c.Rlim, c.Zlim)
	for _, values := range [][]float64{scalars[:], c.Fpol, c.Pres, c.FFprim, c.Pprime, c.PsiFlat(), c.Qpsi} {
		if err := writeFloats(bw, values); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "%5d%5d\n", c.Nbbbs, c.Limitr); err != nil {
		return err
	}
	for _, values := range [][]float64{contourR, contourL} {
		if err := writeFloats(bw, values); err != nil {
			return err
		}
	}
	if len(c.Trailer) != 0 {
		if _, err := bw.Write(c.Trailer); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// scalarRecords returns the 20 scalar slots. The primary slots always come
// from the named fields. The redundant slots come from Scalars, or from the
// named fields when Scalars was never set.
func (c *Content) scalarRecords() [20]float64 {
	s := c.Scalars
	if s == ([20]float64{}) {
		s[11], s[13], s[15], s[17] = c.Simag, c.Rmaxis, c.Zmaxis, c.Sibry
	}
	s[0], s[1], s[2], s[3], s[4] = c.Rdim, c.Zdim, c.Rcentr, c.Rleft, c.Zmid
	s[5], s[6], s[7], s[8], s[9] = c.Rmaxis, c.Zmaxis, c.Simag, c.Sibry, c.Bcentr
	s[10] = c.Current
	return s
}

func writeFloats(w *bufio.Writer, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("content: %w: value %v cannot be written", ErrInvalid, v)
		}
		if _, err := w.WriteString(formatFloat(v)); err != nil {
			return err
		}
		if (i+1)%ValuesPerLine == 0 || i == len(values)-1 {
			if err := w.WriteByte(LF); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatFloat renders v as an e16.9 field. Values with three digit
// exponents lose a digit of precision so that the field stays 16 wide.
func formatFloat(v float64) string {
	s := fmt.Sprintf("%16.9E", v)
	for prec := 8; len(s) > FloatWidth && prec > 0; prec-- {
		s = fmt.Sprintf("%16.*E", prec, v)
	}
	return s
}

func interleave(rs, zs []float64) []float64 {
	out := make([]float64, 0, 2*len(rs))
	for k := range rs {
		out = append(out, rs[k], zs[k])
	}
	return out
}
