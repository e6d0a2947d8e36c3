// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package eqdsk

import "fmt"

// Content is one parsed G-EQDSK file.
//
// Units follow the G-EQDSK convention: meters, Weber/rad, Tesla and Ampere.
// Every call to the reader allocates a new Content and keeps no reference
// to it, so the caller owns the value and all of its slices.
type Content struct {
	CaseID string `json:"case"` // identification text from the header, trailing blanks dropped
	Idum   int    `json:"idum"` // unused header marker

	Nw int `json:"nw"` // number of horizontal R grid points
	Nh int `json:"nh"` // number of vertical Z grid points

	Rdim    float64 `json:"rdim"`    // horizontal dimension of the computational box
	Zdim    float64 `json:"zdim"`    // vertical dimension of the computational box
	Rcentr  float64 `json:"rcentr"`  // R of the vacuum toroidal field Bcentr
	Rleft   float64 `json:"rleft"`   // minimum R of the computational box
	Zmid    float64 `json:"zmid"`    // Z of the center of the computational box
	Rmaxis  float64 `json:"rmaxis"`  // R of the magnetic axis
	Zmaxis  float64 `json:"zmaxis"`  // Z of the magnetic axis
	Simag   float64 `json:"simag"`   // poloidal flux at the magnetic axis
	Sibry   float64 `json:"sibry"`   // poloidal flux at the plasma boundary
	Bcentr  float64 `json:"bcentr"`  // vacuum toroidal field at Rcentr
	Current float64 `json:"current"` // plasma current

	// Scalars holds the four scalar records in file order. Producers repeat
	// simag, sibry, rmaxis and zmaxis in later slots and do not always write
	// the same values twice; the named fields above come from the first slot.
	Scalars [20]float64 `json:"scalars"`

	Fpol   []float64 `json:"fpol"`   // poloidal current function F = R*Bt, on the flux grid
	Pres   []float64 `json:"pres"`   // plasma pressure, on the flux grid
	FFprim []float64 `json:"ffprim"` // FF'(psi), on the flux grid
	Pprime []float64 `json:"pprime"` // P'(psi), on the flux grid

	// Psirz[i][j] is the poloidal flux at (R_i, Z_j); the shape is (Nw, Nh).
	Psirz [][]float64 `json:"psirz"`

	Qpsi []float64 `json:"qpsi"` // safety factor, on the flux grid

	Nbbbs  int       `json:"nbbbs"`  // number of boundary points
	Limitr int       `json:"limitr"` // number of limiter points
	Rbbbs  []float64 `json:"rbbbs"`  // R of the boundary points
	Zbbbs  []float64 `json:"zbbbs"`  // Z of the boundary points
	Rlim   []float64 `json:"rlim"`   // R of the limiter contour
	Zlim   []float64 `json:"zlim"`   // Z of the limiter contour

	// Trailer is the raw text after the limiter block. It is only set when
	// the reader is configured to accept trailing data.
	Trailer []byte `json:"trailer,omitempty"`
}

// Validate checks the shape invariants. The reader never returns a Content
// that fails them; values built by hand should be checked before writing.
func (c *Content) Validate() error {
	if c == nil {
		return fmt.Errorf("content: %w: nil", ErrInvalid)
	}
	if c.Nw <= 0 || c.Nh <= 0 {
		return fmt.Errorf("content: %w: grid %d x %d", ErrInvalid, c.Nw, c.Nh)
	}
	if c.Nbbbs < 0 || c.Limitr < 0 {
		return fmt.Errorf("content: %w: nbbbs %d, limitr %d", ErrInvalid, c.Nbbbs, c.Limitr)
	}
	for _, p := range []struct {
		name   string
		values []float64
		want   int
	}{
		{"fpol", c.Fpol, c.Nw},
		{"pres", c.Pres, c.Nw},
		{"ffprim", c.FFprim, c.Nw},
		{"pprime", c.Pprime, c.Nw},
		{"qpsi", c.Qpsi, c.Nw},
		{"rbbbs", c.Rbbbs, c.Nbbbs},
		{"zbbbs", c.Zbbbs, c.Nbbbs},
		{"rlim", c.Rlim, c.Limitr},
		{"zlim", c.Zlim, c.Limitr},
	} {
		if len(p.values) != p.want {
			return fmt.Errorf("content: %w: len(%s) = %d, want %d", ErrInvalid, p.name, len(p.values), p.want)
		}
	}
	if len(c.Psirz) != c.Nw {
		return fmt.Errorf("content: %w: psirz has %d rows, want %d", ErrInvalid, len(c.Psirz), c.Nw)
	}
	for i, row := range c.Psirz {
		if len(row) != c.Nh {
			return fmt.Errorf("content: %w: psirz[%d] has %d columns, want %d", ErrInvalid, i, len(row), c.Nh)
		}
	}
	return nil
}

// PsiZR returns the flux grid transposed to shape (Nh, Nw), indexed [j][i],
// for consumers that expect Z-major grids.
func (c *Content) PsiZR() [][]float64 {
	out := make([][]float64, c.Nh)
	for j := range out {
		out[j] = make([]float64, c.Nw)
		for i := 0; i < c.Nw; i++ {
			out[j][i] = c.Psirz[i][j]
		}
	}
	return out
}

// PsiFlat returns the flux grid in file order, R varying fastest.
func (c *Content) PsiFlat() []float64 {
	out := make([]float64, 0, c.Nw*c.Nh)
	for j := 0; j < c.Nh; j++ {
		for i := 0; i < c.Nw; i++ {
			out = append(out, c.Psirz[i][j])
		}
	}
	return out
}

// RGrid returns the R coordinates of the grid columns.
func (c *Content) RGrid() []float64 {
	return linspace(c.Rleft, c.Rleft+c.Rdim, c.Nw)
}

// ZGrid returns the Z coordinates of the grid rows.
func (c *Content) ZGrid() []float64 {
	return linspace(c.Zmid-c.Zdim/2, c.Zmid+c.Zdim/2, c.Nh)
}

// PsiGrid returns the uniform flux grid, from Simag to Sibry, that the
// profiles are tabulated on.
func (c *Content) PsiGrid() []float64 {
	return linspace(c.Simag, c.Sibry, c.Nw)
}

// PsiNormGrid returns the normalized flux grid, 0 at the axis and 1 at the boundary.
func (c *Content) PsiNormGrid() []float64 {
	return linspace(0, 1, c.Nw)
}

func linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
