package heal

// Test fixtures shared across the package tests.

// testLine builds a straight segment of n samples starting at (x0, y0) and
// stepping by (dx, dy), with uniform thickness 1 and the given per-point
// score.
func testLine(x0, y0, dx, dy float64, n int, score float64) *Segment {
	s := &Segment{
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Thick: make([]float64, n),
		Score: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.X[i] = x0 + float64(i)*dx
		s.Y[i] = y0 + float64(i)*dy
		s.Thick[i] = 1
		s.Score[i] = score
	}
	return s
}

// testFrame builds a frame filled with a uniform background value.
func testFrame(width, height int, bg float64) *Frame {
	f := NewFrame(width, height)
	for i := range f.Pix {
		f.Pix[i] = bg
	}
	return f
}

// darkRowFrame builds a bright frame with one dark horizontal row, the
// simplest image containing a whisker-like feature.
func darkRowFrame(width, height, row int) *Frame {
	f := testFrame(width, height, 200)
	for x := 0; x < width; x++ {
		f.Set(x, row, 0)
	}
	return f
}
