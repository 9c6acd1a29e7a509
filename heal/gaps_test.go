package heal

import (
	"math"
	"testing"
)

func TestFilterEndsBorderExclusion(t *testing.T) {
	fs := NewFrameSet()
	s := fs.Add(testLine(5, 50, 1, 0, 46, 1)) // leading end at x=5, inside the margin

	ends := FilterEnds(fs, 0, 100, 100, 10)
	if len(ends) != 1 {
		t.Fatalf("got %d qualifying ends, want 1", len(ends))
	}
	if ends[0].Seg != s || ends[0].End != Trailing {
		t.Errorf("qualifying end = segment %d %v, want segment %d Trailing", ends[0].Seg.ID, ends[0].End, s.ID)
	}
}

func TestFilterEndsScoreGate(t *testing.T) {
	fs := NewFrameSet()
	fs.Add(testLine(30, 50, 1, 0, 20, 0.2))

	if ends := FilterEnds(fs, 0.5, 100, 100, 10); len(ends) != 0 {
		t.Errorf("got %d qualifying ends with scores below the gate, want 0", len(ends))
	}
	if ends := FilterEnds(fs, 0.1, 100, 100, 10); len(ends) != 2 {
		t.Errorf("got %d qualifying ends, want 2", len(ends))
	}
}

func TestEndDirection(t *testing.T) {
	s := testLine(10, 20, 1, 0.5, 30, 1)

	dx, dy := EndDirection(s, Leading)
	if math.Abs(dx-1) > 1e-9 || math.Abs(dy-0.5) > 1e-9 {
		t.Errorf("leading direction = (%g, %g), want (1, 0.5)", dx, dy)
	}
	dx, dy = EndDirection(s, Trailing)
	if math.Abs(dx-1) > 1e-9 || math.Abs(dy-0.5) > 1e-9 {
		t.Errorf("trailing direction = (%g, %g), want (1, 0.5)", dx, dy)
	}
}

func TestEndDirectionTooShort(t *testing.T) {
	s := testLine(10, 20, 1, 0, 1, 1)
	if dx, dy := EndDirection(s, Leading); !math.IsNaN(dx) || !math.IsNaN(dy) {
		t.Errorf("direction of single-point segment = (%g, %g), want NaN", dx, dy)
	}
}

// gapScene builds a frame with one dark whisker row and two segments
// tracing it with a gap in the middle.
func gapScene() (*Frame, *FrameSet, *Segment, *Segment) {
	im := darkRowFrame(100, 100, 50)
	fs := NewFrameSet()
	a := fs.Add(testLine(15, 50, 1, 0, 25, 1)) // x 15..39
	b := fs.Add(testLine(55, 50, 1, 0, 25, 1)) // x 55..79
	return im, fs, a, b
}

func TestChooseGapsAcceptsAlignedPair(t *testing.T) {
	im, fs, a, b := gapScene()

	chosen := ChooseGaps(im, fs, DefaultParams())
	if len(chosen) != 1 {
		t.Fatalf("got %d candidates, want 1", len(chosen))
	}
	c := chosen[0]
	if c.From != a || c.To != b {
		t.Errorf("bridge runs %d -> %d, want %d -> %d", c.From.ID, c.To.ID, a.ID, b.ID)
	}
	if math.Abs(c.Dist-16) > 1e-9 {
		t.Errorf("gap distance = %g, want 16", c.Dist)
	}
	if c.Score <= 0 {
		t.Errorf("candidate score = %g, want positive", c.Score)
	}
}

func TestChooseGapsRejectsUniformField(t *testing.T) {
	// Without photometric evidence the pair fails the signal gate.
	_, fs, _, _ := gapScene()
	im := testFrame(100, 100, 200)

	if chosen := ChooseGaps(im, fs, DefaultParams()); len(chosen) != 0 {
		t.Errorf("got %d candidates on a blank field, want 0", len(chosen))
	}
}

func TestChooseGapsRejectsDistantPair(t *testing.T) {
	im, fs, _, _ := gapScene()
	p := DefaultParams()
	p.MaxDist = 10

	if chosen := ChooseGaps(im, fs, p); len(chosen) != 0 {
		t.Errorf("got %d candidates past the distance gate, want 0", len(chosen))
	}
}

func TestChooseGapsRejectsMisalignedPair(t *testing.T) {
	// The second trace runs perpendicular to the first; the angular gate
	// must reject the pair.
	im := darkRowFrame(100, 100, 50)
	fs := NewFrameSet()
	fs.Add(testLine(15, 50, 1, 0, 25, 1))
	fs.Add(testLine(55, 50, 0, 1, 25, 1)) // heads away from the whisker row

	if chosen := ChooseGaps(im, fs, DefaultParams()); len(chosen) != 0 {
		t.Errorf("got %d candidates across a right angle, want 0", len(chosen))
	}
}

func TestCloseGapsSplicesBridge(t *testing.T) {
	im, fs, a, b := gapScene()

	n := CloseGaps(im, fs, DefaultParams())
	if n != 1 {
		t.Fatalf("bridged %d gaps, want 1", n)
	}
	if fs.Len() != 1 {
		t.Fatalf("frame has %d segments after splicing, want 1", fs.Len())
	}
	if fs.Get(a.ID) != nil || fs.Get(b.ID) != nil {
		t.Error("donor segments still present after splicing")
	}

	merged := fs.Segments()[0]
	wantLen := 25 + 14 + 25 // donors plus bridge interior
	if merged.Len() != wantLen {
		t.Errorf("merged segment has %d samples, want %d", merged.Len(), wantLen)
	}
	if merged.X[0] != 15 || merged.X[merged.Len()-1] != 79 {
		t.Errorf("merged segment spans x [%g, %g], want [15, 79]", merged.X[0], merged.X[merged.Len()-1])
	}
	for i := 1; i < merged.Len(); i++ {
		if merged.X[i] <= merged.X[i-1] {
			t.Fatalf("merged x not increasing at sample %d: %g then %g", i-1, merged.X[i-1], merged.X[i])
		}
	}
}

func TestCloseGapsChained(t *testing.T) {
	// Three collinear fragments: both gaps close in one pass, chaining
	// through the intermediate merge.
	im := darkRowFrame(200, 100, 50)
	fs := NewFrameSet()
	fs.Add(testLine(15, 50, 1, 0, 25, 1))  // x 15..39
	fs.Add(testLine(55, 50, 1, 0, 25, 1))  // x 55..79
	fs.Add(testLine(95, 50, 1, 0, 25, 1))  // x 95..119

	n := CloseGaps(im, fs, DefaultParams())
	if n != 2 {
		t.Fatalf("bridged %d gaps, want 2", n)
	}
	if fs.Len() != 1 {
		t.Fatalf("frame has %d segments after splicing, want 1", fs.Len())
	}
	merged := fs.Segments()[0]
	if merged.X[0] != 15 || merged.X[merged.Len()-1] != 119 {
		t.Errorf("merged segment spans x [%g, %g], want [15, 119]", merged.X[0], merged.X[merged.Len()-1])
	}
}

func TestMakeJoiningSegmentInterpolates(t *testing.T) {
	from := testLine(10, 50, 1, 0, 10, 0.4)
	from.Thick[9] = 2
	to := testLine(30, 50, 1, 0, 10, 0.8)
	to.Thick[0] = 4

	cx := Cubic{0, 0, 11, 19}
	cy := Cubic{0, 0, 0, 50}
	s := MakeJoiningSegment(cx, cy, 11, from, to)

	if s.Len() != 11 {
		t.Fatalf("bridge has %d samples, want 11", s.Len())
	}
	if s.Thick[0] != 2 || s.Thick[s.Len()-1] != 4 {
		t.Errorf("thickness endpoints (%g, %g), want (2, 4)", s.Thick[0], s.Thick[s.Len()-1])
	}
	if s.Score[0] != 0.4 || s.Score[s.Len()-1] != 0.8 {
		t.Errorf("score endpoints (%g, %g), want (0.4, 0.8)", s.Score[0], s.Score[s.Len()-1])
	}
	mid := s.Thick[5]
	if math.Abs(mid-3) > 1e-9 {
		t.Errorf("midpoint thickness = %g, want 3", mid)
	}
}

func TestMeasureGaps(t *testing.T) {
	im, fs, _, _ := gapScene()

	g := MeasureGaps(im, fs, DefaultParams())
	if g == nil {
		t.Fatal("MeasureGaps returned nil")
	}
	nl, nt := g.Dist.Dims()
	if nl != 2 || nt != 2 {
		t.Fatalf("measure matrices are %dx%d, want 2x2", nl, nt)
	}

	// One pairing is the real 16 px gap; find it and check its measures.
	found := false
	for i := 0; i < nl; i++ {
		for j := 0; j < nt; j++ {
			if math.Abs(g.Dist.At(i, j)-16) < 1e-9 {
				found = true
				if l := g.Length.At(i, j); math.Abs(l-16) > 0.5 {
					t.Errorf("bridge length = %g, want about 16", l)
				}
				if s := g.Score.At(i, j); s >= 0 {
					t.Errorf("bridge score = %g, want negative on a dark whisker", s)
				}
			}
		}
	}
	if !found {
		t.Error("no pairing with the expected 16 px gap")
	}
}
