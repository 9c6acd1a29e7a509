package heal

import (
	"github.com/paulmach/orb/planar"
)

// DefaultAlignDist is the correspondence distance threshold in pixels used
// when walking two traces along each other.
const DefaultAlignDist = 2.0

// Range is a closed index interval on a segment.
type Range struct {
	Lo, Hi int
}

// Span returns the number of index steps the range covers.
func (r Range) Span() int {
	return r.Hi - r.Lo
}

// Overlap finds the contiguous index ranges two segments mutually cover
// around a seed collision at a[ia] and b[ib]. Segments may be stored in
// opposite physical directions; local tangents near the seed decide whether
// increasing index on a corresponds to increasing or decreasing index on b.
//
// From the seed, the correspondence walks outward greedily in both
// directions: at each step the candidate moves are advance-both, advance-a,
// and advance-b, and the one with the smallest point distance wins. A walk
// stops when that distance exceeds thresh or an array boundary is hit; at a
// boundary the non-exhausted index keeps advancing while the distance still
// decreases. The stopping indices form the returned ranges.
func Overlap(a *Segment, ia int, b *Segment, ib int, thresh float64) (Range, Range) {
	if a.Len() < 2 || b.Len() < 2 {
		return Range{ia, ia}, Range{ib, ib}
	}

	dist := func(i, j int) float64 {
		return planar.Distance(a.Point(i), b.Point(j))
	}

	// Local tangents near the seed. Array boundaries force one-sided
	// differences with signs matched to the interior case.
	var dax, day, dbx, dby float64
	switch {
	case ia == a.Len()-1 || ib == b.Len()-1:
		switch {
		case ia != 0 && ib != 0:
			dax, day = a.X[ia-1]-a.X[ia], a.Y[ia-1]-a.Y[ia]
			dbx, dby = b.X[ib-1]-b.X[ib], b.Y[ib-1]-b.Y[ib]
		case ia == 0:
			dax, day = a.X[ia+1]-a.X[ia], a.Y[ia+1]-a.Y[ia]
			dbx, dby = b.X[ib]-b.X[ib-1], b.Y[ib]-b.Y[ib-1]
		default: // ib == 0
			dax, day = a.X[ia]-a.X[ia-1], a.Y[ia]-a.Y[ia-1]
			dbx, dby = b.X[ib+1]-b.X[ib], b.Y[ib+1]-b.Y[ib]
		}
	default:
		dax, day = a.X[ia+1]-a.X[ia], a.Y[ia+1]-a.Y[ia]
		dbx, dby = b.X[ib+1]-b.X[ib], b.Y[ib+1]-b.Y[ib]
	}

	// Step direction on a while b's index decreases. Same tangent sign on
	// the dominant axis means the traces run in the same index direction.
	stepA := -1
	sameSign := dax*dbx >= 0
	if abs(day) >= abs(dax) {
		sameSign = day*dby >= 0
	}
	if !sameSign {
		stepA = 1
	}

	notEnd := func(i, step int) bool {
		if step < 0 {
			return i > 0
		}
		return i < a.Len()-1
	}

	// walk runs one outward pass: b's index moves by stepB, a's by stepA.
	walk := func(stepA, stepB int) (int, int) {
		ia2, ib2 := ia, ib
		atEndB := func(i int) bool {
			if stepB < 0 {
				return i <= 0
			}
			return i >= b.Len()-1
		}
		ms := 0.0
		for ms < thresh && notEnd(ia2, stepA) && !atEndB(ib2) {
			moves := [3][2]int{
				{ia2 + stepA, ib2 + stepB},
				{ia2 + stepA, ib2},
				{ia2, ib2 + stepB},
			}
			best := 0
			ms = dist(moves[0][0], moves[0][1])
			for k := 1; k < 3; k++ {
				if s := dist(moves[k][0], moves[k][1]); s < ms {
					ms = s
					best = k
				}
			}
			ia2, ib2 = moves[best][0], moves[best][1]
		}

		// Relax at a boundary: keep advancing the non-exhausted index
		// while the distance still decreases.
		switch {
		case !notEnd(ia2, stepA) && atEndB(ib2):
			// both exhausted
		case !notEnd(ia2, stepA):
			last := ms
			s := dist(ia2, ib2+stepB)
			for s < last && !atEndB(ib2 + stepB) {
				ib2 += stepB
				last = s
				s = dist(ia2, ib2+stepB)
			}
		case atEndB(ib2):
			last := ms
			s := dist(ia2+stepA, ib2)
			for s < last && notEnd(ia2+stepA, stepA) {
				ia2 += stepA
				last = s
				s = dist(ia2+stepA, ib2)
			}
		}
		return ia2, ib2
	}

	loA, loB := walk(stepA, -1)
	hiA, hiB := walk(-stepA, 1)

	ra := Range{loA, hiA}
	if ra.Lo > ra.Hi {
		ra.Lo, ra.Hi = ra.Hi, ra.Lo
	}
	rb := Range{loB, hiB}
	if rb.Lo > rb.Hi {
		rb.Lo, rb.Hi = rb.Hi, rb.Lo
	}
	return ra, rb
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
