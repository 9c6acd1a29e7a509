package heal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNonFiniteJoin reports that a join solve produced non-finite cubic
// coefficients. Callers skip the offending candidate and continue.
var ErrNonFiniteJoin = errors.New("join solve produced non-finite coefficients")

// Cubic is one coordinate of a parametric cubic curve on t in [0, 1],
// coefficients highest order first: c[0]t³ + c[1]t² + c[2]t + c[3].
type Cubic [4]float64

// Eval evaluates the polynomial at t.
func (c Cubic) Eval(t float64) float64 {
	return ((c[0]*t+c[1])*t+c[2])*t + c[3]
}

// Deriv returns the first derivative, degree-shifted into a Cubic.
func (c Cubic) Deriv() Cubic {
	return Cubic{0, 3 * c[0], 2 * c[1], c[2]}
}

// Deriv2 returns the second derivative, degree-shifted into a Cubic.
func (c Cubic) Deriv2() Cubic {
	return Cubic{0, 0, 6 * c[0], 2 * c[1]}
}

// hermiteInverse is the inverse of the cubic boundary-value system matrix
//
//	[ a³   a²  a  1 ]
//	[ b³   b²  b  1 ]
//	[ 3a²  2a  1  0 ]
//	[ 3b²  2b  1  0 ]
//
// for the parameter interval a=0, b=1. The interval never varies, so the
// inverse is a constant and every join costs one 4×4 multiply per axis.
var hermiteInverse = mat.NewDense(4, 4, []float64{
	2, -2, 1, 1,
	-3, 3, -2, -1,
	0, 0, 1, 0,
	1, 0, 0, 0,
})

// SolveJoin computes the parametric cubic joining the trailing end of left
// to the leading end of right, matching position and slope at both
// boundaries. Tangents are estimated from the quarter of each segment
// nearest the joined end; segments too short for that use their whole-length
// mean step, and a degenerate (zero-span) tangent falls back to the chord
// between the two endpoints. Tangents are scaled by the endpoint chord
// length so the parametrization speed matches sample density.
//
// With reverse set, both endpoint tangents are negated; joining a segment to
// itself this way yields a self-consistency diagnostic curve.
//
// Returns ErrNonFiniteJoin if any resulting coefficient is not finite.
func SolveJoin(left, right *Segment, reverse bool) (cx, cy Cubic, err error) {
	nl := left.Len() / 4
	nr := right.Len() / 4

	var dlx, dly, drx, dry float64
	switch {
	case nr < 2 && nl < 2:
		dlx, dly = meanTangent(left)
		drx, dry = meanTangent(right)
	case nr < 2:
		dlx, dly = endTangent(left, Trailing, nl)
		drx, dry = meanTangent(right)
	case nl < 2:
		dlx, dly = meanTangent(left)
		drx, dry = endTangent(right, Leading, nr)
	default:
		dlx, dly = endTangent(left, Trailing, nl)
		drx, dry = endTangent(right, Leading, nr)
	}

	lx, ly := left.X[left.Len()-1], left.Y[left.Len()-1]
	rx, ry := right.X[0], right.Y[0]
	chord := math.Hypot(rx-lx, ry-ly)

	// Straight-line fallback for degenerate tangents.
	if !isFinite(dlx) {
		dlx = (rx - lx) / chord
	}
	if !isFinite(dly) {
		dly = (ry - ly) / chord
	}
	if !isFinite(drx) {
		drx = (rx - lx) / chord
	}
	if !isFinite(dry) {
		dry = (ry - ly) / chord
	}

	if reverse {
		dlx, dly = -dlx, -dly
		drx, dry = -drx, -dry
	}

	// dy/dt = dy/dl · dl/dt, with the chord length approximating dl/dt.
	xv := mat.NewVecDense(4, []float64{lx, rx, dlx * chord, drx * chord})
	yv := mat.NewVecDense(4, []float64{ly, ry, dly * chord, dry * chord})

	var xc, yc mat.VecDense
	xc.MulVec(hermiteInverse, xv)
	yc.MulVec(hermiteInverse, yv)

	for i := 0; i < 4; i++ {
		cx[i] = xc.AtVec(i)
		cy[i] = yc.AtVec(i)
	}
	for i := 0; i < 4; i++ {
		if !isFinite(cx[i]) || !isFinite(cy[i]) {
			return Cubic{}, Cubic{}, fmt.Errorf("joining segments %d and %d: %w", left.ID, right.ID, ErrNonFiniteJoin)
		}
	}
	return cx, cy, nil
}

// endTangent estimates the forward unit tangent at one end of a segment
// from its n boundary points: the coordinate change across the boundary
// region divided by the region's path length.
func endTangent(s *Segment, e End, n int) (dx, dy float64) {
	m := s.Len()
	var lo, hi int
	if e == Trailing {
		lo, hi = m-n, m-1
	} else {
		lo, hi = 0, n-1
	}
	norm := pathLength(s.X[lo:hi+1], s.Y[lo:hi+1])
	return (s.X[hi] - s.X[lo]) / norm, (s.Y[hi] - s.Y[lo]) / norm
}

// meanTangent estimates the tangent of a short segment as the mean sample
// step normalized by total path length.
func meanTangent(s *Segment) (dx, dy float64) {
	m := s.Len()
	norm := pathLength(s.X, s.Y)
	steps := float64(m - 1)
	return (s.X[m-1] - s.X[0]) / steps / norm, (s.Y[m-1] - s.Y[0]) / steps / norm
}

// pathLength is the summed Euclidean distance between consecutive samples.
func pathLength(xs, ys []float64) float64 {
	var sum float64
	for i := 1; i < len(xs); i++ {
		sum += math.Hypot(xs[i]-xs[i-1], ys[i]-ys[i-1])
	}
	return sum
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
