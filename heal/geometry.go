package heal

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// quadPoints is the Gauss-Legendre node count for the join integrals. The
// integrands are smooth rational functions of a cubic, so a fixed rule at
// this order is well past convergence.
const quadPoints = 64

// curvatureSearchTol is the parameter tolerance for the bounded maximum
// curvature search.
const curvatureSearchTol = 0.005

// scoreSamples is the number of curve samples taken by the photometric
// scoring functions.
const scoreSamples = 50

// poly is a dense polynomial, coefficients highest order first.
type poly []float64

func (p poly) eval(t float64) float64 {
	var v float64
	for _, c := range p {
		v = v*t + c
	}
	return v
}

func polyMul(a, b poly) poly {
	out := make(poly, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func polyAdd(a, b poly) poly {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make(poly, len(a))
	copy(out, a)
	off := len(a) - len(b)
	for i, bv := range b {
		out[off+i] += bv
	}
	return out
}

func (c Cubic) poly() poly {
	return poly{c[0], c[1], c[2], c[3]}
}

// speedSquared returns x'(t)² + y'(t)² as a polynomial.
func speedSquared(cx, cy Cubic) poly {
	xp := cx.Deriv().poly()
	yp := cy.Deriv().poly()
	return polyAdd(polyMul(xp, xp), polyMul(yp, yp))
}

// curvatureParts returns the numerator x'·y'' + y'·x'' and denominator
// x'² + y'² of the join curvature measure.
func curvatureParts(cx, cy Cubic) (pn, pd poly) {
	xp, xpp := cx.Deriv().poly(), cx.Deriv2().poly()
	yp, ypp := cy.Deriv().poly(), cy.Deriv2().poly()
	pn = polyAdd(polyMul(xp, ypp), polyMul(yp, xpp))
	pd = polyAdd(polyMul(xp, xp), polyMul(yp, yp))
	return pn, pd
}

// JoinLength is the arc length of the curve over t in [0, 1].
func JoinLength(cx, cy Cubic) float64 {
	p := speedSquared(cx, cy)
	return quad.Fixed(func(t float64) float64 {
		return math.Sqrt(p.eval(t))
	}, 0, 1, quadPoints, nil, 0)
}

// JoinCurvature integrates the signed curvature measure over the curve.
func JoinCurvature(cx, cy Cubic) float64 {
	pn, pd := curvatureParts(cx, cy)
	return quad.Fixed(func(t float64) float64 {
		return pn.eval(t) / math.Sqrt(pd.eval(t))
	}, 0, 1, quadPoints, nil, 0)
}

// JoinAbsCurvature integrates the magnitude of the curvature measure.
func JoinAbsCurvature(cx, cy Cubic) float64 {
	pn, pd := curvatureParts(cx, cy)
	return quad.Fixed(func(t float64) float64 {
		return math.Abs(pn.eval(t) / math.Sqrt(pd.eval(t)))
	}, 0, 1, quadPoints, nil, 0)
}

// JoinCurvatureVariation is the RMS deviation of the curvature measure about
// the supplied mean.
func JoinCurvatureVariation(cx, cy Cubic, mean float64) float64 {
	pn, pd := curvatureParts(cx, cy)
	ms := quad.Fixed(func(t float64) float64 {
		k := pn.eval(t) / math.Sqrt(pd.eval(t))
		return k * k
	}, 0, 1, quadPoints, nil, 0)
	return math.Sqrt(ms - mean*mean)
}

// JoinMaxCurvature is the maximum pointwise curvature magnitude, found by
// bounded minimization of the negated measure.
func JoinMaxCurvature(cx, cy Cubic) float64 {
	pn, pd := curvatureParts(cx, cy)
	kappa := func(t float64) float64 {
		return -math.Abs(pn.eval(t) / math.Sqrt(pd.eval(t)))
	}
	t := minimizeBounded(kappa, 0, 1, curvatureSearchTol)
	return -kappa(t)
}

// JoinAngle integrates the tangent direction along the curve.
func JoinAngle(cx, cy Cubic) float64 {
	xp := cx.Deriv().poly()
	yp := cy.Deriv().poly()
	return quad.Fixed(func(t float64) float64 {
		return math.Atan2(yp.eval(t), xp.eval(t))
	}, 0, 1, quadPoints, nil, 0)
}

// minimizeBounded finds a local minimizer of f on [a, b] by golden-section
// search, stopping when the bracket shrinks below tol.
func minimizeBounded(f func(float64) float64, a, b, tol float64) float64 {
	const invPhi = 0.6180339887498949
	x1 := b - invPhi*(b-a)
	x2 := a + invPhi*(b-a)
	f1, f2 := f(x1), f(x2)
	for b-a > tol {
		if f1 < f2 {
			b, x2, f2 = x2, x1, f1
			x1 = b - invPhi*(b-a)
			f1 = f(x1)
		} else {
			a, x1, f1 = x1, x2, f2
			x2 = a + invPhi*(b-a)
			f2 = f(x2)
		}
	}
	return (a + b) / 2
}

// Intensity is the mean pixel value at the rounded integer coordinates of
// the sample positions. Coordinates hitting the same pixel are counted once.
// Any sample outside the image yields +Inf, which naturally fails every
// downstream threshold.
func Intensity(im *Frame, xs, ys []float64) float64 {
	type pixel struct{ x, y int }
	seen := make(map[pixel]struct{}, len(xs))
	var sum float64
	for i := range xs {
		x := int(math.Round(xs[i]))
		y := int(math.Round(ys[i]))
		if x < 0 || x >= im.Width || y < 0 || y >= im.Height {
			return math.Inf(1)
		}
		px := pixel{x, y}
		if _, ok := seen[px]; ok {
			continue
		}
		seen[px] = struct{}{}
		sum += im.At(x, y)
	}
	return sum / float64(len(seen))
}

// JoinIntensity is the mean image intensity along the curve.
func JoinIntensity(im *Frame, cx, cy Cubic) float64 {
	xs := make([]float64, scoreSamples)
	ys := make([]float64, scoreSamples)
	for i := 0; i < scoreSamples; i++ {
		t := float64(i) / float64(scoreSamples-1)
		xs[i] = cx.Eval(t)
		ys[i] = cy.Eval(t)
	}
	return Intensity(im, xs, ys)
}

// JoinScore is the photometric contrast of a candidate bridge: the mean
// intensity along the curve minus the brighter of two parallel fringe
// curves offset perpendicular by thick pixels, halved. A whisker is darker
// than the field around it, so a curve tracking a real whisker comes out
// negative; comparing against only the brighter fringe tolerates an
// occluder darkening one side.
func JoinScore(im *Frame, cx, cy Cubic, thick float64) float64 {
	ux := make([]float64, scoreSamples)
	uy := make([]float64, scoreSamples)
	for i := 0; i < scoreSamples; i++ {
		t := float64(i) / float64(scoreSamples-1)
		ux[i] = cx.Eval(t)
		uy[i] = cy.Eval(t)
	}

	// Per-sample step vectors; the first sample reuses the first step.
	dx := make([]float64, scoreSamples)
	dy := make([]float64, scoreSamples)
	for i := 1; i < scoreSamples; i++ {
		dx[i] = ux[i] - ux[i-1]
		dy[i] = uy[i] - uy[i-1]
	}
	dx[0], dy[0] = dx[1], dy[1]

	lx := make([]float64, scoreSamples)
	ly := make([]float64, scoreSamples)
	rx := make([]float64, scoreSamples)
	ry := make([]float64, scoreSamples)
	for i := 0; i < scoreSamples; i++ {
		dl := math.Hypot(dx[i], dy[i])
		lx[i] = ux[i] + thick*dy[i]/dl
		ly[i] = uy[i] - thick*dx[i]/dl
		rx[i] = ux[i] - thick*dy[i]/dl
		ry[i] = uy[i] + thick*dx[i]/dl
	}

	center := Intensity(im, ux, uy)
	fringe := math.Max(Intensity(im, lx, ly), Intensity(im, rx, ry))
	return (center - fringe) / 2
}
