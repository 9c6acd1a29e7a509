package heal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// endDirectionWindow is the number of boundary samples averaged when
// estimating the outgoing direction of a dangling end.
const endDirectionWindow = 16

// EndRef identifies one dangling end of a segment.
type EndRef struct {
	Seg *Segment
	End End
}

// FilterEnds returns the ends qualifying for gap closing: the end point
// must lie more than border pixels inside the image and its tracer score
// must exceed minScore. Ends near the frame edge are excluded because a
// trace stopping there usually ran off the field of view, not into an
// occlusion.
func FilterEnds(fs *FrameSet, minScore float64, height, width int, border float64) []EndRef {
	var out []EndRef
	for _, s := range fs.Segments() {
		if !s.valid() {
			continue
		}
		for _, e := range []End{Leading, Trailing} {
			pt := s.EndPoint(e)
			inside := pt[0] > border && pt[0] < float64(width)-border &&
				pt[1] > border && pt[1] < float64(height)-border
			if inside && s.EndScore(e) > minScore {
				out = append(out, EndRef{Seg: s, End: e})
			}
		}
	}
	return out
}

// GroupEnds partitions qualifying ends into the leading set (bridges arrive
// here) and the trailing set (bridges depart from here).
func GroupEnds(ends []EndRef) (leading, trailing []EndRef) {
	for _, e := range ends {
		if e.End == Leading {
			leading = append(leading, e)
		} else {
			trailing = append(trailing, e)
		}
	}
	return leading, trailing
}

// EndDirection estimates the mean sample step near the given end. The
// window excludes the final sample at a trailing end, matching the tangent
// the join solver will reproduce there. Returns NaN components when the
// window is too short to difference; such ends fail the angular gate.
func EndDirection(s *Segment, e End) (dx, dy float64) {
	b := s.Len()
	if b > endDirectionWindow {
		b = endDirectionWindow
	}
	var lo, hi int
	if e == Leading {
		lo, hi = 0, b-1
	} else {
		lo, hi = s.Len()-b, s.Len()-2
	}
	steps := hi - lo
	if steps < 1 {
		return math.NaN(), math.NaN()
	}
	return (s.X[hi] - s.X[lo]) / float64(steps), (s.Y[hi] - s.Y[lo]) / float64(steps)
}

// CandidateJoin is a proposed bridge across an occlusion gap: a parametric
// cubic leaving the trailing end of From and arriving at the leading end of
// To, with the photometric evidence backing it.
type CandidateJoin struct {
	From  *Segment
	To    *Segment
	CX    Cubic
	CY    Cubic
	Dist  float64
	Score float64
}

// ChooseGaps proposes the set of gap bridges for one frame. An end pair
// must keep its endpoint distance below MaxDist, project positively onto
// the leading end's tangent, and stay within MaxAngle of it; the bridge
// curve solved for the pair must then score above SignalPerPixel.
// Surviving candidates compete in a minimum-cost one-to-one assignment
// (cost is the negated score), so no end is bridged twice.
//
// The returned candidates are ordered by (From, To) handle.
func ChooseGaps(im *Frame, fs *FrameSet, p Params) []CandidateJoin {
	leading, trailing := GroupEnds(FilterEnds(fs, p.MinScore, im.Height, im.Width, p.Border))
	if len(leading) == 0 || len(trailing) == 0 {
		return nil
	}

	cost := mat.NewDense(len(leading), len(trailing), nil)
	cands := make(map[[2]int]CandidateJoin)
	hit := false

	for i, a := range leading {
		for j, b := range trailing {
			cost.Set(i, j, forbiddenCost)
			if a.Seg == b.Seg {
				continue
			}

			dx := a.Seg.X[0] - b.Seg.X[b.Seg.Len()-1]
			dy := a.Seg.Y[0] - b.Seg.Y[b.Seg.Len()-1]
			d := math.Hypot(dx, dy)

			// Projection of the connecting vector onto the leading
			// end's outgoing tangent; the bridge must run forward.
			vx, vy := EndDirection(a.Seg, Leading)
			norm := math.Hypot(vx, vy)
			proj := (vx*dx + vy*dy) / norm

			// Angular deviation between tangent and connecting line.
			px := dx - proj*vx/norm
			py := dy - proj*vy/norm
			jth := math.Abs(math.Atan2(math.Hypot(px, py), proj))

			if !(d < p.MaxDist && jth < p.MaxAngle && proj > 0) {
				continue
			}

			cx, cy, err := SolveJoin(b.Seg, a.Seg, false)
			if err != nil {
				continue
			}
			// Whiskers are dark on a light field; negate so that a
			// convincing bridge scores positive.
			score := -JoinScore(im, cx, cy, p.Thick)
			if score <= p.SignalPerPixel {
				continue
			}

			hit = true
			cost.Set(i, j, -score)
			cands[[2]int{i, j}] = CandidateJoin{
				From:  b.Seg,
				To:    a.Seg,
				CX:    cx,
				CY:    cy,
				Dist:  d,
				Score: score,
			}
		}
	}
	if !hit {
		return nil
	}

	var chosen []CandidateJoin
	for i, j := range assignMinCost(cost) {
		if j < 0 {
			continue
		}
		if c, ok := cands[[2]int{i, j}]; ok {
			chosen = append(chosen, c)
		}
	}
	sort.Slice(chosen, func(i, j int) bool {
		if chosen[i].From.ID != chosen[j].From.ID {
			return chosen[i].From.ID < chosen[j].From.ID
		}
		return chosen[i].To.ID < chosen[j].To.ID
	})
	return chosen
}

// CloseGaps chooses bridges for the frame and splices each accepted bridge
// into fs, replacing the two endpoint segments with one continuous merged
// segment. Chained bridges are supported: a segment already consumed by an
// earlier splice is resolved to its merged successor. Returns the number of
// bridges spliced.
func CloseGaps(im *Frame, fs *FrameSet, p Params) int {
	chosen := ChooseGaps(im, fs, p)
	if len(chosen) == 0 {
		return 0
	}

	alias := make(map[int]*Segment)
	resolve := func(s *Segment) *Segment {
		for {
			next, ok := alias[s.ID]
			if !ok || next == s {
				return s
			}
			s = next
		}
	}

	spliced := 0
	for _, c := range chosen {
		from := resolve(c.From)
		to := resolve(c.To)
		if from == to {
			continue
		}
		bridge := MakeJoiningSegment(c.CX, c.CY, c.Dist, c.From, c.To)
		merged := spliceJoin(fs, from, bridge, to)
		alias[c.From.ID] = merged
		alias[c.To.ID] = merged
		alias[from.ID] = merged
		alias[to.ID] = merged
		spliced++
	}
	return spliced
}

// MakeJoiningSegment materializes a bridge curve as a segment: one sample
// per pixel of gap distance, thickness and score interpolated linearly
// between the donor ends. The result carries no handle until spliced.
func MakeJoiningSegment(cx, cy Cubic, dist float64, from, to *Segment) *Segment {
	n := int(math.Round(dist))
	if n < 2 {
		n = 2
	}
	fThick := from.Thick[from.Len()-1]
	fScore := from.Score[from.Len()-1]
	tThick := to.Thick[0]
	tScore := to.Score[0]

	s := &Segment{
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Thick: make([]float64, n),
		Score: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		s.X[i] = cx.Eval(t)
		s.Y[i] = cy.Eval(t)
		s.Thick[i] = fThick + t*(tThick-fThick)
		s.Score[i] = fScore + t*(tScore-fScore)
	}
	return s
}

// spliceJoin concatenates from, the bridge interior, and to into one new
// segment owned by fs, removing the two donors. The bridge's first and last
// samples duplicate the donor endpoints and are dropped.
func spliceJoin(fs *FrameSet, from, bridge, to *Segment) *Segment {
	n := from.Len() + bridge.Len() - 2 + to.Len()
	merged := &Segment{
		X:     make([]float64, 0, n),
		Y:     make([]float64, 0, n),
		Thick: make([]float64, 0, n),
		Score: make([]float64, 0, n),
	}
	appendRange := func(s *Segment, lo, hi int) {
		merged.X = append(merged.X, s.X[lo:hi]...)
		merged.Y = append(merged.Y, s.Y[lo:hi]...)
		merged.Thick = append(merged.Thick, s.Thick[lo:hi]...)
		merged.Score = append(merged.Score, s.Score[lo:hi]...)
	}
	appendRange(from, 0, from.Len())
	appendRange(bridge, 1, bridge.Len()-1)
	appendRange(to, 0, to.Len())

	fs.Remove(from.ID)
	fs.Remove(to.ID)
	return fs.Add(merged)
}

// GapMeasures holds per-pair diagnostic matrices for every qualifying
// (leading, trailing) end pair, indexed [leading][trailing]. SelfX and
// SelfY compare each bridge against the reversed self-joins of its donors,
// a consistency check on the tangent estimates.
type GapMeasures struct {
	Dist      *mat.Dense
	Score     *mat.Dense
	Length    *mat.Dense
	Curvature *mat.Dense
	SelfX     *mat.Dense
	SelfY     *mat.Dense
}

// MeasureGaps computes bridge diagnostics for every end pair without
// mutating the frame set. Pairs whose join solve fails are left zero.
func MeasureGaps(im *Frame, fs *FrameSet, p Params) *GapMeasures {
	leading, trailing := GroupEnds(FilterEnds(fs, p.MinScore, im.Height, im.Width, p.Border))
	nl, nt := len(leading), len(trailing)
	if nl == 0 || nt == 0 {
		return nil
	}

	g := &GapMeasures{
		Dist:      mat.NewDense(nl, nt, nil),
		Score:     mat.NewDense(nl, nt, nil),
		Length:    mat.NewDense(nl, nt, nil),
		Curvature: mat.NewDense(nl, nt, nil),
		SelfX:     mat.NewDense(nl, nt, nil),
		SelfY:     mat.NewDense(nl, nt, nil),
	}

	for i, a := range leading {
		for j, b := range trailing {
			dx := a.Seg.X[0] - b.Seg.X[b.Seg.Len()-1]
			dy := a.Seg.Y[0] - b.Seg.Y[b.Seg.Len()-1]
			g.Dist.Set(i, j, math.Hypot(dx, dy))

			px, py, err := SolveJoin(b.Seg, a.Seg, false)
			if err != nil {
				continue
			}
			lpx, lpy, lerr := SolveJoin(a.Seg, a.Seg, true)
			rpx, rpy, rerr := SolveJoin(b.Seg, b.Seg, true)
			if lerr == nil && rerr == nil {
				g.SelfX.Set(i, j, math.Max(coeffDistance(px, lpx), coeffDistance(px, rpx)))
				g.SelfY.Set(i, j, math.Max(coeffDistance(py, lpy), coeffDistance(py, rpy)))
			}
			g.Length.Set(i, j, JoinLength(px, py))
			g.Score.Set(i, j, JoinScore(im, px, py, p.Thick))
			g.Curvature.Set(i, j, JoinCurvature(px, py))
		}
	}
	return g
}

// coeffDistance is the Euclidean distance between the non-constant
// coefficients of two cubics.
func coeffDistance(a, b Cubic) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
