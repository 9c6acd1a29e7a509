package heal

import (
	"sort"

	"github.com/paulmach/orb"
)

// Segment is one traced whisker polyline in a single frame. Sample points are
// stored as parallel slices: position (X, Y), estimated thickness, and the
// tracer's per-point confidence score. Index order runs end to end along the
// whisker, but the absolute direction is not guaranteed to be consistent
// between segments.
//
// Segments are identity objects: two segments are "the same" iff their
// handles are equal. Handles are assigned by the owning FrameSet and are
// never reused within a frame.
type Segment struct {
	ID    int       `json:"id"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Thick []float64 `json:"thick"`
	Score []float64 `json:"score"`
}

// End identifies one end of a segment.
type End int

const (
	// Leading is the end at index 0.
	Leading End = iota
	// Trailing is the end at the last index.
	Trailing
)

// Len returns the number of sample points.
func (s *Segment) Len() int {
	if s == nil {
		return 0
	}
	return len(s.X)
}

// valid reports whether the segment has at least one point and consistent
// slice lengths. Malformed segments are silently ignored by table operations.
func (s *Segment) valid() bool {
	if s == nil || len(s.X) == 0 {
		return false
	}
	n := len(s.X)
	return len(s.Y) == n && len(s.Thick) == n && len(s.Score) == n
}

// Point returns sample i as an orb.Point.
func (s *Segment) Point(i int) orb.Point {
	return orb.Point{s.X[i], s.Y[i]}
}

// EndPoint returns the position of the given end.
func (s *Segment) EndPoint(e End) orb.Point {
	if e == Leading {
		return s.Point(0)
	}
	return s.Point(s.Len() - 1)
}

// EndScore returns the tracer score at the given end.
func (s *Segment) EndScore(e End) float64 {
	if e == Leading {
		return s.Score[0]
	}
	return s.Score[len(s.Score)-1]
}

// TotalScore is the summed per-point score, used to rank duplicate traces.
func (s *Segment) TotalScore() float64 {
	var sum float64
	for _, v := range s.Score {
		sum += v
	}
	return sum
}

// Reversed returns a copy of the segment with sample order flipped. The
// handle is preserved; geometry is unchanged.
func (s *Segment) Reversed() *Segment {
	n := s.Len()
	r := &Segment{
		ID:    s.ID,
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Thick: make([]float64, n),
		Score: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		j := n - 1 - i
		r.X[i], r.Y[i] = s.X[j], s.Y[j]
		r.Thick[i], r.Score[i] = s.Thick[j], s.Score[j]
	}
	return r
}

// FrameSet owns the segments of one frame, addressed by stable integer
// handles. It is mutated in place across resolver iterations: duplicates are
// removed, gap bridges are spliced in.
type FrameSet struct {
	segments map[int]*Segment
	nextID   int
}

// NewFrameSet returns an empty FrameSet.
func NewFrameSet() *FrameSet {
	return &FrameSet{segments: make(map[int]*Segment)}
}

// Add inserts a segment, assigns it the next free handle, and returns it.
func (fs *FrameSet) Add(s *Segment) *Segment {
	s.ID = fs.nextID
	fs.nextID++
	fs.segments[s.ID] = s
	return s
}

// restore inserts a segment under its existing handle, keeping the handle
// counter ahead of it. Used when rebuilding a FrameSet from disk.
func (fs *FrameSet) restore(s *Segment) {
	fs.segments[s.ID] = s
	if s.ID >= fs.nextID {
		fs.nextID = s.ID + 1
	}
}

// Remove deletes the segment with the given handle. Removing an unknown
// handle is a no-op.
func (fs *FrameSet) Remove(id int) {
	delete(fs.segments, id)
}

// Get returns the segment with the given handle, or nil.
func (fs *FrameSet) Get(id int) *Segment {
	return fs.segments[id]
}

// Len returns the number of segments.
func (fs *FrameSet) Len() int {
	return len(fs.segments)
}

// Segments returns the segments ordered by handle. The order is the
// deterministic iteration order used everywhere segments are enumerated.
func (fs *FrameSet) Segments() []*Segment {
	out := make([]*Segment, 0, len(fs.segments))
	for _, s := range fs.segments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
