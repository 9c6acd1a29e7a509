package heal

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// Hit is one sample-point membership in a collision cell.
type Hit struct {
	Seg   *Segment
	Index int
}

// CollisionTable is a transient spatial hash over the sample points of a
// frame's segments. Every point is quantized into a square cell of BinSize
// pixels; cells holding points from more than one segment indicate that two
// traces cover the same part of the image.
//
// The table is consumed destructively: Drain reports each colliding region
// at most once per table lifetime, evicting every cell it scans. It is
// rebuilt from scratch for every resolver iteration.
type CollisionTable struct {
	cells  map[int]map[Hit]struct{}
	scale  float64
	stride int
	height int
	width  int
}

// NewCollisionTable indexes every sample point of every segment in fs into
// cells of scale pixels over an image of the given shape.
func NewCollisionTable(fs *FrameSet, height, width int, scale float64) *CollisionTable {
	t := &CollisionTable{
		cells:  make(map[int]map[Hit]struct{}),
		scale:  scale,
		stride: int(math.Ceil(float64(width) / scale)),
		height: height,
		width:  width,
	}
	for _, s := range fs.Segments() {
		t.Add(s)
	}
	return t
}

// cellIndex maps a sample position to its cell.
func (t *CollisionTable) cellIndex(x, y float64) int {
	return int(math.Floor(x/t.scale)) + t.stride*int(math.Floor(y/t.scale))
}

// Add indexes all sample points of a segment. A segment revisiting a cell
// contributes only its earliest point there, so a curling trace cannot
// collide with itself. Malformed segments are ignored.
func (t *CollisionTable) Add(s *Segment) {
	if !s.valid() {
		return
	}
	seen := make(map[int]struct{})
	for i := 0; i < s.Len(); i++ {
		cell := t.cellIndex(s.X[i], s.Y[i])
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		set, ok := t.cells[cell]
		if !ok {
			set = make(map[Hit]struct{})
			t.cells[cell] = set
		}
		set[Hit{Seg: s, Index: i}] = struct{}{}
	}
}

// Remove drops all memberships of a segment. Removing a malformed or absent
// segment is a no-op.
func (t *CollisionTable) Remove(s *Segment) {
	if !s.valid() {
		return
	}
	for i := 0; i < s.Len(); i++ {
		cell := t.cellIndex(s.X[i], s.Y[i])
		if set, ok := t.cells[cell]; ok {
			delete(set, Hit{Seg: s, Index: i})
			if len(set) == 0 {
				delete(t.cells, cell)
			}
		}
	}
}

// Drain scans the remaining cells in ascending index order, evicting every
// visited cell, and returns the first membership group with points from a
// shared cell of size greater than one. The group is ordered by (segment
// handle, point index). It returns nil once no such cell remains; the table
// is then empty.
func (t *CollisionTable) Drain() []Hit {
	keys := make([]int, 0, len(t.cells))
	for k := range t.cells {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, k := range keys {
		set := t.cells[k]
		delete(t.cells, k)
		if len(set) < 2 {
			continue
		}
		group := make([]Hit, 0, len(set))
		for h := range set {
			group = append(group, h)
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].Seg.ID != group[j].Seg.ID {
				return group[i].Seg.ID < group[j].Seg.ID
			}
			return group[i].Index < group[j].Index
		})
		return group
	}
	return nil
}

// Update removes stale memberships for replaced segments and indexes their
// replacements so draining can continue after a structural change. The
// endpoint pieces of every replacement are added first and any middle
// remainders last, keeping freshly cut ends visible to the current drain
// pass before interior material re-enters the table.
func (t *CollisionTable) Update(changes map[*Segment][]*Segment) {
	olds := make([]*Segment, 0, len(changes))
	for old := range changes {
		olds = append(olds, old)
	}
	sort.Slice(olds, func(i, j int) bool { return olds[i].ID < olds[j].ID })

	var middles []*Segment
	for _, old := range olds {
		t.Remove(old)
		parts := changes[old]
		if len(parts) == 0 {
			continue
		}
		t.Add(parts[0])
		if len(parts) > 1 {
			t.Add(parts[len(parts)-1])
			middles = append(middles, parts[1:len(parts)-1]...)
		}
	}
	for _, m := range middles {
		t.Add(m)
	}
}

// Counts renders the remaining cell occupancy as a grayscale image, one
// pixel per cell. Useful for eyeballing where collisions concentrate.
func (t *CollisionTable) Counts() *image.Gray {
	w := t.stride
	h := int(math.Ceil(float64(t.height) / t.scale))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for cell, set := range t.cells {
		x := cell % t.stride
		y := cell / t.stride
		if x >= w || y >= h {
			continue
		}
		n := len(set)
		if n > 255 {
			n = 255
		}
		img.SetGray(x, y, color.Gray{Y: uint8(n)})
	}
	return img
}
