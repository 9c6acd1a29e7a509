package heal

// duel judges one colliding pair. The pair counts as duplicate traces when
// the mutual overlap covers at least frac of either segment's length; the
// loser (the lower summed score) is returned for discarding. The caller
// passes hits ordered by handle, and a score tie keeps the first (lower
// handle) side, so the verdict is deterministic. Returns nil when the pair
// is not a duplicate.
func duel(a, b Hit, frac float64) *Segment {
	ra, rb := Overlap(a.Seg, a.Index, b.Seg, b.Index, DefaultAlignDist)
	completeA := float64(ra.Span()) >= float64(a.Seg.Len())*frac
	completeB := float64(rb.Span()) >= float64(b.Seg.Len())*frac
	if !completeA && !completeB {
		return nil
	}
	if a.Seg.TotalScore() >= b.Seg.TotalScore() {
		return b.Seg
	}
	return a.Seg
}

// judgeGroup runs every unordered pair of a collision group through duel
// and partitions the group's segments into keepers and discards. A segment
// survives the group iff it loses no pairwise comparison.
func judgeGroup(group []Hit, frac float64) (keep, discard []*Segment) {
	lost := make(map[*Segment]bool, len(group))
	for _, h := range group {
		lost[h.Seg] = false
	}
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if loser := duel(group[i], group[j], frac); loser != nil {
				lost[loser] = true
			}
		}
	}
	for _, h := range group {
		if lost[h.Seg] {
			discard = append(discard, h.Seg)
		} else {
			keep = append(keep, h.Seg)
		}
	}
	return keep, discard
}

// Resolve drains the collision table and removes duplicate traces from fs
// in place. Discarded segments are also removed from the table so later
// groups never re-report them; segments untouched by any multi-membership
// cell survive unconditionally. Returns the number of segments discarded.
func Resolve(table *CollisionTable, fs *FrameSet, frac float64) int {
	discarded := 0
	for group := table.Drain(); group != nil; group = table.Drain() {
		_, losers := judgeGroup(group, frac)
		for _, s := range losers {
			table.Remove(s)
			fs.Remove(s.ID)
			discarded++
		}
	}
	return discarded
}

// FixFrame resolves duplicate traces in one frame to a fixed point:
// rebuild the collision table, resolve, and repeat until the segment count
// stabilizes. Discarding a trace can unmask collisions that its cells were
// hiding, so a single pass is not sufficient.
func FixFrame(fs *FrameSet, height, width int, p Params) {
	last := -1
	for fs.Len() != last {
		last = fs.Len()
		table := NewCollisionTable(fs, height, width, p.BinSize)
		Resolve(table, fs, p.OverlapThresh)
	}
}
