package heal

import (
	"encoding/json"
	"fmt"
	"os"
)

// Collection maps frame index to that frame's segment set. It is the
// interchange form handed to and received from the serializer.
type Collection map[int]*FrameSet

// LoadSegments reads a segment collection from a JSON file produced by an
// upstream tracer export. Segment handles from the file are preserved;
// malformed segments are dropped.
func LoadSegments(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment file: %w", err)
	}

	var raw map[int][]*Segment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing segment JSON: %w", err)
	}

	coll := make(Collection, len(raw))
	for fid, segs := range raw {
		fs := NewFrameSet()
		for _, s := range segs {
			if !s.valid() {
				continue
			}
			fs.restore(s)
		}
		coll[fid] = fs
	}
	return coll, nil
}

// SaveSegments writes a segment collection as JSON, segments ordered by
// handle within each frame.
func SaveSegments(path string, coll Collection) error {
	raw := make(map[int][]*Segment, len(coll))
	for fid, fs := range coll {
		raw[fid] = fs.Segments()
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling segment JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing segment file: %w", err)
	}
	return nil
}
