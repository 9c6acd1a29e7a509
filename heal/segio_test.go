package heal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")

	coll := Collection{}
	fs := NewFrameSet()
	a := fs.Add(testLine(10, 20, 1, 0.5, 5, 0.7))
	b := fs.Add(testLine(40, 60, 1, 0, 3, 0.9))
	coll[0] = fs
	coll[7] = NewFrameSet()

	require.NoError(t, SaveSegments(path, coll))

	loaded, err := LoadSegments(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, 2, loaded[0].Len())
	assert.Equal(t, 0, loaded[7].Len())

	la := loaded[0].Get(a.ID)
	require.NotNil(t, la, "handle %d not preserved", a.ID)
	assert.Equal(t, a.X, la.X)
	assert.Equal(t, a.Y, la.Y)
	assert.Equal(t, a.Thick, la.Thick)
	assert.Equal(t, a.Score, la.Score)

	lb := loaded[0].Get(b.ID)
	require.NotNil(t, lb, "handle %d not preserved", b.ID)
	assert.Equal(t, b.X, lb.X)
}

func TestLoadSegmentsDropsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")

	data := `{"0": [
		{"id": 0, "x": [1, 2], "y": [3, 4], "thick": [1, 1], "score": [1, 1]},
		{"id": 1, "x": [1, 2], "y": [3], "thick": [1, 1], "score": [1, 1]},
		{"id": 2, "x": [], "y": [], "thick": [], "score": []}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	loaded, err := LoadSegments(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded[0].Len())
	assert.NotNil(t, loaded[0].Get(0))
}

func TestLoadSegmentsHandleCounterAdvances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")

	data := `{"0": [{"id": 5, "x": [1, 2], "y": [3, 4], "thick": [1, 1], "score": [1, 1]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	loaded, err := LoadSegments(path)
	require.NoError(t, err)

	added := loaded[0].Add(testLine(0, 0, 1, 0, 2, 1))
	assert.Greater(t, added.ID, 5, "new handle must not collide with a restored one")
}

func TestLoadSegmentsMissingFile(t *testing.T) {
	_, err := LoadSegments(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadSegmentsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadSegments(path)
	require.Error(t, err)
}
