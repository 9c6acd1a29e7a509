package heal

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Decoders for the frame formats exported by upstream tracers.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// Frame is a dense grayscale raster of one video frame. Pixel values are
// luminance in [0, 255], row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float64
}

// NewFrame returns a zeroed frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the pixel value at (x, y). The caller guarantees bounds.
func (f *Frame) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}

// Set assigns the pixel value at (x, y).
func (f *Frame) Set(x, y int, v float64) {
	f.Pix[y*f.Width+x] = v
}

// Shape returns (height, width), matching the row-major convention used by
// the collision grid.
func (f *Frame) Shape() (height, width int) {
	return f.Height, f.Width
}

// FrameFromImage converts a decoded image to a luminance Frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			f.Set(x, y, float64(g.Y))
		}
	}
	return f
}

// FrameSource provides indexable access to the frames of one movie.
type FrameSource interface {
	// Frame returns frame i.
	Frame(i int) (*Frame, error)
	// Len is the number of frames.
	Len() int
	// Shape is the (height, width) shared by all frames.
	Shape() (height, width int)
}

// DirSource reads frames from a directory of image files, one file per
// frame, ordered by filename. PNG, TIFF, and JPEG are recognized.
type DirSource struct {
	paths  []string
	height int
	width  int
}

// NewDirSource scans dir for frame images and decodes the first one to
// learn the movie shape.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".tif", ".tiff", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame images found in %s", dir)
	}

	ds := &DirSource{paths: paths}
	first, err := ds.Frame(0)
	if err != nil {
		return nil, err
	}
	ds.height, ds.width = first.Height, first.Width
	return ds, nil
}

// Frame decodes frame i from disk.
func (ds *DirSource) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(ds.paths) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(ds.paths))
	}
	fh, err := os.Open(ds.paths[i])
	if err != nil {
		return nil, fmt.Errorf("opening frame %d: %w", i, err)
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %d (%s): %w", i, ds.paths[i], err)
	}
	return FrameFromImage(img), nil
}

// Len returns the number of frame files.
func (ds *DirSource) Len() int {
	return len(ds.paths)
}

// Shape returns the shape of the first frame.
func (ds *DirSource) Shape() (height, width int) {
	return ds.height, ds.width
}

// MemSource serves pre-built frames from memory.
type MemSource struct {
	Frames []*Frame
}

// Frame returns frame i.
func (ms *MemSource) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(ms.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(ms.Frames))
	}
	return ms.Frames[i], nil
}

// Len returns the number of frames.
func (ms *MemSource) Len() int {
	return len(ms.Frames)
}

// Shape returns the shape of the first frame, or (0, 0) when empty.
func (ms *MemSource) Shape() (height, width int) {
	if len(ms.Frames) == 0 {
		return 0, 0
	}
	return ms.Frames[0].Height, ms.Frames[0].Width
}
