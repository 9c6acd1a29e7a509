package heal

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// FrameRenderer draws one frame's segments, dangling ends, and accepted
// bridges as a PNG, for eyeballing what the healer decided.
type FrameRenderer struct {
	Resolution  canvas.Resolution
	StrokeWidth float64

	// MarkerRadius is the dangling-end marker size in pixels.
	MarkerRadius float64
}

// NewFrameRenderer returns a renderer with defaults suited to whisker
// movies (hundreds of pixels on a side).
func NewFrameRenderer() *FrameRenderer {
	return &FrameRenderer{
		Resolution:   canvas.DPI(300),
		StrokeWidth:  1.0,
		MarkerRadius: 3.0,
	}
}

// segmentPalette cycles across segments so adjacent traces are
// distinguishable.
var segmentPalette = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0x94, 0x67, 0xbd, 0xff},
	{0x8c, 0x56, 0x4b, 0xff},
	{0xe3, 0x77, 0xc2, 0xff},
}

// bridgeColor marks synthesized gap bridges.
var bridgeColor = color.RGBA{0xd6, 0x27, 0x28, 0xff}

// RenderToPNG writes the diagnostic image. The ends and bridges arguments
// are optional overlays; pass nil to draw segments only.
func (r *FrameRenderer) RenderToPNG(w io.Writer, width, height int, fs *FrameSet, ends []EndRef, bridges []CandidateJoin) error {
	rast := rasterizer.New(float64(width), float64(height), r.Resolution, canvas.DefaultColorSpace)

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	rast.RenderPath(canvas.Rectangle(float64(width), float64(height)), bgStyle, canvas.Identity)

	// Traced segments, one polyline each.
	for i, s := range fs.Segments() {
		if s.Len() < 2 {
			continue
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: segmentPalette[i%len(segmentPalette)]}
		style.StrokeWidth = r.StrokeWidth

		p := &canvas.Path{}
		p.MoveTo(s.X[0], s.Y[0])
		for j := 1; j < s.Len(); j++ {
			p.LineTo(s.X[j], s.Y[j])
		}
		rast.RenderPath(p, style, canvas.Identity)
	}

	// Dangling-end markers.
	markStyle := canvas.DefaultStyle
	markStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	markStyle.Stroke = canvas.Paint{Color: canvas.Black}
	markStyle.StrokeWidth = r.StrokeWidth / 2
	for _, e := range ends {
		pt := e.Seg.EndPoint(e.End)
		marker := canvas.Circle(r.MarkerRadius).Translate(pt[0], pt[1])
		rast.RenderPath(marker, markStyle, canvas.Identity)
	}

	// Accepted bridges, sampled from their cubics.
	bridgeStyle := canvas.DefaultStyle
	bridgeStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	bridgeStyle.Stroke = canvas.Paint{Color: bridgeColor}
	bridgeStyle.StrokeWidth = r.StrokeWidth
	for _, b := range bridges {
		p := &canvas.Path{}
		for i := 0; i < scoreSamples; i++ {
			t := float64(i) / float64(scoreSamples-1)
			x, y := b.CX.Eval(t), b.CY.Eval(t)
			if i == 0 {
				p.MoveTo(x, y)
			} else {
				p.LineTo(x, y)
			}
		}
		rast.RenderPath(p, bridgeStyle, canvas.Identity)
	}

	return png.Encode(w, rast)
}
