package compositor

import (
	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// DrawInstruction tells a rasterizer how to put one source on the canvas.
type DrawInstruction struct {
	Index      int
	ID         string
	Kind       timeline.Kind
	URI        string
	SourceTime float64
	Resolution timeline.Resolution

	Crop    crop.Rect              // validated window in quad space
	Quad    geometry.Quadrilateral // valid outline of the tilted source
	Filter  string
	Edition timeline.EditionParameters

	Alpha   float64 // 0..1
	OffsetX float64 // canvas pixels
	OffsetY float64
}

// Blend appends the draw list for f to dst[:0], outgoing first so the
// incoming item lands on top. in and out are the already prepared
// instructions for the two items.
//
//   - none: only the incoming item, fully opaque.
//   - fade: outgoing alpha 1-p, incoming alpha p.
//   - slide: both move left by p canvas widths; the incoming item starts one
//     width to the right.
func Blend(dst []DrawInstruction, f Frame, in, out DrawInstruction, canvas timeline.Canvas) []DrawInstruction {
	dst = dst[:0]
	in.Alpha, in.OffsetX, in.OffsetY = 1, 0, 0
	if !f.HasOutgoing {
		return append(dst, in)
	}
	out.Alpha, out.OffsetX, out.OffsetY = 1, 0, 0

	p := clamp01(f.Progress)
	switch f.Transition {
	case timeline.TransitionFade:
		out.Alpha = 1 - p
		in.Alpha = p
		return append(dst, out, in)

	case timeline.TransitionSlide:
		w := float64(canvas.Width)
		// signed progress: -1 when the incoming item is fully off to the right
		s := p - 1
		out.OffsetX = -p * w
		in.OffsetX = -s * w
		return append(dst, out, in)
	}
	return append(dst, in)
}
