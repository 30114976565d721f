// Package director turns detected regions into crop suggestions and focus
// tours across a still.
package director

import (
	"image"
	"math"
	"slices"

	"github.com/ivlev/coverstudio/internal/analyzer"
	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/renderer"
)

// rowThreshold groups blocks whose tops are this close into one row.
const rowThreshold = 20

// Director suggests framing from analyzer blocks.
type Director struct {
	Padding   float64 // fraction added around the focus area
	MaxBlocks int     // most salient blocks kept for a suggestion
	MinDwell  float64 // seconds per tour stop
	MaxDwell  float64
	Easing    renderer.Easing
}

func NewDirector() *Director {
	return &Director{
		Padding:   0.1,
		MaxBlocks: 3,
		MinDwell:  1,
		MaxDwell:  3,
		Easing:    renderer.EaseInOutCubic,
	}
}

// Frame describes the media the blocks were found in. Blocks are in image
// pixels; crops are in quad space, so they are scaled by the quad's size.
type Frame struct {
	ImageWidth  int
	ImageHeight int
	Quad        geometry.Quadrilateral
	AspectRatio float64
}

func (f Frame) scale() (kx, ky float64) {
	qw, qh := f.Quad.Size()
	if f.ImageWidth <= 0 || f.ImageHeight <= 0 {
		return 1, 1
	}
	return qw / float64(f.ImageWidth), qh / float64(f.ImageHeight)
}

func (f Frame) validate(r *crop.Rect) crop.Rect {
	qw, qh := f.Quad.Size()
	return crop.Validate(r, f.AspectRatio, qw, qh, f.Quad)
}

// SuggestCrop frames the most salient blocks. With no blocks the centred
// crop is returned.
func (d *Director) SuggestCrop(blocks []analyzer.Block, f Frame) crop.Rect {
	if len(blocks) == 0 {
		return f.validate(nil)
	}

	ranked := slices.Clone(blocks)
	slices.SortStableFunc(ranked, func(a, b analyzer.Block) int {
		sa := a.Confidence * float64(a.Rect.Dx()*a.Rect.Dy())
		sb := b.Confidence * float64(b.Rect.Dx()*b.Rect.Dy())
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})
	if d.MaxBlocks > 0 && len(ranked) > d.MaxBlocks {
		ranked = ranked[:d.MaxBlocks]
	}

	var focus image.Rectangle
	for _, b := range ranked {
		focus = focus.Union(b.Rect)
	}
	r := d.around(focus, f)
	return f.validate(&r)
}

// around returns the padded, aspect-correct rect centred on focus, shrunk
// to fit the media.
func (d *Director) around(focus image.Rectangle, f Frame) crop.Rect {
	kx, ky := f.scale()
	qw, qh := f.Quad.Size()

	w := float64(focus.Dx()) * kx * (1 + d.Padding)
	h := float64(focus.Dy()) * ky * (1 + d.Padding)
	cx := (float64(focus.Min.X) + float64(focus.Dx())/2) * kx
	cy := (float64(focus.Min.Y) + float64(focus.Dy())/2) * ky

	aspect := f.AspectRatio
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		aspect = qw / qh
	}
	if w/h < aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}
	if w > qw {
		w, h = qw, qw/aspect
	}
	if h > qh {
		w, h = qh*aspect, qh
	}

	x := min(max(cx-w/2, 0), qw-w)
	y := min(max(cy-h/2, 0), qh-h)
	return crop.Rect{OriginX: x, OriginY: y, Width: w, Height: h}
}

// Stop is one framing of a tour.
type Stop struct {
	Time  float64
	Focus string
	Crop  crop.Rect
}

// Tour visits each block in reading order within duration seconds,
// starting and ending on the full frame.
func (d *Director) Tour(blocks []analyzer.Block, f Frame, duration float64) []Stop {
	full := f.validate(nil)
	stops := []Stop{{Time: 0, Focus: "full_view", Crop: full}}
	if len(blocks) == 0 {
		return stops
	}

	ordered := readingOrder(blocks)
	dwell := d.dwell(duration, len(ordered))

	now := 1.0
	for _, b := range ordered {
		r := d.around(b.Rect, f)
		stops = append(stops, Stop{Time: now, Focus: b.Type, Crop: f.validate(&r)})
		now += dwell
	}
	return append(stops, Stop{Time: now, Focus: "full_view", Crop: full})
}

// dwell splits duration between stops after a one second intro and outro.
func (d *Director) dwell(duration float64, n int) float64 {
	available := duration - 2
	if available <= 0 {
		available = duration
	}
	return min(max(available/float64(n), d.MinDwell), d.MaxDwell)
}

func readingOrder(blocks []analyzer.Block) []analyzer.Block {
	sorted := slices.Clone(blocks)
	slices.SortStableFunc(sorted, func(a, b analyzer.Block) int {
		if dy := a.Rect.Min.Y - b.Rect.Min.Y; dy > rowThreshold || dy < -rowThreshold {
			return dy
		}
		return a.Rect.Min.X - b.Rect.Min.X
	})
	return sorted
}

// Keyframes converts a tour into per-field keyframe tracks: origin x,
// origin y, width and height.
func (d *Director) Keyframes(stops []Stop) [4][]renderer.Keyframe {
	var out [4][]renderer.Keyframe
	for _, s := range stops {
		vals := [4]float64{s.Crop.OriginX, s.Crop.OriginY, s.Crop.Width, s.Crop.Height}
		for i, v := range vals {
			out[i] = append(out[i], renderer.Keyframe{Time: s.Time, Value: v, Easing: d.Easing})
		}
	}
	return out
}

// CropAt samples tracks built by Keyframes.
func CropAt(tracks [4][]renderer.Keyframe, t float64) crop.Rect {
	return crop.Rect{
		OriginX: renderer.InterpolateKeyframes(tracks[0], t),
		OriginY: renderer.InterpolateKeyframes(tracks[1], t),
		Width:   renderer.InterpolateKeyframes(tracks[2], t),
		Height:  renderer.InterpolateKeyframes(tracks[3], t),
	}
}
