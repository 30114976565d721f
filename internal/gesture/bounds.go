// Package gesture turns raw pan, pinch, rotate and resize deltas into layer
// bounds. The update functions are pure and allocation-free so they can run
// on every screen refresh.
package gesture

import (
	"fmt"
	"math"

	"github.com/ivlev/coverstudio/internal/crop"
)

// Bounds is the frame of a rectangular layer. Rotation is in radians around
// the centre.
type Bounds struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Width    float64 `yaml:"width" json:"width"`
	Height   float64 `yaml:"height" json:"height"`
	Rotation float64 `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

// Center of the bounds.
func (b Bounds) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// WithCenter moves the bounds so its centre sits at (x, y).
func (b Bounds) WithCenter(x, y float64) Bounds {
	b.X = x - b.Width/2
	b.Y = y - b.Height/2
	return b
}

// Rect drops rotation.
func (b Bounds) Rect() crop.Rect {
	return crop.Rect{OriginX: b.X, OriginY: b.Y, Width: b.Width, Height: b.Height}
}

// FromRect builds unrotated bounds from a crop window.
func FromRect(r crop.Rect) Bounds {
	return Bounds{X: r.OriginX, Y: r.OriginY, Width: r.Width, Height: r.Height}
}

func (b Bounds) String() string {
	return fmt.Sprintf("%.1fx%.1f+%.1f+%.1f@%.3f", b.Width, b.Height, b.X, b.Y, b.Rotation)
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Offset is the snapshot taken when a gesture starts. Every update during the
// gesture is relative to it.
type Offset struct {
	Bounds
}

// Capture snapshots b as the reference for a new gesture.
func Capture(b Bounds) Offset {
	return Offset{Bounds: b}
}

// LayerKind identifies what a set of bounds belongs to.
type LayerKind int

const (
	LayerCrop LayerKind = iota
	LayerOverlay
	LayerText
	LayerLinks
)

func (k LayerKind) String() string {
	switch k {
	case LayerCrop:
		return "crop"
	case LayerOverlay:
		return "overlay"
	case LayerText:
		return "text"
	case LayerLinks:
		return "links"
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

// Handle is a single-axis resize handle.
type Handle int

const (
	HandleTop Handle = iota
	HandleBottom
	HandleLeft
	HandleRight
)

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}

func validScale(s float64) float64 {
	if !(s > 0) || math.IsInf(s, 0) {
		return 1
	}
	return s
}
