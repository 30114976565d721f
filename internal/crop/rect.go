package crop

import (
	"fmt"
	"math"

	"github.com/ivlev/coverstudio/internal/geometry"
)

// Rect is an axis-aligned crop window in media pixel space.
type Rect struct {
	OriginX float64 `yaml:"origin_x" json:"origin_x"`
	OriginY float64 `yaml:"origin_y" json:"origin_y"`
	Width   float64 `yaml:"width" json:"width"`
	Height  float64 `yaml:"height" json:"height"`
}

// Corners returns TL, TR, BR, BL.
func (r Rect) Corners() [4]geometry.Point {
	return [4]geometry.Point{
		geometry.Pt(r.OriginX, r.OriginY),
		geometry.Pt(r.OriginX+r.Width, r.OriginY),
		geometry.Pt(r.OriginX+r.Width, r.OriginY+r.Height),
		geometry.Pt(r.OriginX, r.OriginY+r.Height),
	}
}

// Center of the rect.
func (r Rect) Center() geometry.Point {
	return geometry.Pt(r.OriginX+r.Width/2, r.OriginY+r.Height/2)
}

// AspectRatio is Width/Height, or 0 for an empty rect.
func (r Rect) AspectRatio() float64 {
	if r.Height == 0 {
		return 0
	}
	return r.Width / r.Height
}

// IsFinite reports whether every field is a real number.
func (r Rect) IsFinite() bool {
	for _, v := range [...]float64{r.OriginX, r.OriginY, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return !(r.Width > 0 && r.Height > 0)
}

// Inside reports whether all four corners lie within q, with tol pixels of slack.
func (r Rect) Inside(q geometry.Quadrilateral, tol float64) bool {
	for _, c := range r.Corners() {
		if !q.Contains(c, tol) {
			return false
		}
	}
	return true
}

func (r Rect) String() string {
	return fmt.Sprintf("%.2fx%.2f+%.2f+%.2f", r.Width, r.Height, r.OriginX, r.OriginY)
}

// Centered returns the largest rect with the given aspect ratio centred in a
// width×height frame.
func Centered(aspectRatio, width, height float64) Rect {
	if !(width > 0 && height > 0) {
		return Rect{}
	}
	if !(aspectRatio > 0) || math.IsInf(aspectRatio, 0) {
		aspectRatio = width / height
	}

	if width/height > aspectRatio {
		// media is wider: crop the sides
		w := height * aspectRatio
		return Rect{OriginX: (width - w) / 2, OriginY: 0, Width: w, Height: height}
	}
	// media is taller: crop top and bottom
	h := width / aspectRatio
	return Rect{OriginX: 0, OriginY: (height - h) / 2, Width: width, Height: h}
}
