package crop

import (
	"math"

	"github.com/ivlev/coverstudio/internal/geometry"
)

const (
	// Tolerance is the containment slack in pixels.
	Tolerance = 1e-6

	maxPasses      = 8
	bisectionSteps = 64
)

// Validate returns the crop window nearest to requested that matches
// aspectRatio and lies fully inside quad.
//
// A nil request, or one that is not finite or larger than the media, is
// replaced by the centred crop. Otherwise the request is pushed inside the
// quad edge by edge (left, top, right, bottom). Each violation is fixed by
// translating; right and bottom shrink instead when translating would break
// the opposite edge. The over-long axis is then reduced to restore the ratio.
func Validate(requested *Rect, aspectRatio, mediaWidth, mediaHeight float64, quad geometry.Quadrilateral) Rect {
	if !(mediaWidth > 0 && mediaHeight > 0) || math.IsInf(mediaWidth, 0) || math.IsInf(mediaHeight, 0) {
		return Rect{}
	}
	if !(aspectRatio > 0) || math.IsInf(aspectRatio, 0) {
		aspectRatio = mediaWidth / mediaHeight
	}
	if !quad.IsSimple() {
		quad = geometry.Rectangle(mediaWidth, mediaHeight)
	}

	var r Rect
	if requested == nil || exceedsMedia(*requested, mediaWidth, mediaHeight) {
		r = Centered(aspectRatio, mediaWidth, mediaHeight)
	} else {
		r = *requested
	}
	r = restoreRatio(r, aspectRatio)

	for pass := 0; pass < maxPasses; pass++ {
		if r.Inside(quad, Tolerance) {
			return r
		}
		next, ok := fitEdges(r, quad)
		if !ok {
			break
		}
		r = restoreRatio(next, aspectRatio)
		if r.Empty() || !r.IsFinite() {
			break
		}
	}
	if r.Inside(quad, Tolerance) && !r.Empty() {
		return r
	}
	return largestCentered(quad, aspectRatio, mediaWidth, mediaHeight)
}

func exceedsMedia(r Rect, mediaWidth, mediaHeight float64) bool {
	if !r.IsFinite() || r.Empty() {
		return true
	}
	return r.Width > mediaWidth+Tolerance || r.Height > mediaHeight+Tolerance
}

// restoreRatio keeps the origin and shortens whichever axis is too long.
func restoreRatio(r Rect, aspectRatio float64) Rect {
	if r.Empty() {
		return r
	}
	if r.Width/r.Height > aspectRatio {
		r.Width = r.Height * aspectRatio
	} else {
		r.Height = r.Width / aspectRatio
	}
	return r
}

// fitEdges runs one left, top, right, bottom pass. It reports false when no
// edge produced a usable bound.
func fitEdges(r Rect, q geometry.Quadrilateral) (Rect, bool) {
	left, top, right, bottom := q.Left(), q.Top(), q.Right(), q.Bottom()
	moved := false

	// left: translate right
	if minX, ok := maxOf(left.XAt(r.OriginY), left.XAt(r.OriginY+r.Height)); ok && r.OriginX < minX {
		r.OriginX = minX
		moved = true
	}

	// top: translate down
	if minY, ok := maxOf(top.YAt(r.OriginX), top.YAt(r.OriginX+r.Width)); ok && r.OriginY < minY {
		r.OriginY = minY
		moved = true
	}

	// right: translate left unless that breaks the left edge, then shrink
	if maxX, ok := minOf(right.XAt(r.OriginY), right.XAt(r.OriginY+r.Height)); ok && r.OriginX+r.Width > maxX {
		x := maxX - r.Width
		if minX, ok := maxOf(left.XAt(r.OriginY), left.XAt(r.OriginY+r.Height)); !ok || x >= minX {
			r.OriginX = x
		} else {
			r.Width = maxX - r.OriginX
		}
		moved = true
	}

	// bottom: translate up unless that breaks the top edge, then shrink
	if maxY, ok := minOf(bottom.YAt(r.OriginX), bottom.YAt(r.OriginX+r.Width)); ok && r.OriginY+r.Height > maxY {
		y := maxY - r.Height
		if minY, ok := maxOf(top.YAt(r.OriginX), top.YAt(r.OriginX+r.Width)); !ok || y >= minY {
			r.OriginY = y
		} else {
			r.Height = maxY - r.OriginY
		}
		moved = true
	}

	return r, moved
}

// largestCentered bisects for the biggest aspect-correct rect centred on the
// quad centroid.
func largestCentered(q geometry.Quadrilateral, aspectRatio, mediaWidth, mediaHeight float64) Rect {
	c := q.Centroid()
	at := func(h float64) Rect {
		w := h * aspectRatio
		return Rect{OriginX: c.X - w/2, OriginY: c.Y - h/2, Width: w, Height: h}
	}

	lo, hi := 0.0, math.Min(mediaHeight, mediaWidth/aspectRatio)
	if at(hi).Inside(q, Tolerance) {
		return at(hi)
	}
	for i := 0; i < bisectionSteps; i++ {
		mid := (lo + hi) / 2
		if at(mid).Inside(q, Tolerance) {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		// no room at all: fall back to the flat media frame
		return Centered(aspectRatio, mediaWidth, mediaHeight)
	}
	return at(lo)
}

// maxOf ignores NaN operands; ok is false when both are NaN.
func maxOf(a, b float64) (float64, bool) {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0, false
	case math.IsNaN(a):
		return b, true
	case math.IsNaN(b):
		return a, true
	}
	return math.Max(a, b), true
}

func minOf(a, b float64) (float64, bool) {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0, false
	case math.IsNaN(a):
		return b, true
	case math.IsNaN(b):
		return a, true
	}
	return math.Min(a, b), true
}
