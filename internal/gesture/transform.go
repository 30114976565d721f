package gesture

import "math"

const (
	// PanSlack is how far, as a fraction of its own size, a crop window may be
	// dragged past the media before gesture-end validation pulls it back.
	PanSlack = 0.25

	// SnapTolerance is the angular distance from a right angle that snaps.
	SnapTolerance = math.Pi / 20

	// MinLayerFraction is the minimum layer size relative to the canvas.
	MinLayerFraction = 0.2

	// MinTextSize is the absolute minimum text box side in pixels.
	MinTextSize = 44.0
)

// Pan moves the window opposite to the finger, scaled by the current zoom.
// The window may overshoot the media by PanSlack of its size on any edge.
func Pan(o Offset, tx, ty, scale float64, media Size) Bounds {
	scale = validScale(scale)
	b := o.Bounds

	slackX := b.Width * PanSlack
	slackY := b.Height * PanSlack
	b.X = clamp(o.X-tx/scale, -slackX, media.Width-b.Width+slackX)
	b.Y = clamp(o.Y-ty/scale, -slackY, media.Height-b.Height+slackY)
	return b
}

// PinchCrop resizes a crop window around its centre. Zooming the image in
// (scale > 1) shrinks the window over the media.
func PinchCrop(o Offset, scale float64) Bounds {
	scale = validScale(scale)
	cx, cy := o.Center()
	b := o.Bounds
	b.Width = o.Width / scale
	b.Height = o.Height / scale
	return b.WithCenter(cx, cy)
}

// PinchLayer resizes an overlay, text or link layer around its centre.
func PinchLayer(o Offset, scale float64) Bounds {
	scale = validScale(scale)
	cx, cy := o.Center()
	b := o.Bounds
	b.Width = o.Width * scale
	b.Height = o.Height * scale
	return b.WithCenter(cx, cy)
}

// Rotate adds delta radians to the snapshot rotation and snaps to the
// nearest right angle when within SnapTolerance of it.
func Rotate(o Offset, delta float64) Bounds {
	b := o.Bounds
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return b
	}
	b.Rotation = Snap(o.Rotation + delta)
	return b
}

// Snap returns the nearest multiple of π/2 if r is within SnapTolerance of
// it, r otherwise.
func Snap(r float64) float64 {
	k := math.Round(r / (math.Pi / 2))
	target := k * math.Pi / 2
	if math.Abs(r-target) < SnapTolerance {
		return target
	}
	return r
}

// ResizeLimits bound a resize. Zero maxima are unbounded.
type ResizeLimits struct {
	MinWidth, MinHeight float64
	MaxWidth, MaxHeight float64
}

// MinSize returns the limits for a layer kind on the given canvas: a fifth
// of the canvas, or MinTextSize for text.
func MinSize(kind LayerKind, canvas Size) ResizeLimits {
	if kind == LayerText {
		return ResizeLimits{MinWidth: MinTextSize, MinHeight: MinTextSize}
	}
	return ResizeLimits{
		MinWidth:  canvas.Width * MinLayerFraction,
		MinHeight: canvas.Height * MinLayerFraction,
	}
}

func (l ResizeLimits) width(v float64) float64 {
	if l.MaxWidth > 0 {
		v = math.Min(v, l.MaxWidth)
	}
	return math.Max(v, l.MinWidth)
}

func (l ResizeLimits) height(v float64) float64 {
	if l.MaxHeight > 0 {
		v = math.Min(v, l.MaxHeight)
	}
	return math.Max(v, l.MinHeight)
}

// Resize drags one edge by the screen-space delta (dx, dy). The delta is
// un-rotated into the layer frame first, so on a rotated layer the handle
// follows the finger along the layer's own axis. The opposite edge stays put
// and the size never drops below the limits.
func Resize(o Offset, h Handle, dx, dy float64, limits ResizeLimits) Bounds {
	b := o.Bounds
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return b
	}

	sin, cos := math.Sincos(o.Rotation)
	localX := dx*cos + dy*sin
	localY := -dx*sin + dy*cos

	// shift of the centre in the layer frame
	var shiftX, shiftY float64
	switch h {
	case HandleRight:
		b.Width = limits.width(o.Width + localX)
		shiftX = (b.Width - o.Width) / 2
	case HandleLeft:
		b.Width = limits.width(o.Width - localX)
		shiftX = -(b.Width - o.Width) / 2
	case HandleBottom:
		b.Height = limits.height(o.Height + localY)
		shiftY = (b.Height - o.Height) / 2
	case HandleTop:
		b.Height = limits.height(o.Height - localY)
		shiftY = -(b.Height - o.Height) / 2
	default:
		return b
	}

	cx, cy := o.Center()
	cx += shiftX*cos - shiftY*sin
	cy += shiftX*sin + shiftY*cos
	return b.WithCenter(cx, cy)
}
