package source

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/ivlev/coverstudio/internal/geometry"
)

// Orient returns img turned clockwise by o. The result starts at the origin.
func Orient(img image.Image, o geometry.Orientation) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	o = o.Normalize()

	if o == geometry.OrientationUp {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	dw, dh := w, h
	if o.SwapsAxes() {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		for x := range dw {
			var sx, sy int
			switch o {
			case geometry.OrientationRight:
				sx, sy = y, h-1-x
			case geometry.OrientationDown:
				sx, sy = w-1-x, h-1-y
			default:
				sx, sy = w-1-y, x
			}
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
