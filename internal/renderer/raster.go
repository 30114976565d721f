// Package renderer holds interpolation helpers and a software rasterizer
// for previews.
package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/coverstudio/internal/compositor"
	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// Loader fetches the picture of a source at a point in its own time.
type Loader interface {
	Load(ctx context.Context, uri string, at float64) (image.Image, error)
}

// Raster is a CPU implementation of compositor.Rasterizer. It honours
// orientation, crop, alpha and translation. Perspective tilt only shapes the
// crop window; the source itself is not warped.
type Raster struct {
	loader     Loader
	pool       *system.ImagePool
	interp     draw.Interpolator
	background color.Color
	logger     *slog.Logger

	mu    sync.Mutex
	frame *image.RGBA
}

// RasterOption configures a Raster.
type RasterOption func(*Raster)

// WithInterpolator picks the resampling kernel; draw.CatmullRom by default.
func WithInterpolator(i draw.Interpolator) RasterOption {
	return func(r *Raster) { r.interp = i }
}

// WithBackground sets the fill behind all items.
func WithBackground(c color.Color) RasterOption {
	return func(r *Raster) { r.background = c }
}

// WithRasterLogger sets the logger.
func WithRasterLogger(l *slog.Logger) RasterOption {
	return func(r *Raster) { r.logger = l }
}

// WithPool sets the frame pool; the process-wide pool by default.
func WithPool(p *system.ImagePool) RasterOption {
	return func(r *Raster) { r.pool = p }
}

// NewRaster returns a rasterizer reading sources through loader.
func NewRaster(loader Loader, opts ...RasterOption) *Raster {
	r := &Raster{
		loader:     loader,
		interp:     draw.CatmullRom,
		background: color.Black,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ compositor.Rasterizer = (*Raster)(nil)

// Draw renders one frame. The previous frame goes back to the pool.
func (r *Raster) Draw(ctx context.Context, canvas timeline.Canvas, list []compositor.DrawInstruction) error {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", canvas.Width, canvas.Height)
	}
	bounds := image.Rect(0, 0, canvas.Width, canvas.Height)
	dst := r.get(bounds)
	draw.Draw(dst, bounds, image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, ins := range list {
		if err := ctx.Err(); err != nil {
			r.put(dst)
			return err
		}
		src, err := r.loader.Load(ctx, ins.URI, ins.SourceTime)
		if err != nil {
			r.put(dst)
			return fmt.Errorf("load %s: %w", ins.URI, err)
		}
		r.drawOne(dst, src, ins, canvas)
	}

	r.mu.Lock()
	prev := r.frame
	r.frame = dst
	r.mu.Unlock()
	r.put(prev)
	return nil
}

func (r *Raster) drawOne(dst *image.RGBA, src image.Image, ins compositor.DrawInstruction, canvas timeline.Canvas) {
	if ins.Alpha <= 0 || ins.Crop.Empty() {
		return
	}
	sb := src.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())

	// crop window in the oriented source; the quad space is larger when tilted
	window := ins.Crop
	if qw, qh := ins.Quad.Size(); qw > 0 && qh > 0 {
		ow, oh := w, h
		if ins.Edition.Orientation.SwapsAxes() {
			ow, oh = h, w
		}
		window = scaleRect(window, ow/qw, oh/qh)
	}

	s2d, sr := placement(window, ins.Edition.Orientation, w, h, float64(canvas.Width), float64(canvas.Height), ins.OffsetX, ins.OffsetY)
	sr = sr.Add(sb.Min).Intersect(sb)
	s2d[2] -= s2d[0]*float64(sb.Min.X) + s2d[1]*float64(sb.Min.Y)
	s2d[5] -= s2d[3]*float64(sb.Min.X) + s2d[4]*float64(sb.Min.Y)

	var opts *draw.Options
	if ins.Alpha < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(ins.Alpha * 255))})}
	}
	r.interp.Transform(dst, s2d, src, sr, draw.Over, opts)
}

// placement maps the oriented crop window onto the canvas. It returns the
// source→canvas affine transform and the window in unoriented source pixels.
func placement(window crop.Rect, o geometry.Orientation, w, h, cw, ch, offX, offY float64) (f64.Aff3, image.Rectangle) {
	sx := cw / window.Width
	sy := ch / window.Height
	cx, cy := window.OriginX, window.OriginY
	x0, y0, x1, y1 := cx, cy, cx+window.Width, cy+window.Height

	switch o.Normalize() {
	case geometry.OrientationRight:
		// x = h - v, y = u
		return f64.Aff3{0, -sx, sx*(h-cx) + offX, sy, 0, offY - sy*cy},
			rectOf(y0, h-x1, y1, h-x0)
	case geometry.OrientationDown:
		// x = w - u, y = h - v
		return f64.Aff3{-sx, 0, sx*(w-cx) + offX, 0, -sy, sy*(h-cy) + offY},
			rectOf(w-x1, h-y1, w-x0, h-y0)
	case geometry.OrientationLeft:
		// x = v, y = w - u
		return f64.Aff3{0, sx, offX - sx*cx, -sy, 0, sy*(w-cy) + offY},
			rectOf(w-y1, x0, w-y0, x1)
	}
	return f64.Aff3{sx, 0, offX - sx*cx, 0, sy, offY - sy*cy}, rectOf(x0, y0, x1, y1)
}

func rectOf(x0, y0, x1, y1 float64) image.Rectangle {
	return image.Rect(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Ceil(x1)), int(math.Ceil(y1)))
}

func scaleRect(r crop.Rect, kx, ky float64) crop.Rect {
	return crop.Rect{OriginX: r.OriginX * kx, OriginY: r.OriginY * ky, Width: r.Width * kx, Height: r.Height * ky}
}

// Frame returns the last rendered frame, or nil. The image stays valid until
// the next Draw.
func (r *Raster) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// WritePNG encodes the last frame.
func (r *Raster) WritePNG(w io.Writer) error {
	frame := r.Frame()
	if frame == nil {
		return fmt.Errorf("nothing rendered yet")
	}
	return png.Encode(w, frame)
}

func (r *Raster) get(rect image.Rectangle) *image.RGBA {
	if r.pool != nil {
		return r.pool.Get(rect)
	}
	return system.GetImage(rect)
}

func (r *Raster) put(img *image.RGBA) {
	if img == nil {
		return
	}
	if r.pool != nil {
		r.pool.Put(img)
		return
	}
	system.PutImage(img)
}
