package renderer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/ivlev/coverstudio/internal/compositor"
	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

type memLoader map[string]image.Image

func (m memLoader) Load(_ context.Context, uri string, _ float64) (image.Image, error) {
	img, ok := m[uri]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

// halves is w×h with the left half red and the right half blue.
func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}
	return img
}

func instruction(uri string, w, h float64, o geometry.Orientation) compositor.DrawInstruction {
	quad := geometry.BuildQuadrilateral(w, h, 0, 0, 0, o)
	qw, qh := quad.Size()
	return compositor.DrawInstruction{
		URI:     uri,
		Crop:    crop.Rect{Width: qw, Height: qh},
		Quad:    quad,
		Edition: timeline.EditionParameters{Orientation: o},
		Alpha:   1,
	}
}

func newTestRaster(l Loader) *Raster {
	return NewRaster(l, WithInterpolator(draw.NearestNeighbor), WithPool(system.NewImagePool()))
}

func TestRasterDrawsFullFrame(t *testing.T) {
	r := newTestRaster(memLoader{"a": halves(20, 10)})
	canvas := timeline.Canvas{Width: 40, Height: 20}

	require.NoError(t, r.Draw(context.Background(), canvas, []compositor.DrawInstruction{instruction("a", 20, 10, geometry.OrientationUp)}))
	frame := r.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, red, frame.RGBAAt(5, 10))
	assert.Equal(t, blue, frame.RGBAAt(35, 10))
}

func TestRasterOrientation(t *testing.T) {
	r := newTestRaster(memLoader{"a": halves(20, 10)})
	// a quarter turn clockwise puts the left (red) half on top
	canvas := timeline.Canvas{Width: 10, Height: 20}

	require.NoError(t, r.Draw(context.Background(), canvas, []compositor.DrawInstruction{instruction("a", 20, 10, geometry.OrientationRight)}))
	frame := r.Frame()
	assert.Equal(t, red, frame.RGBAAt(5, 3))
	assert.Equal(t, blue, frame.RGBAAt(5, 17))

	require.NoError(t, r.Draw(context.Background(), canvas, []compositor.DrawInstruction{instruction("a", 20, 10, geometry.OrientationLeft)}))
	frame = r.Frame()
	assert.Equal(t, blue, frame.RGBAAt(5, 3))
	assert.Equal(t, red, frame.RGBAAt(5, 17))
}

func TestRasterCropAndOffset(t *testing.T) {
	r := newTestRaster(memLoader{"a": halves(20, 10)})
	canvas := timeline.Canvas{Width: 10, Height: 10}

	// right half only, shifted half a canvas to the right
	ins := instruction("a", 20, 10, geometry.OrientationUp)
	ins.Crop = crop.Rect{OriginX: 10, Width: 10, Height: 10}
	ins.OffsetX = 5

	require.NoError(t, r.Draw(context.Background(), canvas, []compositor.DrawInstruction{ins}))
	frame := r.Frame()
	assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(2, 5), "uncovered area keeps the background")
	assert.Equal(t, blue, frame.RGBAAt(7, 5))
}

func TestRasterAlpha(t *testing.T) {
	solid := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(solid, solid.Bounds(), image.NewUniform(red), image.Point{}, draw.Src)
	r := newTestRaster(memLoader{"solid": solid})

	ins := compositor.DrawInstruction{URI: "solid", Crop: crop.Rect{Width: 4, Height: 4}, Alpha: 0.5}
	require.NoError(t, r.Draw(context.Background(), timeline.Canvas{Width: 4, Height: 4}, []compositor.DrawInstruction{ins}))

	got := r.Frame().RGBAAt(2, 2)
	assert.InDelta(t, 128, int(got.R), 2)
	assert.Equal(t, uint8(255), got.A)
}

func TestRasterErrors(t *testing.T) {
	r := newTestRaster(memLoader{})
	canvas := timeline.Canvas{Width: 4, Height: 4}

	err := r.Draw(context.Background(), canvas, []compositor.DrawInstruction{{URI: "missing", Crop: crop.Rect{Width: 1, Height: 1}, Alpha: 1}})
	assert.ErrorContains(t, err, "missing")
	assert.Nil(t, r.Frame())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.Draw(ctx, canvas, []compositor.DrawInstruction{{URI: "x"}})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Error(t, r.Draw(context.Background(), timeline.Canvas{}, nil))
	assert.Error(t, r.WritePNG(&bytes.Buffer{}))
}

func TestRasterWithCompositor(t *testing.T) {
	items := []timeline.MediaItem{
		{ID: "a", Kind: timeline.KindImage, URI: "a", Width: 20, Height: 10},
		{ID: "b", Kind: timeline.KindImage, URI: "b", Width: 20, Height: 10},
	}
	d, err := timeline.Build(items, timeline.TransitionFade.Ptr(), timeline.DefaultOptions())
	require.NoError(t, err)

	c := compositor.New(d, timeline.Canvas{Width: 20, Height: 10}, geometry.NewBuilder(0))
	r := newTestRaster(memLoader{"a": halves(20, 10), "b": halves(20, 10)})
	require.NoError(t, c.Render(context.Background(), 4.75, r))

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), decoded.Bounds())
}
