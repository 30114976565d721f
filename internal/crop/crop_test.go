package crop

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/geometry"
)

func TestValidateCenteredWhenNoRequest(t *testing.T) {
	quad := geometry.BuildQuadrilateral(1000, 500, 0, 0, 0, geometry.OrientationUp)
	got := Validate(nil, 1.0, 1000, 500, quad)
	assert.Equal(t, Rect{OriginX: 250, OriginY: 0, Width: 500, Height: 500}, got)
}

func TestCentered(t *testing.T) {
	tests := []struct {
		name          string
		aspect        float64
		width, height float64
		want          Rect
	}{
		{"wider media", 1, 1000, 500, Rect{250, 0, 500, 500}},
		{"taller media", 1, 500, 1000, Rect{0, 250, 500, 500}},
		{"portrait target", 0.5, 1000, 1000, Rect{250, 0, 500, 1000}},
		{"same ratio", 2, 1000, 500, Rect{0, 0, 1000, 500}},
		{"invalid ratio uses media", -1, 400, 300, Rect{0, 0, 400, 300}},
		{"empty media", 1, 0, 300, Rect{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Centered(tt.aspect, tt.width, tt.height))
		})
	}
}

func TestValidateKeepsValidRequest(t *testing.T) {
	quad := geometry.Rectangle(1000, 500)
	req := Rect{OriginX: 100, OriginY: 50, Width: 200, Height: 200}
	assert.Equal(t, req, Validate(&req, 1, 1000, 500, quad))
}

func TestValidateCorrectsPanOvershoot(t *testing.T) {
	quad := geometry.Rectangle(1000, 500)

	// live pan leaves the window 25px past the left edge
	req := Rect{OriginX: -25, OriginY: 100, Width: 100, Height: 100}
	got := Validate(&req, 1, 1000, 500, quad)
	assert.GreaterOrEqual(t, got.OriginX, 0.0)
	assert.Equal(t, Rect{OriginX: 0, OriginY: 100, Width: 100, Height: 100}, got)

	// bottom-right overshoot translates back up and left
	req = Rect{OriginX: 925, OriginY: 425, Width: 100, Height: 100}
	got = Validate(&req, 1, 1000, 500, quad)
	assert.Equal(t, Rect{OriginX: 900, OriginY: 400, Width: 100, Height: 100}, got)
}

func TestValidateOversizedRequestFallsBackToCentered(t *testing.T) {
	quad := geometry.Rectangle(1000, 500)
	for _, req := range []Rect{
		{OriginX: 0, OriginY: 0, Width: 1200, Height: 600},
		{OriginX: 0, OriginY: 0, Width: math.NaN(), Height: 10},
		{OriginX: 0, OriginY: 0, Width: -5, Height: 10},
	} {
		got := Validate(&req, 1, 1000, 500, quad)
		assert.Equal(t, Rect{OriginX: 250, OriginY: 0, Width: 500, Height: 500}, got, "request %v", req)
	}
}

func TestValidateShrinksWhenTranslationBreaksOppositeEdge(t *testing.T) {
	// pitch narrows the top edge, so a full-width window cannot slide left
	quad := geometry.BuildQuadrilateral(1000, 1000, 20, 0, 0, geometry.OrientationUp)
	w, h := quad.Size()
	req := Rect{OriginX: 0, OriginY: 0, Width: w, Height: h}

	got := Validate(&req, 1, w, h, quad)
	require.False(t, got.Empty())
	assert.Less(t, got.Width, w)
	assert.InDelta(t, 1.0, got.AspectRatio(), 1e-9)
	assert.True(t, got.Inside(quad, 1e-6), "crop %s outside %s", got, quad)
}

func TestValidateRestoresRequestedRatio(t *testing.T) {
	quad := geometry.Rectangle(1000, 1000)
	req := Rect{OriginX: 100, OriginY: 100, Width: 400, Height: 200}
	got := Validate(&req, 1, 1000, 1000, quad)
	assert.Equal(t, Rect{OriginX: 100, OriginY: 100, Width: 200, Height: 200}, got)
}

func TestValidateDegenerateInput(t *testing.T) {
	nanQuad := geometry.Quadrilateral{TopLeft: geometry.Pt(math.NaN(), 0)}
	got := Validate(nil, 1, 1000, 500, nanQuad)
	assert.Equal(t, Rect{OriginX: 250, OriginY: 0, Width: 500, Height: 500}, got)

	assert.Equal(t, Rect{}, Validate(nil, 1, 0, 500, geometry.Rectangle(0, 500)))
}

func TestValidateProperties(t *testing.T) {
	ratios := []float64{0.25, 9.0 / 16.0, 0.8, 1, 4.0 / 3.0, 16.0 / 9.0, 2.39, 4}
	tilts := [][3]float64{
		{0, 0, 0},
		{15, 0, 0},
		{-20, 0, 0},
		{0, 25, 0},
		{0, -10, 0},
		{0, 0, 8},
		{0, 0, -30},
		{10, -12, 5},
		{-25, 18, -7},
	}
	rng := rand.New(rand.NewPCG(7, 11))

	for _, ratio := range ratios {
		for _, tilt := range tilts {
			quad := geometry.BuildQuadrilateral(1200, 800, tilt[0], tilt[1], tilt[2], geometry.OrientationUp)
			w, h := quad.Size()

			requests := []*Rect{nil, {OriginX: 0, OriginY: 0, Width: w, Height: h}}
			for i := 0; i < 20; i++ {
				rw := rng.Float64() * w
				rh := rng.Float64() * h
				requests = append(requests, &Rect{
					OriginX: rng.Float64()*w*1.5 - w*0.25,
					OriginY: rng.Float64()*h*1.5 - h*0.25,
					Width:   rw,
					Height:  rh,
				})
			}

			for _, req := range requests {
				got := Validate(req, ratio, w, h, quad)
				require.False(t, got.Empty(), "ratio %v tilt %v request %v", ratio, tilt, req)
				assert.InEpsilon(t, ratio, got.AspectRatio(), 1e-6, "ratio %v tilt %v request %v", ratio, tilt, req)
				assert.True(t, got.Inside(quad, 1e-5), "crop %s outside %s (tilt %v)", got, quad, tilt)
			}
		}
	}
}

func TestFFmpegFilter(t *testing.T) {
	assert.Equal(t, "", FFmpegFilter(Rect{0, 0, 1920, 1080}, 1920, 1080))
	assert.Equal(t, "crop=1080:1080:420:0", FFmpegFilter(Rect{420, 0, 1080, 1080}, 1920, 1080))
	assert.Equal(t, "crop=100:50:10:20", FFmpegFilter(Rect{10.4, 19.6, 101.9, 51}, 1920, 1080))
	assert.Equal(t, "", FFmpegFilter(Rect{}, 1920, 1080))
}
