package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

func TestOrientation(t *testing.T) {
	tests := []struct {
		o    geometry.Orientation
		want string
	}{
		{geometry.OrientationUp, ""},
		{geometry.OrientationRight, "transpose=1"},
		{geometry.OrientationDown, "hflip,vflip"},
		{geometry.OrientationLeft, "transpose=2"},
		{-90, "transpose=2"},
		{450, "transpose=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Orientation(tt.o), "orientation %d", tt.o)
	}
}

func TestCrop(t *testing.T) {
	res := timeline.Resolution{Width: 2000, Height: 1000}
	flat := geometry.Rectangle(2000, 1000)

	assert.Equal(t, "", Crop(crop.Rect{Width: 2000, Height: 1000}, flat, res, geometry.OrientationUp))
	assert.Equal(t, "crop=1000:1000:500:0", Crop(crop.Rect{OriginX: 500, Width: 1000, Height: 1000}, flat, res, geometry.OrientationUp))

	// quad space twice the source: the window halves
	big := geometry.Rectangle(4000, 2000)
	assert.Equal(t, "crop=500:500:250:0", Crop(crop.Rect{OriginX: 500, Width: 1000, Height: 1000}, big, res, geometry.OrientationUp))

	// turned sources are cropped after transposing
	turned := geometry.Rectangle(1000, 2000)
	assert.Equal(t, "crop=1000:1000:0:500", Crop(crop.Rect{OriginY: 500, Width: 1000, Height: 1000}, turned, res, geometry.OrientationRight))
}

func TestEqualizer(t *testing.T) {
	assert.Equal(t, "", Equalizer(nil))
	assert.Equal(t, "", Equalizer(map[string]float64{"exposure": 1}))
	assert.Equal(t, "eq=brightness=0.100:saturation=1.500",
		Equalizer(map[string]float64{"saturation": 1.5, "brightness": 0.1}))
}

func TestEditEffect(t *testing.T) {
	canvas := timeline.Canvas{Width: 1280, Height: 720, FPS: 25}
	p := SegmentParams{
		Entry: timeline.Entry{
			ID:         "item_1",
			Resolution: timeline.Resolution{Width: 1000, Height: 2000},
			Filter:     "Mono",
			Edition: timeline.EditionParameters{
				Orientation: geometry.OrientationLeft,
				Values:      map[string]float64{"contrast": 1.2},
			},
		},
		Crop:   crop.Rect{OriginX: 500, Width: 1000, Height: 1000},
		Quad:   geometry.Rectangle(2000, 1000),
		Canvas: canvas,
	}

	got := EditEffect{}.GenerateFilter(p)
	assert.Equal(t, "transpose=2,crop=1000:1000:500:0,eq=contrast=1.200,hue=s=0,"+
		"scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=25", got)

	p.Debug = true
	p.Entry.Filter = "unknown"
	got = EditEffect{}.GenerateFilter(p)
	assert.NotContains(t, got, "hue")
	assert.Contains(t, got, "drawtext=text='1 item_1'")
}

func TestLookNames(t *testing.T) {
	names := LookNames()
	assert.Len(t, names, len(Looks))
	assert.IsIncreasing(t, names)
}
