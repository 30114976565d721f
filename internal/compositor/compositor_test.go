package compositor

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

var canvas = timeline.Canvas{Width: 1000, Height: 500, FPS: 30}

func twoImages(t *testing.T, tr timeline.TransitionID) timeline.Descriptor {
	t.Helper()
	items := []timeline.MediaItem{
		{ID: "a", Kind: timeline.KindImage, URI: "a.jpg", Width: 1000, Height: 500},
		{ID: "b", Kind: timeline.KindVideo, URI: "b.mp4", Width: 1000, Height: 500, Duration: 5, Trim: &timeline.TrimRange{StartTime: 2, Duration: 5}},
	}
	d, err := timeline.Build(items, tr.Ptr(), timeline.DefaultOptions())
	require.NoError(t, err)
	return d
}

func TestSelect(t *testing.T) {
	d := twoImages(t, timeline.TransitionFade) // a: 0-5, b: 4.5-7.5 (source 2-5)

	tests := []struct {
		name        string
		t           float64
		incoming    int
		hasOutgoing bool
		progress    float64
	}{
		{"start", 0, 0, false, 0},
		{"before start", -3, 0, false, 0},
		{"first only", 4.4, 0, false, 0},
		{"transition begins", 4.5, 1, true, 0},
		{"transition middle", 4.75, 1, true, 0.5},
		{"transition end", 5, 1, false, 0},
		{"second only", 6, 1, false, 0},
		{"end", 7.5, 1, false, 0},
		{"past end", 99, 1, false, 0},
		{"nan", math.NaN(), 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := Select(tt.t, d)
			require.True(t, ok)
			assert.Equal(t, tt.incoming, f.Incoming.Index)
			assert.Equal(t, tt.hasOutgoing, f.HasOutgoing)
			if tt.hasOutgoing {
				assert.Equal(t, 0, f.Outgoing.Index)
				assert.Equal(t, timeline.TransitionFade, f.Transition)
				assert.InDelta(t, tt.progress, f.Progress, 1e-9)
			}
		})
	}
}

func TestSelectSourceTime(t *testing.T) {
	d := twoImages(t, timeline.TransitionFade)

	f, ok := Select(4.75, d)
	require.True(t, ok)
	assert.InDelta(t, 0.25, f.Incoming.LocalTime, 1e-9)
	assert.InDelta(t, 2.25, f.Incoming.SourceTime, 1e-9)
	assert.InDelta(t, 4.75, f.Outgoing.LocalTime, 1e-9)
}

func TestSelectIsStatelessWhenScrubbing(t *testing.T) {
	d := twoImages(t, timeline.TransitionFade)
	times := []float64{7, 1, 4.8, 0.2, 6.5, 4.6}

	var forward []Frame
	for _, tm := range times {
		f, _ := Select(tm, d)
		forward = append(forward, f)
	}
	for i := len(times) - 1; i >= 0; i-- {
		f, _ := Select(times[i], d)
		assert.Equal(t, forward[i], f)
	}
}

func TestSelectEmpty(t *testing.T) {
	_, ok := Select(1, timeline.Descriptor{})
	assert.False(t, ok)
}

func TestBlend(t *testing.T) {
	in := DrawInstruction{ID: "in"}
	out := DrawInstruction{ID: "out"}

	got := Blend(nil, Frame{}, in, out, canvas)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
	assert.Equal(t, 1.0, got[0].Alpha)

	got = Blend(got, Frame{HasOutgoing: true, Progress: 0.25, Transition: timeline.TransitionFade}, in, out, canvas)
	require.Len(t, got, 2)
	assert.Equal(t, "out", got[0].ID)
	assert.InDelta(t, 0.75, got[0].Alpha, 1e-12)
	assert.InDelta(t, 0.25, got[1].Alpha, 1e-12)

	got = Blend(got, Frame{HasOutgoing: true, Progress: 0.25, Transition: timeline.TransitionSlide}, in, out, canvas)
	require.Len(t, got, 2)
	assert.InDelta(t, -250, got[0].OffsetX, 1e-9)
	assert.InDelta(t, 750, got[1].OffsetX, 1e-9)
	assert.Equal(t, 1.0, got[1].Alpha)

	got = Blend(got, Frame{HasOutgoing: true, Progress: 0.5, Transition: timeline.TransitionNone}, in, out, canvas)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestCompositorFrame(t *testing.T) {
	items := []timeline.MediaItem{
		{ID: "a", Kind: timeline.KindImage, Width: 2000, Height: 500},
		{ID: "b", Kind: timeline.KindImage, Width: 1000, Height: 500,
			Edition: timeline.EditionParameters{Crop: &crop.Rect{OriginX: 100, OriginY: 0, Width: 800, Height: 400}}},
	}
	d, err := timeline.Build(items, timeline.TransitionSlide.Ptr(), timeline.DefaultOptions())
	require.NoError(t, err)

	c := New(d, canvas, geometry.NewBuilder(geometry.DefaultFieldOfView))

	// canvas is 2:1, so a 4:1 source is centre-cropped
	assert.Equal(t, crop.Rect{OriginX: 500, OriginY: 0, Width: 1000, Height: 500}, c.Instruction(0).Crop)
	assert.Equal(t, crop.Rect{OriginX: 100, OriginY: 0, Width: 800, Height: 400}, c.Instruction(1).Crop)

	list, f, ok := c.Frame(4.6)
	require.True(t, ok)
	require.True(t, f.HasOutgoing)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	first := &list[0]
	list, _, _ = c.Frame(1)
	require.Len(t, list, 1)
	assert.Same(t, first, &list[0], "draw list is reused between frames")

	allocs := testing.AllocsPerRun(100, func() { c.Frame(4.7) })
	assert.Zero(t, allocs)
}

type recorder struct {
	calls int
	last  []DrawInstruction
	err   error
}

func (r *recorder) Draw(_ context.Context, _ timeline.Canvas, list []DrawInstruction) error {
	r.calls++
	r.last = append(r.last[:0], list...)
	return r.err
}

func TestCompositorRender(t *testing.T) {
	c := New(twoImages(t, timeline.TransitionFade), canvas, geometry.NewBuilder(0))
	r := &recorder{}

	require.NoError(t, c.Render(context.Background(), 4.75, r))
	assert.Equal(t, 1, r.calls)
	assert.Len(t, r.last, 2)

	r.err = errors.New("gpu lost")
	assert.ErrorIs(t, c.Render(context.Background(), 1, r), r.err)

	empty := New(timeline.Descriptor{}, canvas, geometry.NewBuilder(0))
	require.NoError(t, empty.Render(context.Background(), 1, r))
	assert.Equal(t, 2, r.calls)
}

func TestHandoff(t *testing.T) {
	var h Handoff
	assert.Nil(t, h.Load().Compositor)

	c1 := New(timeline.Descriptor{}, canvas, geometry.NewBuilder(0))
	c2 := New(twoImages(t, timeline.TransitionNone), canvas, geometry.NewBuilder(0))
	assert.Equal(t, uint64(1), h.Publish(c1))
	assert.Equal(t, uint64(2), h.Publish(c2))

	p := h.Load()
	assert.Equal(t, uint64(2), p.Version)
	assert.Same(t, c2, p.Compositor)
}
