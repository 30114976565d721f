package timeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/crop"
)

func image(id string) MediaItem {
	return MediaItem{ID: id, Kind: KindImage, URI: id + ".jpg", Width: 1080, Height: 1920}
}

func video(id string, duration float64, trim *TrimRange) MediaItem {
	return MediaItem{ID: id, Kind: KindVideo, URI: id + ".mp4", Width: 1920, Height: 1080, Duration: duration, Trim: trim}
}

func TestBuildTwoImagesWithFade(t *testing.T) {
	d, err := Build([]MediaItem{image("a"), image("b")}, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 9.5, d.TotalDuration)
	require.Len(t, d.Items, 2)
	assert.Equal(t, 0.0, d.Items[0].CompositionStartTime)
	assert.Equal(t, 4.5, d.Items[1].CompositionStartTime)
	assert.Equal(t, TransitionFade, d.Items[0].Transition)
	assert.Equal(t, 0.5, d.Items[0].TransitionDuration)
	assert.Equal(t, TransitionNone, d.Items[1].Transition)
	assert.NoError(t, d.Validate())
}

func TestBuildWithoutTransitionIsBackToBack(t *testing.T) {
	for _, tr := range []*TransitionID{nil, TransitionNone.Ptr()} {
		d, err := Build([]MediaItem{image("a"), video("b", 3, nil), image("c")}, tr, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, []float64{0, 5, 8}, starts(d))
		assert.Equal(t, 13.0, d.TotalDuration)
		assert.NoError(t, d.Validate())
	}
}

func TestBuildOverlapInvariant(t *testing.T) {
	items := []MediaItem{
		image("a"),
		video("b", 30, &TrimRange{StartTime: 2, Duration: 4}),
		video("c", 7.25, nil),
		image("d"),
		video("e", 100, nil),
	}

	for _, id := range []TransitionID{TransitionFade, TransitionSlide} {
		t.Run(string(id), func(t *testing.T) {
			d, err := Build(items, id.Ptr(), DefaultOptions())
			require.NoError(t, err)
			require.NoError(t, d.Validate())

			for i := 0; i+1 < len(d.Items); i++ {
				cur, next := d.Items[i], d.Items[i+1]
				assert.Greater(t, next.CompositionStartTime, cur.CompositionStartTime)
				assert.InDelta(t, cur.CompositionStartTime+cur.SourceDuration-0.5, next.CompositionStartTime, 1e-12)
			}
			assert.InDelta(t, d.End(len(d.Items)-1), d.TotalDuration, 1e-12)
		})
	}
}

func TestBuildClampsAndTrims(t *testing.T) {
	items := []MediaItem{
		video("long", 100, nil),
		video("trimmed", 10, &TrimRange{StartTime: 8, Duration: 5}),
		{ID: "still", Kind: KindImage, Trim: &TrimRange{Duration: 2}},
	}
	d, err := Build(items, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, MaxItemDuration, d.Items[0].SourceDuration)
	assert.Equal(t, 8.0, d.Items[1].SourceStartTime)
	assert.Equal(t, 2.0, d.Items[1].SourceDuration, "trim clipped to the end of the source")
	assert.Equal(t, 2.0, d.Items[2].SourceDuration)
	assert.Equal(t, 19.0, d.TotalDuration)

	opts := DefaultOptions()
	opts.MaxItemDuration = 4
	opts.DefaultImageDuration = 3
	d, err = Build([]MediaItem{image("a"), video("b", 100, nil)}, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, starts(d))
	assert.Equal(t, 7.0, d.TotalDuration)
}

func TestBuildShortensTransitionForShortItems(t *testing.T) {
	items := []MediaItem{video("a", 0.6, nil), image("b")}
	d, err := Build(items, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 0.3, d.Items[0].TransitionDuration, 1e-12)
	assert.InDelta(t, 0.3, d.Items[1].CompositionStartTime, 1e-12)
	assert.NoError(t, d.Validate())
}

func TestBuildPerItemTransitionOverride(t *testing.T) {
	a := image("a")
	a.TransitionAfter = TransitionNone.Ptr()
	d, err := Build([]MediaItem{a, image("b"), image("c")}, TransitionSlide.Ptr(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 5, 9.5}, starts(d))
	assert.Equal(t, TransitionNone, d.Items[0].Transition)
	assert.Equal(t, TransitionSlide, d.Items[1].Transition)
	assert.Equal(t, 14.5, d.TotalDuration)
}

func TestBuildEmpty(t *testing.T) {
	d, err := Build(nil, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, d.TotalDuration)
	assert.Empty(t, d.Items)
	assert.True(t, d.Empty())
	assert.NoError(t, d.Validate())
}

func TestBuildIsPure(t *testing.T) {
	item := image("a")
	item.Edition.Crop = &crop.Rect{Width: 10, Height: 10}
	item.Edition.Values = map[string]float64{"brightness": 0.2}
	items := []MediaItem{item, video("b", 4, nil)}

	first, err := Build(items, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)
	second, err := Build(items, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// later edits do not leak into the snapshot
	items[0].Edition.Crop.Width = 99
	items[0].Edition.Values["brightness"] = 1
	assert.Equal(t, 10.0, first.Items[0].Edition.Crop.Width)
	assert.Equal(t, 0.2, first.Items[0].Edition.Values["brightness"])
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]MediaItem{image("a")}, TransitionID("wipe").Ptr(), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownTransition)

	_, err = Build([]MediaItem{video("v", 0, nil)}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = Build([]MediaItem{video("v", 10, &TrimRange{StartTime: -1, Duration: 2})}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = Build([]MediaItem{{ID: "x", Kind: "audio"}}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidItem)

	a := image("a")
	a.TransitionAfter = TransitionID("spin").Ptr()
	_, err = Build([]MediaItem{a, image("b")}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownTransition)
}

func TestDescriptorValidateRejectsBrokenLayout(t *testing.T) {
	d, err := Build([]MediaItem{image("a"), image("b")}, TransitionFade.Ptr(), DefaultOptions())
	require.NoError(t, err)

	broken := Descriptor{TotalDuration: d.TotalDuration, Items: append([]Entry(nil), d.Items...)}
	broken.Items[1].CompositionStartTime = 4.0
	assert.Error(t, broken.Validate())

	broken = Descriptor{TotalDuration: 10, Items: d.Items}
	assert.Error(t, broken.Validate())

	assert.Error(t, Descriptor{TotalDuration: 1}.Validate())
}

func TestLookupTransition(t *testing.T) {
	tr, err := LookupTransition("")
	require.NoError(t, err)
	assert.Equal(t, TransitionNone, tr.ID)

	tr, err = LookupTransition("FADE")
	require.NoError(t, err)
	assert.Equal(t, Transition{ID: TransitionFade, Duration: 0.5}, tr)

	assert.Equal(t, []TransitionID{TransitionFade, TransitionNone, TransitionSlide}, Transitions())
}

func TestProjectRoundTripAndLatest(t *testing.T) {
	dir := t.TempDir()
	a := image("a")
	a.Edition.Pitch = 12
	p := &Project{
		Name:       "cover",
		Canvas:     Canvas{Width: 1080, Height: 1920, FPS: 30},
		Transition: TransitionFade.Ptr(),
		Items:      []MediaItem{a, video("b", 6, &TrimRange{StartTime: 1, Duration: 3})},
	}

	older := GenerateProjectPath(dir, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	newer := GenerateProjectPath(dir, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, WriteProject(p, older))
	require.NoError(t, WriteProject(p, newer))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	latest, err := FindLatestProject(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, latest)

	got, err := ReadProject(latest)
	require.NoError(t, err)
	assert.Equal(t, ProjectVersion, got.Version)
	assert.Equal(t, p.Items, got.Items)

	d, err := got.Descriptor(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 7.5, d.TotalDuration)

	_, err = FindLatestProject(t.TempDir())
	assert.Error(t, err)
}

func starts(d Descriptor) []float64 {
	out := make([]float64, len(d.Items))
	for i, e := range d.Items {
		out[i] = e.CompositionStartTime
	}
	return out
}
