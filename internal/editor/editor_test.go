package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/gesture"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
)

func apply(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func TestModesAndSelection(t *testing.T) {
	s := apply(New(),
		AddLayer{Layer: Layer{ID: "t1", Kind: gesture.LayerText, Text: "hi"}},
		AddLayer{Layer: Layer{ID: "o1", Kind: gesture.LayerOverlay}},
	)
	assert.Equal(t, ModeOverlay, s.Mode)
	assert.Equal(t, 1, s.Selected)

	s = Reduce(s, SelectLayer{Index: 0})
	assert.Equal(t, ModeText, s.Mode)
	l, ok := s.SelectedLayer()
	require.True(t, ok)
	assert.Equal(t, "t1", l.ID)

	s = Reduce(s, EnterMode{Mode: ModeCrop})
	assert.Equal(t, ModeCrop, s.Mode)
	assert.Equal(t, NoSelection, s.Selected, "switching modes drops the selection")

	s = apply(s, SelectLayer{Index: 1}, ClearSelection{})
	assert.Equal(t, ModeOverlay, s.Mode)
	_, ok = s.SelectedLayer()
	assert.False(t, ok)
}

func TestAddLayerAssignsID(t *testing.T) {
	s := Reduce(New(), AddLayer{Layer: Layer{Kind: gesture.LayerText}})
	l, ok := s.SelectedLayer()
	require.True(t, ok)
	require.NoError(t, typeid.Validate(l.ID, typeid.PrefixLayer))
}

func TestInvalidActionsLeaveStateUntouched(t *testing.T) {
	s := apply(New(), AddItem{Item: timeline.MediaItem{ID: "a", Kind: timeline.KindImage}})

	for _, a := range []Action{
		SelectLayer{Index: 3},
		RemoveLayer{Index: 0},
		CommitBounds{Index: -1},
		EnterMode{Mode: Mode(42)},
		RemoveItem{Index: 5},
		SetTrim{Index: 2},
		SetTransition{ID: timeline.TransitionID("wipe").Ptr()},
		SetEditionParameter{},
	} {
		assert.Equal(t, s, Reduce(s, a), "%T", a)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := apply(New(),
		AddLayer{Layer: Layer{ID: "a", Kind: gesture.LayerLinks}},
		AddItem{Item: timeline.MediaItem{ID: "v", Kind: timeline.KindVideo, Duration: 10}},
	)
	before := s
	layers := append([]Layer(nil), s.Layers...)

	next := Reduce(s, CommitBounds{Index: 0, Bounds: gesture.Bounds{X: 5, Width: 10, Height: 10}})
	assert.Equal(t, layers, s.Layers)
	assert.Equal(t, 5.0, next.Layers[0].Bounds.X)
	assert.Equal(t, before.Version+1, next.Version)

	next = Reduce(s, SetTrim{Index: 0, Trim: &timeline.TrimRange{StartTime: 1, Duration: 2}})
	assert.Nil(t, s.Items[0].Trim)
	require.NotNil(t, next.Items[0].Trim)

	next = Reduce(s, RemoveLayer{Index: 0})
	assert.Len(t, s.Layers, 1)
	assert.Empty(t, next.Layers)
	assert.Equal(t, NoSelection, next.Selected)
}

func TestEditionLifecycle(t *testing.T) {
	s := apply(New(),
		AddItem{Item: timeline.MediaItem{ID: "a", Kind: timeline.KindImage, Width: 1000, Height: 500}},
		AddItem{Item: timeline.MediaItem{ID: "b", Kind: timeline.KindImage}},
		EnterMode{Mode: ModeCrop},
		SetEditionParameter{Name: "pitch", Value: 10},
		SetEditionParameter{Name: "orientation", Value: -90},
		SetEditionParameter{Name: "brightness", Value: 0.3},
		SetCrop{Rect: &crop.Rect{OriginX: 250, Width: 500, Height: 500}},
	)
	assert.Equal(t, 10.0, s.Edition.Pitch)
	assert.Equal(t, geometry.OrientationLeft, s.Edition.Orientation)
	assert.Equal(t, map[string]float64{"brightness": 0.3}, s.Values())
	assert.True(t, s.Items[0].Edition.IsZero(), "pending edits are not committed yet")

	cancelled := Reduce(s, CancelEdits{})
	assert.True(t, cancelled.Edition.IsZero())
	assert.Equal(t, ModeNone, cancelled.Mode)

	applied := Reduce(s, ApplyEdits{})
	assert.Equal(t, 10.0, applied.Items[0].Edition.Pitch)
	require.NotNil(t, applied.Items[0].Edition.Crop)
	assert.Equal(t, 500.0, applied.Items[0].Edition.Crop.Width)

	// pending edits and the committed item do not alias
	changed := Reduce(applied, SetEditionParameter{Name: "brightness", Value: 0.9})
	assert.Equal(t, 0.3, applied.Items[0].Edition.Values["brightness"])
	assert.Equal(t, 0.9, changed.Edition.Values["brightness"])

	switched := Reduce(applied, SelectItem{Index: 1})
	assert.Equal(t, 1, switched.Current)
	assert.True(t, switched.Edition.IsZero())
}

func TestRemoveItemKeepsCurrentConsistent(t *testing.T) {
	s := apply(New(),
		AddItem{Item: timeline.MediaItem{ID: "a", Kind: timeline.KindImage}},
		AddItem{Item: timeline.MediaItem{ID: "b", Kind: timeline.KindImage, Edition: timeline.EditionParameters{Roll: 4}}},
		SelectItem{Index: 1},
		RemoveItem{Index: 0},
	)
	assert.Equal(t, 0, s.Current)
	item, ok := s.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, "b", item.ID)
	assert.Equal(t, 4.0, s.Edition.Roll)

	s = Reduce(s, RemoveItem{Index: 0})
	_, ok = s.CurrentItem()
	assert.False(t, ok)
	assert.True(t, s.Edition.IsZero())
}

func TestStateDescriptor(t *testing.T) {
	s := apply(New(),
		AddItem{Item: timeline.MediaItem{ID: "a", Kind: timeline.KindImage}},
		AddItem{Item: timeline.MediaItem{ID: "b", Kind: timeline.KindImage}},
		SetTransition{ID: timeline.TransitionFade.Ptr()},
	)
	d, err := s.Descriptor(timeline.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 9.5, d.TotalDuration)

	s = Reduce(s, SetTransition{})
	d, err = s.Descriptor(timeline.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 10.0, d.TotalDuration)
}

func TestParseMode(t *testing.T) {
	for m := ModeNone; m <= ModeCrop; m++ {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("paint")
	assert.Error(t, err)

	kind, ok := ModeLinks.LayerKind()
	assert.True(t, ok)
	assert.Equal(t, gesture.LayerLinks, kind)
	_, ok = ModeCrop.LayerKind()
	assert.False(t, ok)
}
