package editor

import (
	"maps"
	"slices"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/gesture"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
)

// Action is a state transition understood by Reduce.
type Action interface {
	action()
}

type (
	// EnterMode switches the editing surface and drops the selection.
	EnterMode struct{ Mode Mode }
	// SelectLayer selects a layer and enters the mode that edits it.
	SelectLayer struct{ Index int }
	// ClearSelection drops the selected layer but keeps the mode.
	ClearSelection struct{}
	// AddLayer appends a layer and selects it. A layer without an ID gets a
	// fresh one.
	AddLayer struct{ Layer Layer }
	// RemoveLayer deletes a layer.
	RemoveLayer struct{ Index int }
	// CommitBounds stores the final bounds of a gesture on a layer.
	CommitBounds struct {
		Index  int
		Bounds gesture.Bounds
	}
	// SetCrop replaces the pending crop of the current item. Nil clears it.
	SetCrop struct{ Rect *crop.Rect }
	// SetEditionParameter sets one pending edit of the current item. The
	// geometry names pitch, yaw, roll and orientation are typed; anything
	// else is passed through.
	SetEditionParameter struct {
		Name  string
		Value float64
	}
	// ApplyEdits writes the pending edits into the current item.
	ApplyEdits struct{}
	// CancelEdits discards the pending edits wholesale.
	CancelEdits struct{}
	// SelectItem makes an item current and loads its edits.
	SelectItem struct{ Index int }
	// AddItem appends a media item.
	AddItem struct{ Item timeline.MediaItem }
	// RemoveItem deletes a media item.
	RemoveItem struct{ Index int }
	// SetTrim changes the trim of an item. Nil clears it.
	SetTrim struct {
		Index int
		Trim  *timeline.TrimRange
	}
	// SetTransition changes the default transition. Nil means none.
	SetTransition struct{ ID *timeline.TransitionID }
)

func (EnterMode) action()           {}
func (SelectLayer) action()         {}
func (ClearSelection) action()      {}
func (AddLayer) action()            {}
func (RemoveLayer) action()         {}
func (CommitBounds) action()        {}
func (SetCrop) action()             {}
func (SetEditionParameter) action() {}
func (ApplyEdits) action()          {}
func (CancelEdits) action()         {}
func (SelectItem) action()          {}
func (AddItem) action()             {}
func (RemoveItem) action()          {}
func (SetTrim) action()             {}
func (SetTransition) action()       {}

// Reduce returns the state after a. Invalid actions (out of range indexes,
// unknown modes) return s unchanged, including its Version.
func Reduce(s State, a Action) State {
	next, ok := reduce(s, a)
	if !ok {
		return s
	}
	next.Version = s.Version + 1
	return next
}

func reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case EnterMode:
		if a.Mode < ModeNone || a.Mode > ModeCrop {
			return s, false
		}
		s.Mode = a.Mode
		s.Selected = NoSelection
		return s, true

	case SelectLayer:
		if a.Index < 0 || a.Index >= len(s.Layers) {
			return s, false
		}
		s.Mode = modeFor(s.Layers[a.Index].Kind)
		s.Selected = a.Index
		return s, true

	case ClearSelection:
		s.Selected = NoSelection
		return s, true

	case AddLayer:
		if a.Layer.ID == "" {
			a.Layer.ID = typeid.NewLayerID()
		}
		s.Layers = append(slices.Clip(s.Layers), a.Layer)
		s.Mode = modeFor(a.Layer.Kind)
		s.Selected = len(s.Layers) - 1
		return s, true

	case RemoveLayer:
		if a.Index < 0 || a.Index >= len(s.Layers) {
			return s, false
		}
		s.Layers = slices.Delete(slices.Clone(s.Layers), a.Index, a.Index+1)
		switch {
		case s.Selected == a.Index:
			s.Selected = NoSelection
		case s.Selected > a.Index:
			s.Selected--
		}
		return s, true

	case CommitBounds:
		if a.Index < 0 || a.Index >= len(s.Layers) {
			return s, false
		}
		s.Layers = slices.Clone(s.Layers)
		s.Layers[a.Index].Bounds = a.Bounds
		return s, true

	case SetCrop:
		s.Edition = s.Edition.Clone()
		if a.Rect == nil {
			s.Edition.Crop = nil
		} else {
			r := *a.Rect
			s.Edition.Crop = &r
		}
		return s, true

	case SetEditionParameter:
		if a.Name == "" {
			return s, false
		}
		s.Edition = s.Edition.Clone()
		switch a.Name {
		case "pitch":
			s.Edition.Pitch = a.Value
		case "yaw":
			s.Edition.Yaw = a.Value
		case "roll":
			s.Edition.Roll = a.Value
		case "orientation":
			s.Edition.Orientation = geometry.Orientation(int(a.Value)).Normalize()
		default:
			if s.Edition.Values == nil {
				s.Edition.Values = make(map[string]float64)
			}
			s.Edition.Values[a.Name] = a.Value
		}
		return s, true

	case ApplyEdits:
		if s.Current < 0 || s.Current >= len(s.Items) {
			return s, false
		}
		s.Items = slices.Clone(s.Items)
		s.Items[s.Current].Edition = s.Edition.Clone()
		s.Mode = ModeNone
		s.Selected = NoSelection
		return s, true

	case CancelEdits:
		s.Edition = timeline.EditionParameters{}
		if item, ok := s.CurrentItem(); ok {
			s.Edition = item.Edition.Clone()
		}
		s.Mode = ModeNone
		s.Selected = NoSelection
		return s, true

	case SelectItem:
		if a.Index < 0 || a.Index >= len(s.Items) {
			return s, false
		}
		s.Current = a.Index
		s.Edition = s.Items[a.Index].Edition.Clone()
		return s, true

	case AddItem:
		s.Items = append(slices.Clip(s.Items), a.Item.Clone())
		if len(s.Items) == 1 {
			s.Current = 0
			s.Edition = s.Items[0].Edition.Clone()
		}
		return s, true

	case RemoveItem:
		if a.Index < 0 || a.Index >= len(s.Items) {
			return s, false
		}
		s.Items = slices.Delete(slices.Clone(s.Items), a.Index, a.Index+1)
		switch {
		case a.Index == s.Current:
			s.Current = 0
			s.Edition = timeline.EditionParameters{}
			if item, ok := s.CurrentItem(); ok {
				s.Edition = item.Edition.Clone()
			}
		case a.Index < s.Current:
			s.Current--
		}
		return s, true

	case SetTrim:
		if a.Index < 0 || a.Index >= len(s.Items) {
			return s, false
		}
		s.Items = slices.Clone(s.Items)
		if a.Trim == nil {
			s.Items[a.Index].Trim = nil
		} else {
			t := *a.Trim
			s.Items[a.Index].Trim = &t
		}
		return s, true

	case SetTransition:
		if a.ID == nil {
			s.Transition = nil
			return s, true
		}
		if _, err := timeline.LookupTransition(*a.ID); err != nil {
			return s, false
		}
		id := *a.ID
		s.Transition = &id
		return s, true
	}
	return s, false
}

// Values returns a copy of the pass-through edition values.
func (s State) Values() map[string]float64 {
	return maps.Clone(s.Edition.Values)
}
