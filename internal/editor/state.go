// Package editor holds the authoritative editing state and the reducer that
// moves it forward. Gesture handlers work on a live value and only reach
// this state through actions at gesture end.
package editor

import (
	"fmt"

	"github.com/ivlev/coverstudio/internal/gesture"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// Mode is the active editing surface. Exactly one is active at a time.
type Mode int

const (
	ModeNone Mode = iota
	ModeOverlay
	ModeText
	ModeLinks
	ModeCrop
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeOverlay:
		return "overlay"
	case ModeText:
		return "text"
	case ModeLinks:
		return "links"
	case ModeCrop:
		return "crop"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := ModeNone; m <= ModeCrop; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

// LayerKind returns the layer kind edited in this mode, and false for modes
// without selectable layers.
func (m Mode) LayerKind() (gesture.LayerKind, bool) {
	switch m {
	case ModeOverlay:
		return gesture.LayerOverlay, true
	case ModeText:
		return gesture.LayerText, true
	case ModeLinks:
		return gesture.LayerLinks, true
	}
	return 0, false
}

func modeFor(kind gesture.LayerKind) Mode {
	switch kind {
	case gesture.LayerOverlay:
		return ModeOverlay
	case gesture.LayerText:
		return ModeText
	case gesture.LayerLinks:
		return ModeLinks
	}
	return ModeCrop
}

// Layer is a rectangle drawn over the composition.
type Layer struct {
	ID     string            `yaml:"id"`
	Kind   gesture.LayerKind `yaml:"kind"`
	Bounds gesture.Bounds    `yaml:"bounds"`
	Text   string            `yaml:"text,omitempty"`
	URL    string            `yaml:"url,omitempty"`
	Source string            `yaml:"source,omitempty"`
}

// NoSelection is the Selected value when nothing is selected.
const NoSelection = -1

// State is the editor state. Values are never mutated in place: every
// reducer step returns a new State whose slices are fresh copies where they
// changed.
type State struct {
	Version    uint64
	Mode       Mode
	Selected   int // layer index, NoSelection when none
	Layers     []Layer
	Items      []timeline.MediaItem
	Current    int // item being edited
	Edition    timeline.EditionParameters
	Transition *timeline.TransitionID
}

// New returns an empty state.
func New() State {
	return State{Selected: NoSelection}
}

// SelectedLayer returns the selected layer, if any.
func (s State) SelectedLayer() (Layer, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Layers) {
		return Layer{}, false
	}
	return s.Layers[s.Selected], true
}

// CurrentItem returns the item being edited, if any.
func (s State) CurrentItem() (timeline.MediaItem, bool) {
	if s.Current < 0 || s.Current >= len(s.Items) {
		return timeline.MediaItem{}, false
	}
	return s.Items[s.Current], true
}

// Descriptor builds the timeline for the committed items.
func (s State) Descriptor(opts timeline.Options) (timeline.Descriptor, error) {
	return timeline.Build(s.Items, s.Transition, opts)
}
