package timeline

import (
	"fmt"
	"slices"
	"strings"
)

// TransitionID names a transition.
type TransitionID string

const (
	TransitionNone  TransitionID = "none"
	TransitionFade  TransitionID = "fade"
	TransitionSlide TransitionID = "slide"
)

// Ptr returns a pointer to id, for optional fields.
func (id TransitionID) Ptr() *TransitionID { return &id }

// Transition is a blend between consecutive items with a fixed duration.
type Transition struct {
	ID       TransitionID
	Duration float64 // seconds
}

var transitions = map[TransitionID]Transition{
	TransitionNone:  {ID: TransitionNone, Duration: 0},
	TransitionFade:  {ID: TransitionFade, Duration: 0.5},
	TransitionSlide: {ID: TransitionSlide, Duration: 0.5},
}

// LookupTransition returns the definition for id. An empty id is "none".
func LookupTransition(id TransitionID) (Transition, error) {
	if id == "" {
		id = TransitionNone
	}
	t, ok := transitions[TransitionID(strings.ToLower(string(id)))]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownTransition, id)
	}
	return t, nil
}

// Transitions lists the known transition ids in a stable order.
func Transitions() []TransitionID {
	ids := make([]TransitionID, 0, len(transitions))
	for id := range transitions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
