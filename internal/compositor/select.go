// Package compositor decides, for any instant of a composition, which items
// are on screen and how they blend. Pixels are left to a Rasterizer.
package compositor

import (
	"math"
	"sort"

	"github.com/ivlev/coverstudio/internal/timeline"
)

// Ref points at one entry of a descriptor at a given instant.
type Ref struct {
	Index      int
	ID         string
	LocalTime  float64 // seconds since the entry started
	SourceTime float64 // position inside the source media
}

// Frame is the selection for one instant. Outgoing is only meaningful when
// HasOutgoing is set, in which case Progress runs 0→1 through the
// transition window.
type Frame struct {
	Time        float64
	Incoming    Ref
	Outgoing    Ref
	HasOutgoing bool
	Progress    float64
	Transition  timeline.TransitionID
}

// Select returns the items visible at t. It is computed from scratch on
// every call so seeking backwards is always correct. ok is false for an
// empty descriptor.
func Select(t float64, d timeline.Descriptor) (f Frame, ok bool) {
	n := len(d.Items)
	if n == 0 {
		return Frame{}, false
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > d.TotalDuration {
		t = d.TotalDuration
	}

	// last entry that has started by t
	k := sort.Search(n, func(i int) bool { return d.Items[i].CompositionStartTime > t }) - 1
	if k < 0 {
		k = 0
	}

	f = Frame{Time: t, Incoming: ref(d, k, t), Transition: timeline.TransitionNone}
	if k > 0 {
		prev := d.Items[k-1]
		if dur := prev.TransitionDuration; dur > 0 && t < prev.End() {
			f.Outgoing = ref(d, k-1, t)
			f.HasOutgoing = true
			f.Transition = prev.Transition
			f.Progress = clamp01((t - d.Items[k].CompositionStartTime) / dur)
		}
	}
	return f, true
}

func ref(d timeline.Descriptor, i int, t float64) Ref {
	e := d.Items[i]
	local := math.Min(math.Max(t-e.CompositionStartTime, 0), e.SourceDuration)
	return Ref{
		Index:      i,
		ID:         e.ID,
		LocalTime:  local,
		SourceTime: e.SourceStartTime + local,
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
