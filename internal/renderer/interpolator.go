package renderer

import "sort"

// Easing names an interpolation curve.
type Easing string

const (
	EaseLinear       Easing = "linear"
	EaseOutCubic     Easing = "cubic-out"
	EaseInOutCubic   Easing = "cubic-in-out"
	EaseOutQuadratic Easing = "quad-out"
)

// Ease maps t (clamped to 0..1) through the named curve. Unknown names are
// linear.
func Ease(e Easing, t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}

	switch e {
	case EaseOutCubic:
		t2 := 1 - t
		return 1 - t2*t2*t2
	case EaseInOutCubic:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2
	case EaseOutQuadratic:
		return t * (2 - t)
	default:
		return t
	}
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Keyframe is a value pinned to a time in seconds.
type Keyframe struct {
	Time   float64
	Value  float64
	Easing Easing // curve towards the next keyframe
}

// InterpolateKeyframes returns the value at currentTime. Before the first
// keyframe the first value holds, after the last one the last value holds.
// keyframes must be sorted by Time.
func InterpolateKeyframes(keyframes []Keyframe, currentTime float64) float64 {
	if len(keyframes) == 0 {
		return 0
	}
	if currentTime <= keyframes[0].Time {
		return keyframes[0].Value
	}
	last := keyframes[len(keyframes)-1]
	if currentTime >= last.Time {
		return last.Value
	}

	// first keyframe strictly after currentTime
	i := sort.Search(len(keyframes), func(i int) bool { return keyframes[i].Time > currentTime })
	prev, next := keyframes[i-1], keyframes[i]

	span := next.Time - prev.Time
	if span <= 0 {
		return next.Value
	}
	t := Ease(prev.Easing, (currentTime-prev.Time)/span)
	return Lerp(prev.Value, next.Value, t)
}

// Track animates one scalar from From to To over Duration seconds.
type Track struct {
	From, To float64
	Duration float64
	Easing   Easing
}

// At returns the value after elapsed seconds and whether the track finished.
func (tr Track) At(elapsed float64) (float64, bool) {
	if tr.Duration <= 0 || elapsed >= tr.Duration || tr.From == tr.To {
		return tr.To, true
	}
	if elapsed <= 0 {
		return tr.From, false
	}
	return Lerp(tr.From, tr.To, Ease(tr.Easing, elapsed/tr.Duration)), false
}
