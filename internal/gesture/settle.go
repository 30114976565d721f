package gesture

import (
	"sync/atomic"
	"time"

	"github.com/ivlev/coverstudio/internal/renderer"
)

// SettleDuration is the length of the gesture-end animation.
const SettleDuration = 100 * time.Millisecond

const (
	axisX = iota
	axisY
	axisWidth
	axisHeight
	axisCount
)

// Settle animates bounds towards a corrected target after a gesture ends.
// Each axis runs its own track; the commit fires once, after the last axis
// finishes, unless the settle was cancelled first.
type Settle struct {
	tracks   [axisCount]renderer.Track
	finished [axisCount]atomic.Bool
	pending  atomic.Int32
	canceled atomic.Bool

	target   Bounds
	start    time.Time
	onCommit func(Bounds)
}

// NewSettle starts an animation from → to at start. onCommit may be nil.
func NewSettle(from, to Bounds, start time.Time, d time.Duration, onCommit func(Bounds)) *Settle {
	secs := d.Seconds()
	s := &Settle{
		target:   to,
		start:    start,
		onCommit: onCommit,
	}
	s.tracks[axisX] = renderer.Track{From: from.X, To: to.X, Duration: secs, Easing: renderer.EaseOutCubic}
	s.tracks[axisY] = renderer.Track{From: from.Y, To: to.Y, Duration: secs, Easing: renderer.EaseOutCubic}
	s.tracks[axisWidth] = renderer.Track{From: from.Width, To: to.Width, Duration: secs, Easing: renderer.EaseOutCubic}
	s.tracks[axisHeight] = renderer.Track{From: from.Height, To: to.Height, Duration: secs, Easing: renderer.EaseOutCubic}
	s.pending.Store(axisCount)
	return s
}

// Target is the bounds the animation ends on.
func (s *Settle) Target() Bounds { return s.target }

// Current returns the animated value at now without advancing the join
// counter.
func (s *Settle) Current(now time.Time) Bounds {
	elapsed := now.Sub(s.start).Seconds()
	b := s.target
	b.X, _ = s.tracks[axisX].At(elapsed)
	b.Y, _ = s.tracks[axisY].At(elapsed)
	b.Width, _ = s.tracks[axisWidth].At(elapsed)
	b.Height, _ = s.tracks[axisHeight].At(elapsed)
	return b
}

// Tick advances the animation to now. committed is true on the one call that
// completed the last axis.
func (s *Settle) Tick(now time.Time) (b Bounds, committed bool) {
	elapsed := now.Sub(s.start).Seconds()
	b = s.target
	values := [axisCount]*float64{&b.X, &b.Y, &b.Width, &b.Height}
	for i := range s.tracks {
		v, done := s.tracks[i].At(elapsed)
		*values[i] = v
		if done && s.finished[i].CompareAndSwap(false, true) {
			if s.pending.Add(-1) == 0 && !s.canceled.Load() {
				committed = true
			}
		}
	}
	if committed && s.onCommit != nil {
		s.onCommit(s.target)
	}
	return b, committed
}

// Cancel suppresses the commit. It reports false if the commit already
// happened.
func (s *Settle) Cancel() bool {
	s.canceled.Store(true)
	return s.pending.Load() > 0
}

// Done reports whether every axis has finished or the settle was cancelled.
func (s *Settle) Done() bool {
	return s.pending.Load() == 0 || s.canceled.Load()
}
