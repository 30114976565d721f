package gesture

import (
	"log/slog"
	"sync"
	"time"
)

// Session drives one layer through repeated gestures. It owns the live
// value, the gesture-start snapshot and the pending settle animation.
type Session struct {
	live     *Live
	validate func(Bounds) Bounds
	commit   func(Bounds)
	duration time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	offset Offset
	active bool
	settle *Settle
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithValidator sets the gesture-end correction, typically crop.Validate.
func WithValidator(fn func(Bounds) Bounds) SessionOption {
	return func(s *Session) { s.validate = fn }
}

// WithCommit sets the callback that receives finalized bounds.
func WithCommit(fn func(Bounds)) SessionOption {
	return func(s *Session) { s.commit = fn }
}

// WithSettleDuration overrides SettleDuration.
func WithSettleDuration(d time.Duration) SessionOption {
	return func(s *Session) { s.duration = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession starts a session at initial bounds.
func NewSession(initial Bounds, opts ...SessionOption) *Session {
	s := &Session{
		live:     NewLive(initial),
		validate: func(b Bounds) Bounds { return b },
		commit:   func(Bounds) {},
		duration: SettleDuration,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Live exposes the preview value.
func (s *Session) Live() *Live { return s.live }

// Active reports whether a gesture is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Begin starts a gesture. A settle still running is cancelled and the
// snapshot is taken from its current animated value, so the newest gesture
// always wins.
func (s *Session) Begin(now time.Time) Offset {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settle != nil {
		if s.settle.Cancel() {
			s.live.Store(s.settle.Current(now))
			s.logger.Debug("settle interrupted", "target", s.settle.Target())
		}
		s.settle = nil
	}
	s.offset = Capture(s.live.Load().Bounds)
	s.active = true
	return s.offset
}

// Update applies fn to the gesture-start snapshot and publishes the result.
func (s *Session) Update(fn func(Offset) Bounds) Bounds {
	s.mu.Lock()
	o := s.offset
	s.mu.Unlock()

	b := fn(o)
	s.live.Store(b)
	return b
}

// End finishes the gesture. When the live value needs no correction it is
// committed right away and nil is returned; otherwise the returned settle
// animates towards the corrected value and commits when Tick completes it.
func (s *Session) End(now time.Time) *Settle {
	s.mu.Lock()
	s.active = false
	cur := s.live.Load().Bounds
	target := s.validate(cur)
	if target == cur || s.duration <= 0 {
		s.live.Store(target)
		s.mu.Unlock()
		s.commit(target)
		return nil
	}
	s.settle = NewSettle(cur, target, now, s.duration, nil)
	settle := s.settle
	s.mu.Unlock()

	s.logger.Debug("settling", "from", cur, "to", target)
	return settle
}

// Tick advances a pending settle and publishes the animated value. It
// reports whether an animation is still running.
func (s *Session) Tick(now time.Time) bool {
	s.mu.Lock()
	settle := s.settle
	if settle == nil {
		s.mu.Unlock()
		return false
	}
	b, committed := settle.Tick(now)
	s.live.Store(b)
	if settle.Done() {
		s.settle = nil
	}
	s.mu.Unlock()

	if committed {
		s.commit(settle.Target())
	}
	return !committed && !settle.Done()
}
