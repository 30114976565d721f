package gesture

import "sync/atomic"

// Snapshot is an immutable live value. Version increases with every store.
type Snapshot struct {
	Bounds  Bounds
	Version uint64
}

// Live is the high-frequency preview value shared between the gesture
// handler and readers such as the preview renderer. Writers replace the whole
// snapshot; readers never see a torn value.
type Live struct {
	v atomic.Pointer[Snapshot]
}

// NewLive returns a Live holding b at version 1.
func NewLive(b Bounds) *Live {
	l := &Live{}
	l.v.Store(&Snapshot{Bounds: b, Version: 1})
	return l
}

// Load returns the current snapshot.
func (l *Live) Load() Snapshot {
	if p := l.v.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}

// Store publishes b and returns the new snapshot.
func (l *Live) Store(b Bounds) Snapshot {
	for {
		old := l.v.Load()
		next := &Snapshot{Bounds: b, Version: 1}
		if old != nil {
			next.Version = old.Version + 1
		}
		if l.v.CompareAndSwap(old, next) {
			return *next
		}
	}
}
