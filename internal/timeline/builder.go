package timeline

import (
	"fmt"
	"log/slog"
	"math"
)

const (
	// DefaultImageDuration is how long a still is shown, in seconds.
	DefaultImageDuration = 5.0
	// MaxItemDuration caps any single item, in seconds.
	MaxItemDuration = 15.0

	overlapTolerance = 1e-9
)

// Options tune the builder.
type Options struct {
	DefaultImageDuration float64
	MaxItemDuration      float64
	Logger               *slog.Logger
}

// DefaultOptions returns the stock durations.
func DefaultOptions() Options {
	return Options{
		DefaultImageDuration: DefaultImageDuration,
		MaxItemDuration:      MaxItemDuration,
	}
}

func (o Options) normalized() Options {
	if !(o.DefaultImageDuration > 0) {
		o.DefaultImageDuration = DefaultImageDuration
	}
	if !(o.MaxItemDuration > 0) {
		o.MaxItemDuration = MaxItemDuration
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Resolution is the pixel size of an entry.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Entry is an item placed on the composition clock.
type Entry struct {
	ID                   string            `yaml:"id" json:"id"`
	Kind                 Kind              `yaml:"kind" json:"kind"`
	URI                  string            `yaml:"uri" json:"uri"`
	SourceStartTime      float64           `yaml:"source_start_time" json:"source_start_time"`
	SourceDuration       float64           `yaml:"source_duration" json:"source_duration"`
	CompositionStartTime float64           `yaml:"composition_start_time" json:"composition_start_time"`
	Resolution           Resolution        `yaml:"resolution" json:"resolution"`
	Transition           TransitionID      `yaml:"transition" json:"transition"` // into the next entry
	TransitionDuration   float64           `yaml:"transition_duration" json:"transition_duration"`
	Filter               string            `yaml:"filter,omitempty" json:"filter,omitempty"`
	Edition              EditionParameters `yaml:"edition,omitempty" json:"edition,omitempty"`
}

// End is the composition time at which the entry stops.
func (e Entry) End() float64 {
	return e.CompositionStartTime + e.SourceDuration
}

// Descriptor is the immutable schedule handed to playback and export.
type Descriptor struct {
	TotalDuration float64 `yaml:"total_duration" json:"total_duration"`
	Items         []Entry `yaml:"items" json:"items"`
}

// End returns the end time of item i.
func (d Descriptor) End(i int) float64 {
	return d.Items[i].End()
}

// Empty reports whether there is nothing to render.
func (d Descriptor) Empty() bool {
	return len(d.Items) == 0
}

// Validate re-checks the layout: strictly increasing starts, consecutive
// items overlapping by exactly the transition duration and the total equal
// to the last end.
func (d Descriptor) Validate() error {
	if len(d.Items) == 0 {
		if d.TotalDuration != 0 {
			return fmt.Errorf("empty timeline with total %.3f", d.TotalDuration)
		}
		return nil
	}
	for i := 1; i < len(d.Items); i++ {
		prev, cur := d.Items[i-1], d.Items[i]
		if cur.CompositionStartTime <= prev.CompositionStartTime {
			return fmt.Errorf("item %d (%s) starts at %.3f, not after %.3f", i, cur.ID, cur.CompositionStartTime, prev.CompositionStartTime)
		}
		want := prev.End() - prev.TransitionDuration
		if math.Abs(cur.CompositionStartTime-want) > overlapTolerance {
			return fmt.Errorf("item %d (%s) starts at %.6f, want %.6f", i, cur.ID, cur.CompositionStartTime, want)
		}
	}
	last := d.Items[len(d.Items)-1]
	if last.TransitionDuration != 0 {
		return fmt.Errorf("last item %s carries a %.3fs transition", last.ID, last.TransitionDuration)
	}
	if math.Abs(d.TotalDuration-last.End()) > overlapTolerance {
		return fmt.Errorf("total %.6f, last item ends at %.6f", d.TotalDuration, last.End())
	}
	return nil
}

// Build lays items out back to back. Each item after the first starts the
// active transition's duration before the previous one ends; the total is
// the end of the last item. transition applies to every boundary unless an
// item carries its own TransitionAfter. A transition longer than half of
// either neighbour is shortened to that half.
//
// Build is pure: identical input yields an identical descriptor and the
// descriptor shares no memory with items.
func Build(items []MediaItem, transition *TransitionID, opts Options) (Descriptor, error) {
	opts = opts.normalized()

	global := Transition{ID: TransitionNone}
	if transition != nil {
		t, err := LookupTransition(*transition)
		if err != nil {
			return Descriptor{}, err
		}
		global = t
	}

	entries := make([]Entry, len(items))
	for i, item := range items {
		start, length, err := item.source(opts)
		if err != nil {
			return Descriptor{}, fmt.Errorf("item %d: %w", i, err)
		}
		item = item.Clone()
		id := item.ID
		if id == "" {
			id = fmt.Sprintf("item-%d", i)
		}
		entries[i] = Entry{
			ID:              id,
			Kind:            item.Kind,
			URI:             item.URI,
			SourceStartTime: start,
			SourceDuration:  math.Min(length, opts.MaxItemDuration),
			Resolution:      Resolution{Width: item.Width, Height: item.Height},
			Filter:          item.Filter,
			Edition:         item.Edition,
		}
	}

	// transitions live on the boundary after each item but the last
	for i := 0; i+1 < len(entries); i++ {
		t := global
		if override := items[i].TransitionAfter; override != nil {
			var err error
			if t, err = LookupTransition(*override); err != nil {
				return Descriptor{}, fmt.Errorf("item %d: %w", i, err)
			}
		}
		d := t.Duration
		limit := math.Min(entries[i].SourceDuration, entries[i+1].SourceDuration) / 2
		if d > limit {
			opts.Logger.Warn("transition shortened", "item", entries[i].ID, "transition", t.ID, "from", d, "to", limit)
			d = limit
		}
		entries[i].Transition = t.ID
		entries[i].TransitionDuration = d
	}
	if n := len(entries); n > 0 {
		entries[n-1].Transition = TransitionNone
	}

	var end, prevTransition float64
	for i := range entries {
		start := math.Max(end-prevTransition, 0)
		entries[i].CompositionStartTime = start
		end = start + entries[i].SourceDuration
		prevTransition = entries[i].TransitionDuration
	}

	return Descriptor{TotalDuration: end, Items: entries}, nil
}
