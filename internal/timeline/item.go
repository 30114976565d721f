// Package timeline lays media items out on a single composition clock.
package timeline

import (
	"errors"
	"fmt"
	"maps"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
)

var (
	// ErrInvalidItem is returned for items that cannot be placed.
	ErrInvalidItem = errors.New("invalid media item")
	// ErrUnknownTransition is returned for transition ids with no definition.
	ErrUnknownTransition = errors.New("unknown transition")
)

// Kind is the media type of an item.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// TrimRange selects a window of the source, in seconds.
type TrimRange struct {
	StartTime float64 `yaml:"start_time" json:"start_time"`
	Duration  float64 `yaml:"duration" json:"duration"`
}

// EditionParameters are the per-item edits. Values holds knobs such as
// brightness or contrast that are passed through untouched.
type EditionParameters struct {
	Pitch       float64              `yaml:"pitch,omitempty" json:"pitch,omitempty"`
	Yaw         float64              `yaml:"yaw,omitempty" json:"yaw,omitempty"`
	Roll        float64              `yaml:"roll,omitempty" json:"roll,omitempty"`
	Orientation geometry.Orientation `yaml:"orientation,omitempty" json:"orientation,omitempty"`
	Crop        *crop.Rect           `yaml:"crop,omitempty" json:"crop,omitempty"`
	Values      map[string]float64   `yaml:"values,omitempty" json:"values,omitempty"`
}

// Clone returns a deep copy.
func (e EditionParameters) Clone() EditionParameters {
	if e.Crop != nil {
		c := *e.Crop
		e.Crop = &c
	}
	e.Values = maps.Clone(e.Values)
	return e
}

// IsZero reports whether no edit has been made.
func (e EditionParameters) IsZero() bool {
	return e.Pitch == 0 && e.Yaw == 0 && e.Roll == 0 && e.Orientation == 0 &&
		e.Crop == nil && len(e.Values) == 0
}

// Quadrilateral returns the valid outline of a width×height source under
// these edits.
func (e EditionParameters) Quadrilateral(b geometry.Builder, width, height float64) geometry.Quadrilateral {
	return b.Build(width, height, e.Pitch, e.Yaw, e.Roll, e.Orientation)
}

// MediaItem is one image or clip placed by the user.
type MediaItem struct {
	ID              string            `yaml:"id" json:"id"`
	Kind            Kind              `yaml:"kind" json:"kind"`
	URI             string            `yaml:"uri" json:"uri"`
	Width           int               `yaml:"width" json:"width"`
	Height          int               `yaml:"height" json:"height"`
	Duration        float64           `yaml:"duration,omitempty" json:"duration,omitempty"` // full source length, videos only
	Trim            *TrimRange        `yaml:"trim,omitempty" json:"trim,omitempty"`
	Filter          string            `yaml:"filter,omitempty" json:"filter,omitempty"`
	Edition         EditionParameters `yaml:"edition,omitempty" json:"edition,omitempty"`
	TransitionAfter *TransitionID     `yaml:"transition_after,omitempty" json:"transition_after,omitempty"`
}

// Clone returns a deep copy so descriptors never share mutable state with
// the editor.
func (m MediaItem) Clone() MediaItem {
	if m.Trim != nil {
		t := *m.Trim
		m.Trim = &t
	}
	if m.TransitionAfter != nil {
		id := *m.TransitionAfter
		m.TransitionAfter = &id
	}
	m.Edition = m.Edition.Clone()
	return m
}

// source returns the start offset and the requested play length before the
// max-duration clamp.
func (m MediaItem) source(opts Options) (start, length float64, err error) {
	switch m.Kind {
	case KindImage:
		if m.Trim != nil && m.Trim.Duration > 0 {
			return 0, m.Trim.Duration, nil
		}
		return 0, opts.DefaultImageDuration, nil

	case KindVideo:
		if m.Trim != nil {
			start, length = m.Trim.StartTime, m.Trim.Duration
			if start < 0 || length <= 0 {
				return 0, 0, fmt.Errorf("%w: %s: trim %.3f+%.3f", ErrInvalidItem, m.ID, start, length)
			}
			if m.Duration > 0 && start+length > m.Duration {
				length = m.Duration - start
			}
		} else {
			length = m.Duration
		}
		if !(length > 0) {
			return 0, 0, fmt.Errorf("%w: %s: video has no duration", ErrInvalidItem, m.ID)
		}
		return start, length, nil
	}
	return 0, 0, fmt.Errorf("%w: %s: kind %q", ErrInvalidItem, m.ID, m.Kind)
}
