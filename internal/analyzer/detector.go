// Package analyzer finds salient regions in a still and renders them as a
// binary mask.
package analyzer

import (
	"errors"
	"image"
)

// ErrStopped is returned when a Checkpoint asks the analysis to stop.
var ErrStopped = errors.New("analysis stopped")

// Block is a detected region of interest.
type Block struct {
	Rect       image.Rectangle
	Type       string  // text, header, image
	Confidence float64 // 0..1
}

// Analysis is the outcome of one detection run. Mask is 255 inside every
// block and 0 elsewhere.
type Analysis struct {
	Blocks []Block
	Mask   *image.Gray
}

// Checkpoint is polled between phases. A non-nil error aborts the run and
// is returned wrapped in ErrStopped.
type Checkpoint func(phase string) error

// Detector is an analysis strategy.
type Detector interface {
	Detect(img image.Image, check Checkpoint) (Analysis, error)
}

func stop(check Checkpoint, phase string) error {
	if check == nil {
		return nil
	}
	if err := check(phase); err != nil {
		return errors.Join(ErrStopped, err)
	}
	return nil
}
