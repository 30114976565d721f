package analyzer

import "fmt"

// NewDetector returns the detector for variant. An empty variant selects
// the contrast detector.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "ocr", "ai":
		return nil, fmt.Errorf("%s detector not available", variant)
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
