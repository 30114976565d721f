package crop

import (
	"fmt"
	"math"
)

// LooksLikeFullFrame returns true if r covers the whole width×height frame
// to within a pixel. Used to skip no-op crop filters.
func LooksLikeFullFrame(r Rect, width, height float64) bool {
	return r.OriginX <= 1 && r.OriginY <= 1 &&
		r.Width >= width-1 && r.Height >= height-1
}

// FFmpegFilter returns an ffmpeg crop filter for r in source pixels.
// Sizes are rounded down to even numbers so yuv420p output stays valid.
// Returns an empty string for full-frame or empty crops.
func FFmpegFilter(r Rect, width, height float64) string {
	if r.Empty() || !r.IsFinite() || LooksLikeFullFrame(r, width, height) {
		return ""
	}
	w := evenFloor(r.Width)
	h := evenFloor(r.Height)
	if w == 0 || h == 0 {
		return ""
	}
	x := int(math.Max(0, math.Round(r.OriginX)))
	y := int(math.Max(0, math.Round(r.OriginY)))
	// ffmpeg crop syntax: crop=out_w:out_h:x:y
	return fmt.Sprintf("crop=%d:%d:%d:%d", w, h, x, y)
}

func evenFloor(v float64) int {
	n := int(math.Floor(v))
	return n - n%2
}
