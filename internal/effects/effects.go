// Package effects builds the per-item ffmpeg filter chains used on export.
package effects

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// SegmentParams describes one entry to encode.
type SegmentParams struct {
	Index  int
	Entry  timeline.Entry
	Crop   crop.Rect              // validated, in quad space
	Quad   geometry.Quadrilateral // outline the crop was validated against
	Canvas timeline.Canvas
	Debug  bool
}

type Effect interface {
	GenerateFilter(p SegmentParams) string
}

// Looks are named filters selectable per item.
var Looks = map[string]string{
	"mono":  "hue=s=0",
	"sepia": "colorchannelmixer=.393:.769:.189:0:.349:.686:.168:0:.272:.534:.131",
	"vivid": "eq=saturation=1.4:contrast=1.1",
	"fade":  "eq=contrast=0.85:brightness=0.05:saturation=0.8",
	"cool":  "colorbalance=bs=0.15:ms=0.05",
	"warm":  "colorbalance=rs=0.15:ms=-0.05",
}

// LookNames lists the known looks in order.
func LookNames() []string {
	return slices.Sorted(maps.Keys(Looks))
}

// eqKeys are the edition values forwarded to ffmpeg's eq filter.
var eqKeys = []string{"brightness", "contrast", "saturation", "gamma"}

// EditEffect applies orientation, crop, colour edits and the look, then fits
// the result to the canvas.
type EditEffect struct{}

func (EditEffect) GenerateFilter(p SegmentParams) string {
	var chain []string
	e := p.Entry

	if f := Orientation(e.Edition.Orientation); f != "" {
		chain = append(chain, f)
	}
	if f := Crop(p.Crop, p.Quad, e.Resolution, e.Edition.Orientation); f != "" {
		chain = append(chain, f)
	}
	if f := Equalizer(e.Edition.Values); f != "" {
		chain = append(chain, f)
	}
	if f, ok := Looks[strings.ToLower(e.Filter)]; ok {
		chain = append(chain, f)
	}

	w, h := p.Canvas.Width, p.Canvas.Height
	chain = append(chain,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
		"setsar=1",
	)
	if p.Canvas.FPS > 0 {
		chain = append(chain, fmt.Sprintf("fps=%d", p.Canvas.FPS))
	}
	if p.Debug {
		chain = append(chain, fmt.Sprintf("drawtext=text='%d %s':x=10:y=10:fontsize=24:fontcolor=yellow:box=1:boxcolor=black@0.5",
			p.Index+1, strings.ReplaceAll(e.ID, ":", "_")))
	}
	return strings.Join(chain, ",")
}

// Orientation returns the filter turning the source clockwise by o.
func Orientation(o geometry.Orientation) string {
	switch o.Normalize() {
	case geometry.OrientationRight:
		return "transpose=1"
	case geometry.OrientationDown:
		return "hflip,vflip"
	case geometry.OrientationLeft:
		return "transpose=2"
	}
	return ""
}

// Crop maps r from quad space onto the oriented source pixels and returns
// the crop filter, or "" when nothing is cut.
func Crop(r crop.Rect, q geometry.Quadrilateral, res timeline.Resolution, o geometry.Orientation) string {
	ow, oh := float64(res.Width), float64(res.Height)
	if o.SwapsAxes() {
		ow, oh = oh, ow
	}
	qw, qh := q.Size()
	if qw > 0 && qh > 0 {
		kx, ky := ow/qw, oh/qh
		r = crop.Rect{OriginX: r.OriginX * kx, OriginY: r.OriginY * ky, Width: r.Width * kx, Height: r.Height * ky}
	}
	return crop.FFmpegFilter(r, ow, oh)
}

// Equalizer returns an eq filter for the colour values present in values.
func Equalizer(values map[string]float64) string {
	var parts []string
	for _, k := range eqKeys {
		if v, ok := values[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.3f", k, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "eq=" + strings.Join(parts, ":")
}
