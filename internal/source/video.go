package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"

	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// VideoResolver reads clip metadata with ffprobe.
type VideoResolver struct {
	Probe func(ctx context.Context, path string) (system.MediaInfo, error)
}

func (r VideoResolver) Resolve(ctx context.Context, ref string) (Asset, error) {
	probe := r.Probe
	if probe == nil {
		probe = system.ProbeMedia
	}
	info, err := probe(ctx, ref)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}
	if info.Width <= 0 || info.Height <= 0 || info.Duration <= 0 {
		return Asset{}, loadError(ref, fmt.Errorf("unusable stream %dx%d %.3fs", info.Width, info.Height, info.Duration))
	}

	// display matrices report counter-clockwise rotation
	o := geometry.Orientation(-info.Rotation).Normalize()
	return Asset{
		Ref:         ref,
		Kind:        timeline.KindVideo,
		Width:       info.Width,
		Height:      info.Height,
		Duration:    info.Duration,
		Orientation: o,
	}, nil
}

// extractFrame grabs the frame at seconds as a decoded image. Auto-rotation
// is disabled so the raster applies orientation itself.
func extractFrame(ctx context.Context, path string, at float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-noautorotate",
		"-ss", strconv.FormatFloat(max(at, 0), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame %.3fs: %w: %s", at, err, stderr.String())
	}
	return png.Decode(bytes.NewReader(out))
}
