// Package video encodes timeline entries into segments with ffmpeg and joins
// them with the descriptor's transitions.
package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/coverstudio/internal/timeline"
)

// Segment is one entry ready to encode. Stills carry Image; clips carry
// Path plus the trim window.
type Segment struct {
	Image    image.Image
	Path     string
	Start    float64
	Duration float64
	Filter   string
	FPS      int
}

type Encoder interface {
	EncodeSegment(ctx context.Context, seg Segment, out string) error
	Concatenate(ctx context.Context, segments []string, d timeline.Descriptor, out string) error
}

// FFmpegEncoder shells out to ffmpeg.
type FFmpegEncoder struct {
	Codec   string // h264 encoder name
	Quality int
	TempDir string
	Logger  *slog.Logger
}

func (e *FFmpegEncoder) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *FFmpegEncoder) codec() string {
	if e.Codec == "" {
		return "libx264"
	}
	return e.Codec
}

func (e *FFmpegEncoder) EncodeSegment(ctx context.Context, seg Segment, out string) error {
	if seg.Duration <= 0 {
		return fmt.Errorf("segment %s: duration %.3f", out, seg.Duration)
	}
	if seg.Image == nil {
		args := e.segmentArgs(seg, out)
		cmd := exec.CommandContext(ctx, "ffmpeg", args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg segment %s: %w, output: %s", seg.Path, err, tail(output))
		}
		return nil
	}

	args := e.segmentArgs(seg, out)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	if err := writeRawRGBA(stdin, seg.Image); err != nil {
		stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write raw frame: %w", err)
	}
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg still segment: %w, output: %s", err, tail([]byte(stderr.String())))
	}
	return nil
}

// segmentArgs builds the ffmpeg command line for seg.
func (e *FFmpegEncoder) segmentArgs(seg Segment, out string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if seg.Image != nil {
		b := seg.Image.Bounds()
		args = append(args,
			"-f", "rawvideo",
			"-pixel_format", "rgba",
			"-video_size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"-framerate", "1",
			"-i", "-",
			"-vf", "loop=-1:1:0,"+seg.Filter,
		)
	} else {
		args = append(args,
			"-noautorotate",
			"-ss", seconds(seg.Start),
			"-i", seg.Path,
			"-vf", seg.Filter,
			"-an",
		)
	}
	args = append(args, "-t", seconds(seg.Duration))
	if seg.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(seg.FPS))
	}
	args = append(args, "-pix_fmt", "yuv420p", "-c:v", e.codec())
	args = append(args, qualityArgs(e.codec(), e.Quality)...)
	return append(args, out)
}

func qualityArgs(codec string, quality int) []string {
	switch codec {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	}
	return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// XFadeName maps a transition to ffmpeg's xfade name; "" means a hard cut.
func XFadeName(id timeline.TransitionID) string {
	switch id {
	case timeline.TransitionFade:
		return "fade"
	case timeline.TransitionSlide:
		return "slideleft"
	}
	return ""
}

// FilterGraph joins n inputs following d. Transitions become xfade with the
// offset at the incoming entry's composition start; cuts become concat.
// It returns the graph and the label of the final stream, or "" when no
// entry blends and the inputs can be joined without re-encoding.
func FilterGraph(d timeline.Descriptor) (graph, last string) {
	if len(d.Items) < 2 {
		return "", ""
	}
	blends := false
	for _, e := range d.Items[:len(d.Items)-1] {
		if XFadeName(e.Transition) != "" && e.TransitionDuration > 0 {
			blends = true
			break
		}
	}
	if !blends {
		return "", ""
	}

	var b strings.Builder
	last = "[0:v]"
	for i := 1; i < len(d.Items); i++ {
		prev := d.Items[i-1]
		next := fmt.Sprintf("[%d:v]", i)
		label := fmt.Sprintf("[v%d]", i)
		if name := XFadeName(prev.Transition); name != "" && prev.TransitionDuration > 0 {
			fmt.Fprintf(&b, "%s%sxfade=transition=%s:duration=%s:offset=%s%s;",
				last, next, name, seconds(prev.TransitionDuration), seconds(d.Items[i].CompositionStartTime), label)
		} else {
			fmt.Fprintf(&b, "%s%sconcat=n=2:v=1:a=0%s;", last, next, label)
		}
		last = label
	}
	return strings.TrimSuffix(b.String(), ";"), last
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, segments []string, d timeline.Descriptor, out string) error {
	if len(segments) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}
	if len(segments) != len(d.Items) {
		return fmt.Errorf("have %d segments for %d entries", len(segments), len(d.Items))
	}

	graph, last := FilterGraph(d)
	if graph == "" {
		return e.concatCopy(ctx, segments, out)
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, p := range segments {
		args = append(args, "-i", p)
	}
	args = append(args, "-filter_complex", graph, "-map", last,
		"-c:v", e.codec(), "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(e.codec(), e.Quality)...)
	args = append(args, out)

	e.logger().Debug("joining segments", "count", len(segments), "graph", graph)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg xfade: %w, output: %s", err, tail(output))
	}
	return nil
}

// concatCopy joins segments with the concat demuxer without re-encoding.
func (e *FFmpegEncoder) concatCopy(ctx context.Context, segments []string, out string) error {
	list, err := os.CreateTemp(e.TempDir, "inputs-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())

	for _, p := range segments {
		abs, err := filepath.Abs(p)
		if err != nil {
			list.Close()
			return err
		}
		fmt.Fprintf(list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := list.Close(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", list.Name(), "-c", "copy", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w, output: %s", err, tail(output))
	}
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// tail keeps the end of ffmpeg output, where the error is.
func tail(b []byte) string {
	const keep = 2048
	if len(b) > keep {
		b = b[len(b)-keep:]
	}
	return strings.TrimSpace(string(b))
}
