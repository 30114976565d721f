// Package engine exports a composition descriptor to a video file.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/coverstudio/internal/compositor"
	"github.com/ivlev/coverstudio/internal/effects"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/renderer"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
	"github.com/ivlev/coverstudio/internal/video"
)

// memoryPerWorker is the headroom one encoder needs: a decoded still plus
// an ffmpeg process.
const memoryPerWorker = 512 << 20

// Project is one export job.
type Project struct {
	Descriptor timeline.Descriptor
	Canvas     timeline.Canvas
	Builder    geometry.Builder
	Stills     renderer.Loader // decodes images and PDF pages
	Encoder    video.Encoder
	Effect     effects.Effect
	Output     string
	TempDir    string // parent of the scratch directory
	Workers    int    // 0 sizes from the host
	Debug      bool
	Logger     *slog.Logger
}

// Report summarises a finished export.
type Report struct {
	ID         string
	Segments   int
	Duration   float64 // composition seconds
	Workers    int
	Encode     time.Duration
	Concat     time.Duration
	Total      time.Duration
	OutputSize uint64
	Host       system.HostStats
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- export %s ---\n", r.ID)
	fmt.Fprintf(&b, "segments:  %d (%.2fs of video, %d workers)\n", r.Segments, r.Duration, r.Workers)
	fmt.Fprintf(&b, "encode:    %s\n", r.Encode.Round(time.Millisecond))
	fmt.Fprintf(&b, "concat:    %s\n", r.Concat.Round(time.Millisecond))
	fmt.Fprintf(&b, "total:     %s\n", r.Total.Round(time.Millisecond))
	fmt.Fprintf(&b, "output:    %s\n", humanize.Bytes(r.OutputSize))
	fmt.Fprintf(&b, "host:      %s\n", r.Host)
	return b.String()
}

func (p *Project) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

func (p *Project) effect() effects.Effect {
	if p.Effect == nil {
		return effects.EditEffect{}
	}
	return p.Effect
}

// Run encodes every entry on a bounded pool, then joins the segments. The
// first failure cancels the remaining work.
func (p *Project) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	host := system.ReadHostStats()
	rep := Report{
		ID:       typeid.NewExportID(),
		Segments: len(p.Descriptor.Items),
		Duration: p.Descriptor.TotalDuration,
		Workers:  host.Workers(p.Workers, memoryPerWorker),
		Host:     host,
	}
	log := p.logger().With("export", rep.ID)

	if err := p.Descriptor.Validate(); err != nil {
		return rep, err
	}
	if p.Descriptor.Empty() {
		return rep, fmt.Errorf("nothing to export")
	}
	if p.Canvas.Width <= 0 || p.Canvas.Height <= 0 {
		return rep, fmt.Errorf("invalid canvas %dx%d", p.Canvas.Width, p.Canvas.Height)
	}

	scratch, err := os.MkdirTemp(p.TempDir, "coverstudio_")
	if err != nil {
		return rep, err
	}
	defer os.RemoveAll(scratch)

	log.Info("export started", "segments", rep.Segments, "duration", rep.Duration, "workers", rep.Workers, "output", p.Output)

	// validated crops, identical to what the preview shows
	comp := compositor.New(p.Descriptor, p.Canvas, p.Builder)

	segments := make([]string, len(p.Descriptor.Items))
	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rep.Workers)

	encodeStart := time.Now()
	for i, e := range p.Descriptor.Items {
		g.Go(func() error {
			out := filepath.Join(scratch, fmt.Sprintf("s%03d.mp4", i))
			seg, err := p.segment(gctx, i, e, comp.Instruction(i))
			if err != nil {
				return fmt.Errorf("segment %d (%s): %w", i, e.ID, err)
			}
			if err := p.Encoder.EncodeSegment(gctx, seg, out); err != nil {
				return fmt.Errorf("segment %d (%s): %w", i, e.ID, err)
			}
			segments[i] = out
			log.Info("segment ready", "index", i, "done", done.Add(1), "of", rep.Segments)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("export failed", "error", err)
		return rep, err
	}
	rep.Encode = time.Since(encodeStart)

	concatStart := time.Now()
	if err := os.MkdirAll(filepath.Dir(p.Output), 0o755); err != nil {
		return rep, err
	}
	if err := p.Encoder.Concatenate(ctx, segments, p.Descriptor, p.Output); err != nil {
		return rep, fmt.Errorf("join segments: %w", err)
	}
	rep.Concat = time.Since(concatStart)

	if fi, err := os.Stat(p.Output); err == nil {
		rep.OutputSize = uint64(fi.Size())
	}
	rep.Total = time.Since(start)
	log.Info("export completed", "took", rep.Total, "size", humanize.Bytes(rep.OutputSize))
	return rep, nil
}

// segment prepares the encoder input for entry i.
func (p *Project) segment(ctx context.Context, i int, e timeline.Entry, ins compositor.DrawInstruction) (video.Segment, error) {
	filter := p.effect().GenerateFilter(effects.SegmentParams{
		Index:  i,
		Entry:  e,
		Crop:   ins.Crop,
		Quad:   ins.Quad,
		Canvas: p.Canvas,
		Debug:  p.Debug,
	})
	seg := video.Segment{
		Start:    e.SourceStartTime,
		Duration: e.SourceDuration,
		Filter:   filter,
		FPS:      p.Canvas.FPS,
	}
	if e.Kind == timeline.KindVideo {
		seg.Path = e.URI
		return seg, nil
	}

	if p.Stills == nil {
		return seg, fmt.Errorf("no loader for stills")
	}
	img, err := p.Stills.Load(ctx, e.URI, 0)
	if err != nil {
		return seg, err
	}
	seg.Image = img
	seg.Start = 0
	return seg, nil
}
