package compositor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// Rasterizer turns draw instructions into pixels.
type Rasterizer interface {
	Draw(ctx context.Context, canvas timeline.Canvas, instructions []DrawInstruction) error
}

// Compositor answers per-frame queries for one descriptor. The per-item
// geometry is resolved once up front and the draw list is reused between
// frames, so Frame does not allocate. A Compositor is not safe for
// concurrent use; give each render loop its own.
type Compositor struct {
	desc     timeline.Descriptor
	canvas   timeline.Canvas
	prepared []DrawInstruction
	buf      []DrawInstruction
}

// New prepares a compositor. Each item's crop is validated against its
// tilted outline at the canvas aspect ratio.
func New(d timeline.Descriptor, canvas timeline.Canvas, b geometry.Builder) *Compositor {
	c := &Compositor{
		desc:     d,
		canvas:   canvas,
		prepared: make([]DrawInstruction, len(d.Items)),
		buf:      make([]DrawInstruction, 0, 2),
	}

	aspect := 0.0
	if canvas.Width > 0 && canvas.Height > 0 {
		aspect = float64(canvas.Width) / float64(canvas.Height)
	}
	for i, e := range d.Items {
		quad := e.Edition.Quadrilateral(b, float64(e.Resolution.Width), float64(e.Resolution.Height))
		w, h := quad.Size()
		c.prepared[i] = DrawInstruction{
			Index:      i,
			ID:         e.ID,
			Kind:       e.Kind,
			URI:        e.URI,
			Resolution: e.Resolution,
			Crop:       crop.Validate(e.Edition.Crop, aspect, w, h, quad),
			Quad:       quad,
			Filter:     e.Filter,
			Edition:    e.Edition,
			Alpha:      1,
		}
	}
	return c
}

// Descriptor returns the schedule this compositor renders.
func (c *Compositor) Descriptor() timeline.Descriptor { return c.desc }

// Canvas returns the output frame.
func (c *Compositor) Canvas() timeline.Canvas { return c.canvas }

// Instruction returns the prepared instruction for item i.
func (c *Compositor) Instruction(i int) DrawInstruction { return c.prepared[i] }

// Frame returns the draw list at t. The slice is reused by the next call.
func (c *Compositor) Frame(t float64) ([]DrawInstruction, Frame, bool) {
	f, ok := Select(t, c.desc)
	if !ok {
		c.buf = c.buf[:0]
		return c.buf, f, false
	}

	in := c.prepared[f.Incoming.Index]
	in.SourceTime = f.Incoming.SourceTime
	var out DrawInstruction
	if f.HasOutgoing {
		out = c.prepared[f.Outgoing.Index]
		out.SourceTime = f.Outgoing.SourceTime
	}
	c.buf = Blend(c.buf, f, in, out, c.canvas)
	return c.buf, f, true
}

// Render draws the frame at t through r. An empty timeline draws nothing.
func (c *Compositor) Render(ctx context.Context, t float64, r Rasterizer) error {
	instructions, _, ok := c.Frame(t)
	if !ok {
		return nil
	}
	if err := r.Draw(ctx, c.canvas, instructions); err != nil {
		return fmt.Errorf("draw frame at %.3fs: %w", t, err)
	}
	return nil
}

// Published is a versioned compositor handed from the editing side to a
// render loop.
type Published struct {
	Version    uint64
	Compositor *Compositor
}

// Handoff publishes whole compositors. The editor replaces the value when
// the descriptor changes; the render loop loads it once per frame.
type Handoff struct {
	v atomic.Pointer[Published]
}

// Publish replaces the current compositor and returns its version.
func (h *Handoff) Publish(c *Compositor) uint64 {
	for {
		old := h.v.Load()
		next := &Published{Version: 1, Compositor: c}
		if old != nil {
			next.Version = old.Version + 1
		}
		if h.v.CompareAndSwap(old, next) {
			return next.Version
		}
	}
}

// Load returns the latest published compositor, or a zero Published.
func (h *Handoff) Load() Published {
	if p := h.v.Load(); p != nil {
		return *p
	}
	return Published{}
}
