// Package derive produces downscaled copies and masks of sources in the
// background. Each slot runs at most one job; a newer request for the slot
// supersedes the older one, which stops at its next phase boundary.
package derive

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/coverstudio/internal/analyzer"
	"github.com/ivlev/coverstudio/internal/renderer"
	"github.com/ivlev/coverstudio/internal/system"
)

// Status is how a job ended.
type Status string

const (
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
)

// Phase names, in order.
const (
	PhaseLoad      = "load"
	PhaseDownscale = "downscale"
	PhaseMask      = "mask"
	PhaseWrite     = "write"
	PhaseCommit    = "commit"
)

// DefaultMaxDimension bounds the longer edge of a derived image.
const DefaultMaxDimension = 1024

// memoryPerJob is the headroom reserved per concurrent job.
const memoryPerJob = 256 << 20

var errSuperseded = errors.New("superseded")

// Request describes what to derive from one source.
type Request struct {
	URI          string
	At           float64 // source time for video frames
	MaxDimension int     // longer edge; 0 uses DefaultMaxDimension
	Mask         bool
}

// Result is delivered once per request. Cancellation is a status, not an
// error; Err is set only for failures.
type Result struct {
	Slot     string
	Token    uuid.UUID
	Status   Status
	Path     string
	MaskPath string
	Width    int
	Height   int
	Blocks   []analyzer.Block
	Version  uint64
	Err      error

	seq uint64
}

// Snapshot is the latest successful result per slot. It is replaced whole on
// every publish and never mutated.
type Snapshot struct {
	Version uint64
	Results map[string]Result
}

type job struct {
	seq      uint64
	token    uuid.UUID
	ctx      context.Context
	canceled atomic.Bool
}

// Deriver runs derive jobs on a bounded pool.
type Deriver struct {
	loader   renderer.Loader
	detector analyzer.Detector
	dir      string
	logger   *slog.Logger
	hook     func(slot, phase string)

	g       errgroup.Group
	pending sync.WaitGroup

	mu      sync.Mutex
	running map[string]*job

	seq      atomic.Uint64
	version  atomic.Uint64
	snapshot atomic.Pointer[Snapshot]
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithWorkers caps concurrent jobs; 0 sizes from the host.
func WithWorkers(n int) Option {
	return func(d *Deriver) { d.g.SetLimit(system.ReadHostStats().Workers(n, memoryPerJob)) }
}

// WithDetector sets the mask detector.
func WithDetector(det analyzer.Detector) Option {
	return func(d *Deriver) { d.detector = det }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Deriver) { d.logger = l }
}

// WithPhaseHook is called as each job reaches a phase boundary, before the
// cancellation check.
func WithPhaseHook(h func(slot, phase string)) Option {
	return func(d *Deriver) { d.hook = h }
}

// New returns a Deriver writing into dir.
func New(loader renderer.Loader, dir string, opts ...Option) (*Deriver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create derive dir: %w", err)
	}
	d := &Deriver{
		loader:   loader,
		detector: analyzer.NewContrastDetector(),
		dir:      dir,
		logger:   slog.New(slog.DiscardHandler),
		running:  make(map[string]*job),
	}
	d.g.SetLimit(system.ReadHostStats().Workers(0, memoryPerJob))
	for _, opt := range opts {
		opt(d)
	}
	d.snapshot.Store(&Snapshot{Results: map[string]Result{}})
	return d, nil
}

// Start queues req for slot and cancels whatever the slot was doing. The
// channel yields exactly one Result and is then closed.
func (d *Deriver) Start(ctx context.Context, slot string, req Request) <-chan Result {
	j := &job{seq: d.seq.Add(1), token: uuid.New(), ctx: ctx}
	d.mu.Lock()
	if prev, ok := d.running[slot]; ok {
		prev.canceled.Store(true)
	}
	d.running[slot] = j
	d.mu.Unlock()

	out := make(chan Result, 1)
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		// blocks while the pool is full
		d.g.Go(func() error {
			res := d.run(slot, j, req)
			d.finish(slot, j, res)
			out <- res
			close(out)
			return nil
		})
	}()
	return out
}

// Cancel stops the job running for slot. It reports whether there was one.
func (d *Deriver) Cancel(slot string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.running[slot]
	if ok {
		j.canceled.Store(true)
		delete(d.running, slot)
	}
	return ok
}

// Snapshot returns the latest published results.
func (d *Deriver) Snapshot() Snapshot {
	return *d.snapshot.Load()
}

// Wait blocks until every started job has delivered its result.
func (d *Deriver) Wait() {
	d.pending.Wait()
	_ = d.g.Wait()
}

func (d *Deriver) check(slot string, j *job, phase string) error {
	if d.hook != nil {
		d.hook(slot, phase)
	}
	if j.canceled.Load() {
		return errSuperseded
	}
	return j.ctx.Err()
}

func (d *Deriver) run(slot string, j *job, req Request) Result {
	res := Result{Slot: slot, Token: j.token, seq: j.seq}
	start := time.Now()
	log := d.logger.With("slot", slot, "token", j.token)

	stopped := func(err error) Result {
		res.Status = StatusCanceled
		log.Debug("derive canceled", "reason", err)
		return res
	}
	failed := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		log.Warn("derive failed", "uri", req.URI, "error", err)
		return res
	}

	if err := d.check(slot, j, PhaseLoad); err != nil {
		return stopped(err)
	}
	src, err := d.loader.Load(j.ctx, req.URI, req.At)
	if err != nil {
		if j.ctx.Err() != nil {
			return stopped(err)
		}
		return failed(err)
	}

	if err := d.check(slot, j, PhaseDownscale); err != nil {
		return stopped(err)
	}
	img := Downscale(src, req.MaxDimension)
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()

	var mask *image.Gray
	if req.Mask && d.detector != nil {
		if err := d.check(slot, j, PhaseMask); err != nil {
			return stopped(err)
		}
		a, err := d.detector.Detect(img, func(string) error {
			if j.canceled.Load() {
				return errSuperseded
			}
			return j.ctx.Err()
		})
		if errors.Is(err, analyzer.ErrStopped) {
			return stopped(err)
		}
		if err != nil {
			return failed(err)
		}
		res.Blocks, mask = a.Blocks, a.Mask
	}

	if err := d.check(slot, j, PhaseWrite); err != nil {
		return stopped(err)
	}
	tmp, err := writeTemp(d.dir, img)
	if err != nil {
		return failed(err)
	}
	var tmpMask string
	if mask != nil {
		if tmpMask, err = writeTemp(d.dir, mask); err != nil {
			os.Remove(tmp)
			return failed(err)
		}
	}

	// last chance to back out; nothing visible has been written yet
	if err := d.check(slot, j, PhaseCommit); err != nil {
		os.Remove(tmp)
		if tmpMask != "" {
			os.Remove(tmpMask)
		}
		return stopped(err)
	}
	res.Path = filepath.Join(d.dir, j.token.String()+".png")
	if err := os.Rename(tmp, res.Path); err != nil {
		os.Remove(tmp)
		return failed(err)
	}
	if tmpMask != "" {
		res.MaskPath = filepath.Join(d.dir, j.token.String()+".mask.png")
		if err := os.Rename(tmpMask, res.MaskPath); err != nil {
			os.Remove(tmpMask)
			res.MaskPath = ""
			return failed(err)
		}
	}

	res.Status = StatusDone
	log.Debug("derive done", "path", res.Path, "size", fmt.Sprintf("%dx%d", res.Width, res.Height), "took", time.Since(start))
	return res
}

// finish releases the slot and publishes successful results. Failed and
// canceled results only reach the caller's channel, so the slot keeps its
// last good output.
func (d *Deriver) finish(slot string, j *job, res Result) {
	d.mu.Lock()
	if d.running[slot] == j {
		delete(d.running, slot)
	}
	d.mu.Unlock()

	if res.Status != StatusDone {
		return
	}
	res.Version = d.version.Add(1)
	for {
		old := d.snapshot.Load()
		prev, had := old.Results[slot]
		if had && prev.seq > res.seq {
			// a newer request already published
			removeFiles(res)
			return
		}
		next := &Snapshot{Version: old.Version + 1, Results: maps.Clone(old.Results)}
		next.Results[slot] = res
		if d.snapshot.CompareAndSwap(old, next) {
			if had {
				removeFiles(prev)
			}
			return
		}
	}
}

func removeFiles(r Result) {
	if r.Path != "" {
		os.Remove(r.Path)
	}
	if r.MaskPath != "" {
		os.Remove(r.MaskPath)
	}
}

// Downscale fits img within maxDim on its longer edge. Smaller images are
// copied unchanged into an RGBA.
func Downscale(img image.Image, maxDim int) *image.RGBA {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if long := max(w, h); long > maxDim {
		w = max(1, w*maxDim/long)
		h = max(1, h*maxDim/long)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writeTemp(dir string, img image.Image) (string, error) {
	f, err := os.CreateTemp(dir, ".derive-*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
