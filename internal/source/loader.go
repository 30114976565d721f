package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/ivlev/coverstudio/internal/system"
)

// maxVideoFrames bounds the cached video frames per loader.
const maxVideoFrames = 32

type frameKey struct {
	uri string
	ms  int64
}

// FrameLoader decodes source pixels for the preview rasterizer. Stills and
// PDF pages are decoded once; video frames are cached by millisecond.
type FrameLoader struct {
	dpi    float64
	logger *slog.Logger

	// swapped in tests
	decode  func(path string) (image.Image, error)
	page    func(path string, page int, dpi float64) (image.Image, error)
	extract func(ctx context.Context, path string, at float64) (image.Image, error)

	mu     sync.Mutex
	stills map[string]image.Image
	frames map[frameKey]image.Image
	order  []frameKey
}

// NewFrameLoader returns a loader rendering PDF pages at dpi.
func NewFrameLoader(dpi int, logger *slog.Logger) *FrameLoader {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FrameLoader{
		dpi:     float64(dpi),
		logger:  logger,
		decode:  decodeImage,
		page:    renderPage,
		extract: extractFrame,
		stills:  make(map[string]image.Image),
		frames:  make(map[frameKey]image.Image),
	}
}

// Load returns the picture of uri at source time at. Stills ignore at.
func (l *FrameLoader) Load(ctx context.Context, uri string, at float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, _, _ := strings.Cut(uri, "#")

	if system.HasExtension(path, system.VideoExtensions) {
		return l.videoFrame(ctx, uri, at)
	}

	l.mu.Lock()
	img, ok := l.stills[uri]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	var err error
	switch {
	case system.HasExtension(path, system.PDFExtensions):
		var page int
		if path, page, err = SplitPage(uri); err == nil {
			img, err = l.page(path, page, l.dpi)
		}
	case system.HasExtension(path, system.ImageExtensions):
		img, err = l.decode(path)
	default:
		err = fmt.Errorf("unsupported file type")
	}
	if err != nil {
		return nil, loadError(uri, err)
	}

	l.mu.Lock()
	l.stills[uri] = img
	l.mu.Unlock()
	l.logger.Debug("decoded still", "uri", uri, "size", img.Bounds().Size())
	return img, nil
}

func (l *FrameLoader) videoFrame(ctx context.Context, uri string, at float64) (image.Image, error) {
	key := frameKey{uri: uri, ms: int64(math.Round(at * 1000))}

	l.mu.Lock()
	img, ok := l.frames[key]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	img, err := l.extract(ctx, uri, at)
	if err != nil {
		return nil, loadError(uri, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.frames[key]; !ok {
		if len(l.order) >= maxVideoFrames {
			delete(l.frames, l.order[0])
			l.order = l.order[1:]
		}
		l.order = append(l.order, key)
	}
	l.frames[key] = img
	return img, nil
}

// Forget drops every cached picture of uri.
func (l *FrameLoader) Forget(uri string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stills, uri)
	kept := l.order[:0]
	for _, k := range l.order {
		if k.uri == uri {
			delete(l.frames, k)
			continue
		}
		kept = append(kept, k)
	}
	l.order = kept
}
