package engine

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
	"github.com/ivlev/coverstudio/internal/video"
)

type stills struct{}

func (stills) Load(_ context.Context, uri string, _ float64) (image.Image, error) {
	if strings.HasPrefix(uri, "broken") {
		return nil, errors.New("corrupt file")
	}
	return image.NewRGBA(image.Rect(0, 0, 200, 100)), nil
}

type fakeEncoder struct {
	mu       sync.Mutex
	segments map[string]video.Segment
	joined   []string
	failOn   string
}

func (f *fakeEncoder) EncodeSegment(ctx context.Context, seg video.Segment, out string) error {
	if f.failOn != "" && seg.Path == f.failOn {
		return errors.New("encoder crashed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.segments == nil {
		f.segments = make(map[string]video.Segment)
	}
	f.segments[filepath.Base(out)] = seg
	return os.WriteFile(out, []byte("seg"), 0o644)
}

func (f *fakeEncoder) Concatenate(_ context.Context, segments []string, d timeline.Descriptor, out string) error {
	f.joined = append([]string(nil), segments...)
	for _, s := range segments {
		if _, err := os.Stat(s); err != nil {
			return err
		}
	}
	return os.WriteFile(out, make([]byte, 4096), 0o644)
}

func testProject(t *testing.T, enc video.Encoder, items ...timeline.MediaItem) *Project {
	t.Helper()
	d, err := timeline.Build(items, timeline.TransitionFade.Ptr(), timeline.DefaultOptions())
	require.NoError(t, err)
	return &Project{
		Descriptor: d,
		Canvas:     timeline.Canvas{Width: 200, Height: 100, FPS: 30},
		Builder:    geometry.NewBuilder(0),
		Stills:     stills{},
		Encoder:    enc,
		Output:     filepath.Join(t.TempDir(), "out", "cover.mp4"),
		TempDir:    t.TempDir(),
		Workers:    2,
	}
}

func TestRun(t *testing.T) {
	enc := &fakeEncoder{}
	p := testProject(t, enc,
		timeline.MediaItem{ID: "a", Kind: timeline.KindImage, URI: "a.png", Width: 400, Height: 100},
		timeline.MediaItem{ID: "b", Kind: timeline.KindVideo, URI: "b.mp4", Width: 200, Height: 100, Duration: 8,
			Trim: &timeline.TrimRange{StartTime: 1, Duration: 3}},
	)

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, typeid.Validate(rep.ID, typeid.PrefixExport))
	assert.Equal(t, 2, rep.Segments)
	assert.Equal(t, 2, rep.Workers)
	assert.InDelta(t, 7.5, rep.Duration, 1e-9)
	assert.Equal(t, uint64(4096), rep.OutputSize)
	assert.Contains(t, rep.String(), "4.1 kB")

	require.Len(t, enc.joined, 2)
	assert.Equal(t, "s000.mp4", filepath.Base(enc.joined[0]))
	assert.Equal(t, "s001.mp4", filepath.Base(enc.joined[1]))

	still := enc.segments["s000.mp4"]
	require.NotNil(t, still.Image)
	assert.Equal(t, 5.0, still.Duration)
	// 4:1 still on a 2:1 canvas is centre-cropped
	assert.Contains(t, still.Filter, "crop=200:100:100:0")

	clip := enc.segments["s001.mp4"]
	assert.Nil(t, clip.Image)
	assert.Equal(t, "b.mp4", clip.Path)
	assert.Equal(t, 1.0, clip.Start)
	assert.Equal(t, 3.0, clip.Duration)
	assert.Equal(t, 30, clip.FPS)

	_, err = os.Stat(p.Output)
	assert.NoError(t, err)
}

func TestRunFailures(t *testing.T) {
	t.Run("encoder", func(t *testing.T) {
		enc := &fakeEncoder{failOn: "bad.mp4"}
		p := testProject(t, enc,
			timeline.MediaItem{ID: "a", Kind: timeline.KindImage, URI: "a.png", Width: 200, Height: 100},
			timeline.MediaItem{ID: "b", Kind: timeline.KindVideo, URI: "bad.mp4", Width: 200, Height: 100, Duration: 2},
		)
		_, err := p.Run(context.Background())
		assert.ErrorContains(t, err, "encoder crashed")
		assert.Nil(t, enc.joined)
	})

	t.Run("still", func(t *testing.T) {
		p := testProject(t, &fakeEncoder{},
			timeline.MediaItem{ID: "a", Kind: timeline.KindImage, URI: "broken.png", Width: 200, Height: 100},
		)
		_, err := p.Run(context.Background())
		assert.ErrorContains(t, err, "corrupt file")
	})

	t.Run("empty", func(t *testing.T) {
		p := testProject(t, &fakeEncoder{})
		_, err := p.Run(context.Background())
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		p := testProject(t, &fakeEncoder{},
			timeline.MediaItem{ID: "a", Kind: timeline.KindImage, URI: "a.png", Width: 200, Height: 100},
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bad descriptor", func(t *testing.T) {
		p := testProject(t, &fakeEncoder{},
			timeline.MediaItem{ID: "a", Kind: timeline.KindImage, URI: "a.png", Width: 200, Height: 100},
		)
		p.Descriptor.TotalDuration = 99
		_, err := p.Run(context.Background())
		assert.Error(t, err)
	})
}
