package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, timeline.Canvas{Width: 1920, Height: 1080, FPS: 30}, cfg.CanvasSize())
	assert.Equal(t, timeline.DefaultImageDuration, cfg.Timeline.ImageDuration)
	assert.Equal(t, timeline.MaxItemDuration, cfg.Timeline.MaxItemDuration)
	assert.Equal(t, "fade", cfg.Timeline.Transition)
	assert.Equal(t, geometry.DefaultFieldOfView, cfg.Geometry.FieldOfView)
	assert.Equal(t, 23, cfg.Export.Quality)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("COVERSTUDIO_CANVAS_FPS", "60")
	t.Setenv("COVERSTUDIO_TIMELINE_TRANSITION", "Slide")
	t.Setenv("COVERSTUDIO_LOG_FORMAT", "json")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Canvas.FPS)
	assert.Equal(t, "slide", cfg.Timeline.Transition)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverstudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
canvas:
  width: 1080
  height: 1920
timeline:
  image_duration: 3
geometry:
  field_of_view: 60
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Canvas.Width)
	assert.Equal(t, 1920, cfg.Canvas.Height)
	assert.Equal(t, 30, cfg.Canvas.FPS, "unset keys keep their defaults")

	opts := cfg.TimelineOptions(nil)
	assert.Equal(t, 3.0, opts.DefaultImageDuration)
	assert.Equal(t, geometry.NewBuilder(60), cfg.Builder())
}

func TestLoadConfig_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"tiny canvas", "COVERSTUDIO_CANVAS_WIDTH", "2"},
		{"unknown transition", "COVERSTUDIO_TIMELINE_TRANSITION", "wipe"},
		{"max below image", "COVERSTUDIO_TIMELINE_MAX_ITEM_DURATION", "1"},
		{"fov too wide", "COVERSTUDIO_GEOMETRY_FIELD_OF_VIEW", "200"},
		{"bad level", "COVERSTUDIO_LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			cfg, err := LoadConfig("")
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
