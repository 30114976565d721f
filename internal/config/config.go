// Package config loads settings from an optional YAML file and
// COVERSTUDIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/timeline"
)

// EnvPrefix prefixes every environment variable, e.g. COVERSTUDIO_CANVAS_FPS.
const EnvPrefix = "COVERSTUDIO"

type Config struct {
	Canvas   CanvasConfig   `mapstructure:"canvas"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Geometry GeometryConfig `mapstructure:"geometry"`
	Export   ExportConfig   `mapstructure:"export"`
	Derive   DeriveConfig   `mapstructure:"derive"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

type CanvasConfig struct {
	Width  int `mapstructure:"width" validate:"min=16,max=8192"`
	Height int `mapstructure:"height" validate:"min=16,max=8192"`
	FPS    int `mapstructure:"fps" validate:"min=1,max=120"`
}

type TimelineConfig struct {
	ImageDuration   float64 `mapstructure:"image_duration" validate:"gt=0"`
	MaxItemDuration float64 `mapstructure:"max_item_duration" validate:"gt=0,gtefield=ImageDuration"`
	Transition      string  `mapstructure:"transition" validate:"oneof=none fade slide"`
}

type GeometryConfig struct {
	FieldOfView float64 `mapstructure:"field_of_view" validate:"gt=0,lt=180"`
}

type ExportConfig struct {
	Encoder string `mapstructure:"encoder"` // empty picks the best available
	Quality int    `mapstructure:"quality" validate:"min=1,max=100"`
	Workers int    `mapstructure:"workers" validate:"min=0,max=64"` // 0 sizes from the host
	DPI     int    `mapstructure:"dpi" validate:"min=36,max=1200"`
	TempDir string `mapstructure:"temp_dir"`
	Stats   bool   `mapstructure:"stats"`
}

type DeriveConfig struct {
	CacheDir     string `mapstructure:"cache_dir" validate:"required"`
	MaxDimension int    `mapstructure:"max_dimension" validate:"min=64"`
	Workers      int    `mapstructure:"workers" validate:"min=0,max=64"`
	Detector     string `mapstructure:"detector" validate:"omitempty,oneof=contrast"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// TimelineOptions converts the timeline settings for the builder.
func (c *Config) TimelineOptions(logger *slog.Logger) timeline.Options {
	return timeline.Options{
		DefaultImageDuration: c.Timeline.ImageDuration,
		MaxItemDuration:      c.Timeline.MaxItemDuration,
		Logger:               logger,
	}
}

// Builder returns the quad builder for the configured field of view.
func (c *Config) Builder() geometry.Builder {
	return geometry.NewBuilder(c.Geometry.FieldOfView)
}

// CanvasSize returns the output frame.
func (c *Config) CanvasSize() timeline.Canvas {
	return timeline.Canvas{Width: c.Canvas.Width, Height: c.Canvas.Height, FPS: c.Canvas.FPS}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("canvas.width", 1920)
	v.SetDefault("canvas.height", 1080)
	v.SetDefault("canvas.fps", 30)

	v.SetDefault("timeline.image_duration", timeline.DefaultImageDuration)
	v.SetDefault("timeline.max_item_duration", timeline.MaxItemDuration)
	v.SetDefault("timeline.transition", string(timeline.TransitionFade))

	v.SetDefault("geometry.field_of_view", geometry.DefaultFieldOfView)

	v.SetDefault("export.encoder", "")
	v.SetDefault("export.quality", 23)
	v.SetDefault("export.workers", 0)
	v.SetDefault("export.dpi", 150)
	v.SetDefault("export.temp_dir", "")
	v.SetDefault("export.stats", false)

	v.SetDefault("derive.cache_dir", ".coverstudio/derived")
	v.SetDefault("derive.max_dimension", 1024)
	v.SetDefault("derive.workers", 0)
	v.SetDefault("derive.detector", "contrast")

	v.SetDefault("store.path", ".coverstudio/drafts.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment binding. The
// CLI binds its flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (when set) into v, then unmarshals and validates.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Timeline.Transition = strings.ToLower(cfg.Timeline.Transition)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("validate config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig is Load on a fresh instance.
func LoadConfig(path string) (*Config, error) {
	return Load(New(), path)
}
