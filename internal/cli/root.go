// Package cli wires the coverstudio commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/coverstudio/internal/config"
	"github.com/ivlev/coverstudio/internal/logging"
	"github.com/ivlev/coverstudio/internal/renderer"
	"github.com/ivlev/coverstudio/internal/source"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/video"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// Root carries what every command shares. Commands read cfg and log only
// after the persistent pre-run has loaded them.
type Root struct {
	v       *viper.Viper
	cfg     *config.Config
	log     *slog.Logger
	out     io.Writer
	errOut  io.Writer
	cfgPath string

	// swapped in tests
	resolver func(cfg *config.Config) source.Resolver
	loader   func(cfg *config.Config, log *slog.Logger) renderer.Loader
	encoder  func(ctx context.Context, cfg *config.Config, log *slog.Logger) video.Encoder
}

// NewRoot returns a Root printing to out and logging to errOut.
func NewRoot(out, errOut io.Writer) *Root {
	return &Root{
		v:      config.New(),
		log:    logging.Discard(),
		out:    out,
		errOut: errOut,
		resolver: func(cfg *config.Config) source.Resolver {
			return source.NewMultiResolver(cfg.Export.DPI)
		},
		loader: func(cfg *config.Config, log *slog.Logger) renderer.Loader {
			return source.NewFrameLoader(cfg.Export.DPI, log)
		},
		encoder: defaultEncoder,
	}
}

func defaultEncoder(ctx context.Context, cfg *config.Config, log *slog.Logger) video.Encoder {
	codec := cfg.Export.Encoder
	if codec == "" {
		codec = system.BestH264Encoder(ctx)
	}
	return &video.FFmpegEncoder{
		Codec:   codec,
		Quality: cfg.Export.Quality,
		TempDir: cfg.Export.TempDir,
		Logger:  log,
	}
}

// Command builds the command tree.
func (r *Root) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverstudio",
		Short: "Compose images, PDF pages and clips into a video",
		Long: `coverstudio lays media out on a timeline with transitions, validates
perspective crops against the tilted source, renders preview frames and
exports the composition with ffmpeg.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&r.cfgPath, "config", "c", "", "config file (yaml)")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	_ = r.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = r.v.BindPFlag("log.format", flags.Lookup("log-format"))

	cmd.AddCommand(
		newProjectCmd(r),
		newTimelineCmd(r),
		newCropCmd(r),
		newFrameCmd(r),
		newPreviewCmd(r),
		newExportCmd(r),
		newWatchCmd(r),
		newDeriveCmd(r),
		newDraftCmd(r),
		newQRCmd(r),
		newConfigCmd(r),
		newVersionCmd(),
	)
	return cmd
}

// Run executes args against a fresh command tree.
func (r *Root) Run(ctx context.Context, args []string) error {
	cmd := r.Command()
	cmd.SetArgs(args)
	cmd.SetOut(r.out)
	cmd.SetErr(r.errOut)
	return cmd.ExecuteContext(ctx)
}

func (r *Root) setup() error {
	cfg, err := config.Load(r.v, r.cfgPath)
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.log = logging.New(r.errOut, cfg.Log.Level, cfg.Log.Format)
	system.InitResourceLimits(r.log, system.DefaultOpenFiles)
	return nil
}

// session is an opened project with its schedule.
type session struct {
	path    string
	project *timeline.Project
	desc    timeline.Descriptor
	canvas  timeline.Canvas
}

// open reads a project and builds its timeline. Unset canvas fields and
// the default transition come from the config.
// open loads a project file. A directory opens its most recent project.
func (r *Root) open(path string) (*session, error) {
	if isDir(path) {
		latest, err := timeline.FindLatestProject(path)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	p, err := timeline.ReadProject(path)
	if err != nil {
		return nil, err
	}
	return r.newSession(path, p)
}

func (r *Root) newSession(path string, p *timeline.Project) (*session, error) {
	canvas := r.cfg.CanvasSize()
	if p.Canvas.Width > 0 && p.Canvas.Height > 0 {
		canvas.Width, canvas.Height = p.Canvas.Width, p.Canvas.Height
	}
	if p.Canvas.FPS > 0 {
		canvas.FPS = p.Canvas.FPS
	}

	transition := p.Transition
	if transition == nil {
		transition = timeline.TransitionID(r.cfg.Timeline.Transition).Ptr()
	}
	d, err := timeline.Build(p.Items, transition, r.cfg.TimelineOptions(r.log))
	if err != nil {
		return nil, fmt.Errorf("build timeline for %s: %w", path, err)
	}
	return &session{path: path, project: p, desc: d, canvas: canvas}, nil
}

// projectName is the name drafts are saved under.
func projectName(path string, p *timeline.Project) string {
	if p.Name != "" {
		return p.Name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newConfigCmd(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(r.v.AllSettings())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coverstudio %s\n", Version)
		},
	}
}
