package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/engine"
	"github.com/ivlev/coverstudio/internal/timeline"
)

func newExportCmd(r *Root) *cobra.Command {
	var (
		output  string
		workers int
		stats   bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "export <project.yaml>",
		Short: "Encode the composition to a video file",
		Long: `Encode every item to its own segment on a bounded worker pool, then join
the segments with the timeline's transitions. Requires ffmpeg on PATH.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := r.open(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = outputPath(args[0], s.project, time.Now())
			}
			if workers == 0 {
				workers = r.cfg.Export.Workers
			}

			p := &engine.Project{
				Descriptor: s.desc,
				Canvas:     s.canvas,
				Builder:    r.cfg.Builder(),
				Stills:     r.loader(r.cfg, r.log),
				Encoder:    r.encoder(cmd.Context(), r.cfg, r.log),
				Output:     output,
				TempDir:    r.cfg.Export.TempDir,
				Workers:    workers,
				Debug:      debug,
				Logger:     r.log,
			}
			rep, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stats || r.cfg.Export.Stats {
				fmt.Fprint(out, rep)
			}
			fmt.Fprintf(out, "%s (%s, %.2fs)\n", output, humanize.Bytes(rep.OutputSize), rep.Duration)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output video (default output/<name>_<time>.mp4)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel encoders (0 uses the config, then the host)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print a performance report")
	cmd.Flags().BoolVar(&debug, "debug", false, "burn item numbers into the video")
	return cmd
}

// outputPath names an export after the project and the time it started.
func outputPath(path string, p *timeline.Project, now time.Time) string {
	name := strings.ReplaceAll(projectName(path, p), " ", "_")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", name, now.Format("2006-01-02_15-04-05")))
}
