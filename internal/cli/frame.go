package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/compositor"
	"github.com/ivlev/coverstudio/internal/renderer"
)

func newFrameCmd(r *Root) *cobra.Command {
	var (
		at     float64
		output string
	)

	cmd := &cobra.Command{
		Use:   "frame <project.yaml>",
		Short: "Render one composition frame to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := r.open(args[0])
			if err != nil {
				return err
			}
			if s.desc.Empty() {
				return fmt.Errorf("%s: empty timeline", args[0])
			}
			comp := compositor.New(s.desc, s.canvas, r.cfg.Builder())
			if err := r.renderFrame(cmd.Context(), comp, r.raster(), at, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", output)
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "composition time in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "frame.png", "output PNG")
	return cmd
}

func newPreviewCmd(r *Root) *cobra.Command {
	var (
		step   float64
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview <project.yaml>",
		Short: "Render a strip of PNG frames across the whole composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if step <= 0 {
				return fmt.Errorf("step must be positive, got %g", step)
			}
			s, err := r.open(args[0])
			if err != nil {
				return err
			}
			if s.desc.Empty() {
				return fmt.Errorf("%s: empty timeline", args[0])
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return err
			}

			comp := compositor.New(s.desc, s.canvas, r.cfg.Builder())
			raster := r.raster()
			n := 0
			for t := 0.0; t < s.desc.TotalDuration; t += step {
				path := filepath.Join(output, fmt.Sprintf("frame_%04d.png", n))
				if err := r.renderFrame(cmd.Context(), comp, raster, t, path); err != nil {
					return err
				}
				n++
			}
			r.log.Info("preview written", "dir", output, "frames", n)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames\n", output, n)
			return nil
		},
	}

	cmd.Flags().Float64Var(&step, "step", 0.5, "seconds between frames")
	cmd.Flags().StringVarP(&output, "output", "o", "preview", "output directory")
	return cmd
}

func (r *Root) raster() *renderer.Raster {
	return renderer.NewRaster(r.loader(r.cfg, r.log), renderer.WithRasterLogger(r.log))
}

func (r *Root) renderFrame(ctx context.Context, comp *compositor.Compositor, raster *renderer.Raster, t float64, path string) error {
	if err := comp.Render(ctx, t, raster); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := raster.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
