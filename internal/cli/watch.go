package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/compositor"
)

func newWatchCmd(r *Root) *cobra.Command {
	var (
		at    float64
		frame string
	)

	cmd := &cobra.Command{
		Use:   "watch <project.yaml>",
		Short: "Rebuild the timeline whenever the project file changes",
		Long: `Watch a project file and publish a fresh compositor on every change. With
--frame, the frame at --at is re-rendered after each rebuild. Stops on
interrupt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var h compositor.Handoff
			raster := r.raster()
			out := cmd.OutOrStdout()
			return r.watch(cmd.Context(), args[0], &h, func(version uint64, c *compositor.Compositor) {
				fmt.Fprintf(out, "v%d: %d items, %.2fs\n", version, len(c.Descriptor().Items), c.Descriptor().TotalDuration)
				if frame == "" {
					return
				}
				if err := r.renderFrame(cmd.Context(), c, raster, at, frame); err != nil {
					r.log.Warn("preview failed", "version", version, "error", err)
				}
			})
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "composition time of the preview frame")
	cmd.Flags().StringVar(&frame, "frame", "", "re-render this PNG after each rebuild")
	return cmd
}

// watch publishes a compositor for path now and after every write to it,
// until ctx is done. A project that fails to load keeps the last good one.
func (r *Root) watch(ctx context.Context, path string, h *compositor.Handoff, published func(uint64, *compositor.Compositor)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watch the directory; editors often save by replacing the file
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload := func() {
		s, err := r.open(path)
		if err != nil {
			r.log.Warn("reload failed", "path", path, "error", err)
			return
		}
		c := compositor.New(s.desc, s.canvas, r.cfg.Builder())
		v := h.Publish(c)
		r.log.Info("timeline published", "version", v, "items", len(s.desc.Items), "duration", s.desc.TotalDuration)
		if published != nil {
			published(v, c)
		}
	}
	reload()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watch error", "error", err)
		}
	}
}
