package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/analyzer"
	"github.com/ivlev/coverstudio/internal/derive"
)

func newDeriveCmd(r *Root) *cobra.Command {
	var (
		mask   bool
		maxDim int
	)

	cmd := &cobra.Command{
		Use:   "derive <project.yaml>",
		Short: "Write downscaled copies and masks of every item",
		Long: `Derive one downscaled PNG per item into the derive cache directory, and
with --mask a binary mask of the detected regions next to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := r.open(args[0])
			if err != nil {
				return err
			}
			det, err := analyzer.NewDetector(r.cfg.Derive.Detector)
			if err != nil {
				return err
			}
			d, err := derive.New(r.loader(r.cfg, r.log), r.cfg.Derive.CacheDir,
				derive.WithWorkers(r.cfg.Derive.Workers),
				derive.WithDetector(det),
				derive.WithLogger(r.log))
			if err != nil {
				return err
			}
			if maxDim == 0 {
				maxDim = r.cfg.Derive.MaxDimension
			}

			pending := make([]<-chan derive.Result, len(s.desc.Items))
			for i, e := range s.desc.Items {
				pending[i] = d.Start(cmd.Context(), e.ID, derive.Request{
					URI:          e.URI,
					At:           e.SourceStartTime,
					MaxDimension: maxDim,
					Mask:         mask,
				})
			}

			var errs []error
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tBLOCKS\tPATH")
			for _, ch := range pending {
				res := <-ch
				if res.Err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", res.Slot, res.Err))
				}
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%s\n", res.Slot, res.Status, res.Width, res.Height, len(res.Blocks), res.Path)
			}
			d.Wait()
			if err := w.Flush(); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&mask, "mask", false, "also write region masks")
	cmd.Flags().IntVar(&maxDim, "max", 0, "longest edge in pixels (config default when 0)")
	return cmd
}
