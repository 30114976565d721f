package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/analyzer"
	"github.com/ivlev/coverstudio/internal/compositor"
	"github.com/ivlev/coverstudio/internal/crop"
	"github.com/ivlev/coverstudio/internal/director"
	"github.com/ivlev/coverstudio/internal/editor"
	"github.com/ivlev/coverstudio/internal/gesture"
	"github.com/ivlev/coverstudio/internal/source"
	"github.com/ivlev/coverstudio/internal/timeline"
)

func newCropCmd(r *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Inspect and edit item crops",
		Long: `Crops are kept in the item's quad space: the outline of the source after
orientation and perspective tilt. Every crop is validated against that
outline at the canvas aspect ratio before it is shown or stored.`,
	}
	cmd.AddCommand(
		newCropShowCmd(r),
		newCropSetCmd(r),
		newCropAdjustCmd(r),
		newCropSuggestCmd(r),
		newCropTourCmd(r),
	)
	return cmd
}

func newCropShowCmd(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project.yaml> <index>",
		Short: "Print the validated crop of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, i, err := r.openItem(args[0], args[1])
			if err != nil {
				return err
			}
			ins := compositor.New(s.desc, s.canvas, r.cfg.Builder()).Instruction(i)
			qw, qh := ins.Quad.Size()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "item:  %s\n", ins.ID)
			fmt.Fprintf(out, "quad:  %.1fx%.1f %s\n", qw, qh, ins.Quad)
			if req := s.project.Items[i].Edition.Crop; req != nil {
				fmt.Fprintf(out, "set:   %s\n", formatRect(*req))
			}
			fmt.Fprintf(out, "crop:  %s\n", formatRect(ins.Crop))
			return nil
		},
	}
}

func newCropSetCmd(r *Root) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "set <project.yaml> <index> [x y width height]",
		Short: "Store a crop for an item",
		Long: `Store a crop window in quad space. The window is validated first, so the
stored value is the one that will be rendered. --clear drops the crop and
the item falls back to the centred window.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if reset {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(6)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, i, err := r.openItem(args[0], args[1])
			if err != nil {
				return err
			}
			if reset {
				return r.storeCrop(cmd.OutOrStdout(), s, i, nil)
			}

			var v [4]float64
			for k, a := range args[2:] {
				if v[k], err = strconv.ParseFloat(a, 64); err != nil {
					return fmt.Errorf("crop value %q: %w", a, err)
				}
			}
			req := crop.Rect{OriginX: v[0], OriginY: v[1], Width: v[2], Height: v[3]}
			got := r.validate(s, i, &req)
			return r.storeCrop(cmd.OutOrStdout(), s, i, &got)
		},
	}

	cmd.Flags().BoolVar(&reset, "clear", false, "remove the crop")
	return cmd
}

func newCropAdjustCmd(r *Root) *cobra.Command {
	var (
		zoom   float64
		dx, dy float64
	)

	cmd := &cobra.Command{
		Use:   "adjust <project.yaml> <index>",
		Short: "Zoom and pan the current crop of an item",
		Long: `Replay a pinch (--zoom) and then a drag (--dx, --dy) on the item's current
crop window, the way an editor gesture would. Each gesture ends with the
same correction the editor applies: a window pushed past the outline is
pulled back inside before it is stored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !(zoom > 0) {
				return fmt.Errorf("zoom must be positive, got %v", zoom)
			}
			s, i, err := r.openItem(args[0], args[1])
			if err != nil {
				return err
			}
			got := r.adjust(s, i, zoom, dx, dy)
			return r.storeCrop(cmd.OutOrStdout(), s, i, &got)
		},
	}

	cmd.Flags().Float64Var(&zoom, "zoom", 1, "pinch scale; above 1 zooms in")
	cmd.Flags().Float64Var(&dx, "dx", 0, "move the window right by dx quad pixels")
	cmd.Flags().Float64Var(&dy, "dy", 0, "move the window down by dy quad pixels")
	return cmd
}

func newCropSuggestCmd(r *Root) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "suggest <project.yaml> <index>",
		Short: "Suggest a crop around the salient regions of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, i, err := r.openItem(args[0], args[1])
			if err != nil {
				return err
			}
			frame, blocks, err := r.analyze(cmd.Context(), s, i)
			if err != nil {
				return err
			}
			got := director.NewDirector().SuggestCrop(blocks, frame)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blocks: %d\n", len(blocks))
			if !apply {
				fmt.Fprintf(out, "crop:   %s\n", formatRect(got))
				return nil
			}
			return r.storeCrop(out, s, i, &got)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "store the suggestion in the project")
	return cmd
}

func newCropTourCmd(r *Root) *cobra.Command {
	var (
		duration float64
		step     float64
	)

	cmd := &cobra.Command{
		Use:   "tour <project.yaml> <index>",
		Short: "Plan a camera tour across the salient regions of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, i, err := r.openItem(args[0], args[1])
			if err != nil {
				return err
			}
			frame, blocks, err := r.analyze(cmd.Context(), s, i)
			if err != nil {
				return err
			}
			if duration <= 0 {
				duration = s.desc.Items[i].SourceDuration
			}

			d := director.NewDirector()
			stops := d.Tour(blocks, frame, duration)
			out := cmd.OutOrStdout()
			for _, st := range stops {
				fmt.Fprintf(out, "%6.2fs  %-10s %s\n", st.Time, st.Focus, formatRect(st.Crop))
			}
			if step <= 0 {
				return nil
			}
			tracks := d.Keyframes(stops)
			end := stops[len(stops)-1].Time
			for t := 0.0; t <= end+1e-9; t += step {
				fmt.Fprintf(out, "@%5.2fs  %s\n", t, formatRect(director.CropAt(tracks, t)))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&duration, "duration", 0, "tour length in seconds (defaults to the item's length)")
	cmd.Flags().Float64Var(&step, "step", 0, "also print the eased crop every step seconds")
	return cmd
}

// openItem opens a project and parses an item index.
func (r *Root) openItem(path, index string) (*session, int, error) {
	s, err := r.open(path)
	if err != nil {
		return nil, 0, err
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(s.project.Items) {
		return nil, 0, fmt.Errorf("item %q out of range [0, %d)", index, len(s.project.Items))
	}
	return s, i, nil
}

// validate runs req through the crop validator for item i.
func (r *Root) validate(s *session, i int, req *crop.Rect) crop.Rect {
	item := s.project.Items[i]
	quad := item.Edition.Quadrilateral(r.cfg.Builder(), float64(item.Width), float64(item.Height))
	w, h := quad.Size()
	return crop.Validate(req, aspect(s.canvas), w, h, quad)
}

// adjust runs a pinch and a pan gesture over the validated crop of item i
// and returns the committed window.
func (r *Root) adjust(s *session, i int, zoom, dx, dy float64) crop.Rect {
	item := s.project.Items[i]
	quad := item.Edition.Quadrilateral(r.cfg.Builder(), float64(item.Width), float64(item.Height))
	w, h := quad.Size()
	media := gesture.Size{Width: w, Height: h}

	committed := r.validate(s, i, item.Edition.Crop)
	gs := gesture.NewSession(gesture.FromRect(committed),
		gesture.WithValidator(func(b gesture.Bounds) gesture.Bounds {
			req := b.Rect()
			return gesture.FromRect(crop.Validate(&req, aspect(s.canvas), w, h, quad))
		}),
		gesture.WithCommit(func(b gesture.Bounds) { committed = b.Rect() }),
		gesture.WithSettleDuration(0),
		gesture.WithLogger(r.log),
	)

	now := time.Now()
	if zoom != 1 {
		gs.Begin(now)
		gs.Update(func(o gesture.Offset) gesture.Bounds { return gesture.PinchCrop(o, zoom) })
		gs.End(now)
	}
	if dx != 0 || dy != 0 {
		gs.Begin(now)
		// the finger moves opposite to the window
		gs.Update(func(o gesture.Offset) gesture.Bounds { return gesture.Pan(o, -dx, -dy, 1, media) })
		gs.End(now)
	}
	return committed
}

// storeCrop commits a crop through the editor and rewrites the project.
func (r *Root) storeCrop(out io.Writer, s *session, i int, rect *crop.Rect) error {
	st := editor.New()
	for _, item := range s.project.Items {
		st = editor.Reduce(st, editor.AddItem{Item: item})
	}
	st = editor.Reduce(st, editor.SelectItem{Index: i})
	st = editor.Reduce(st, editor.EnterMode{Mode: editor.ModeCrop})
	st = editor.Reduce(st, editor.SetCrop{Rect: rect})
	st = editor.Reduce(st, editor.ApplyEdits{})

	s.project.Items = st.Items
	if err := timeline.WriteProject(s.project, s.path); err != nil {
		return err
	}
	if rect == nil {
		fmt.Fprintf(out, "crop cleared on item %d\n", i)
		return nil
	}
	r.log.Info("crop stored", "item", s.project.Items[i].ID, "crop", formatRect(*rect))
	fmt.Fprintf(out, "crop:   %s\n", formatRect(*rect))
	return nil
}

// analyze detects blocks in the upright first frame of item i.
func (r *Root) analyze(ctx context.Context, s *session, i int) (director.Frame, []analyzer.Block, error) {
	item := s.project.Items[i]
	det, err := analyzer.NewDetector(r.cfg.Derive.Detector)
	if err != nil {
		return director.Frame{}, nil, err
	}
	img, err := r.loader(r.cfg, r.log).Load(ctx, item.URI, s.desc.Items[i].SourceStartTime)
	if err != nil {
		return director.Frame{}, nil, err
	}
	upright := source.Orient(img, item.Edition.Orientation)
	a, err := det.Detect(upright, func(string) error { return ctx.Err() })
	if err != nil {
		return director.Frame{}, nil, err
	}

	frame := director.Frame{
		ImageWidth:  upright.Bounds().Dx(),
		ImageHeight: upright.Bounds().Dy(),
		Quad:        item.Edition.Quadrilateral(r.cfg.Builder(), float64(item.Width), float64(item.Height)),
		AspectRatio: aspect(s.canvas),
	}
	return frame, a.Blocks, nil
}

func aspect(c timeline.Canvas) float64 {
	if c.Width <= 0 || c.Height <= 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

func formatRect(r crop.Rect) string {
	return fmt.Sprintf("x=%.1f y=%.1f w=%.1f h=%.1f", r.OriginX, r.OriginY, r.Width, r.Height)
}
