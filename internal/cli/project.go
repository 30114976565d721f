package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/coverstudio/internal/editor"
	"github.com/ivlev/coverstudio/internal/effects"
	"github.com/ivlev/coverstudio/internal/source"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
)

var mediaExtensions = slices.Concat(system.ImageExtensions, system.PDFExtensions, system.VideoExtensions)

func newProjectCmd(r *Root) *cobra.Command {
	var (
		name       string
		transition string
		look       string
	)

	cmd := &cobra.Command{
		Use:   "new <project.yaml> <media>...",
		Short: "Create a project from images, PDFs and clips",
		Long: `Resolve each media reference and write a project file. A PDF expands
to one item per page; "file.pdf#3" picks a single page. A media directory
adds its images, PDFs and clips in name order. When the project path is a
directory a timestamped file is created inside it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := effects.Looks[strings.ToLower(look)]; look != "" && !ok {
				return fmt.Errorf("unknown look %q (known: %s)", look, strings.Join(effects.LookNames(), ", "))
			}
			refs, err := expandMedia(args[1:])
			if err != nil {
				return err
			}
			assets, err := source.ResolveAll(cmd.Context(), r.resolver(r.cfg), refs)
			if err != nil {
				return err
			}

			s := editor.New()
			for _, a := range assets {
				item := a.Item()
				item.Filter = look
				s = editor.Reduce(s, editor.AddItem{Item: item})
			}
			if transition != "" {
				id := timeline.TransitionID(transition)
				if _, err := timeline.LookupTransition(id); err != nil {
					return err
				}
				s = editor.Reduce(s, editor.SetTransition{ID: id.Ptr()})
			}

			p := &timeline.Project{
				Version:    timeline.ProjectVersion,
				Name:       name,
				Canvas:     r.cfg.CanvasSize(),
				Transition: s.Transition,
				Items:      s.Items,
			}
			path := args[0]
			if isDir(path) {
				path = timeline.GenerateProjectPath(path, time.Now())
			}
			if err := timeline.WriteProject(p, path); err != nil {
				return err
			}
			r.log.Info("project written", "path", path, "items", len(p.Items))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", path, len(p.Items))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the file name)")
	cmd.Flags().StringVarP(&transition, "transition", "t", "", "default transition (none|fade|slide); config default if empty")
	cmd.Flags().StringVar(&look, "look", "", "colour look applied to every item on export")
	return cmd
}

// expandMedia replaces each directory in refs with the media files it holds.
func expandMedia(refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		if !isDir(ref) {
			out = append(out, ref)
			continue
		}
		files, err := system.ListMedia(ref, mediaExtensions)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no media in %s", ref)
		}
		out = append(out, files...)
	}
	return out, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func newTimelineCmd(r *Root) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "timeline <project.yaml>",
		Short: "Print the composition schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := r.open(args[0])
			if err != nil {
				return err
			}
			if asYAML {
				data, err := yaml.Marshal(s.desc)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tKIND\tSTART\tLENGTH\tSOURCE\tNEXT\tURI")
			for i, e := range s.desc.Items {
				next := "-"
				if e.TransitionDuration > 0 {
					next = fmt.Sprintf("%s %.2fs", e.Transition, e.TransitionDuration)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
					i, e.ID, e.Kind, e.CompositionStartTime, e.SourceDuration, e.SourceStartTime, next, e.URI)
			}
			fmt.Fprintf(w, "total\t\t\t\t%.2f\t\t\t\n", s.desc.TotalDuration)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the descriptor as YAML")
	return cmd
}
