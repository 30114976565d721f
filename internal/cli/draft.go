package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/coverstudio/internal/store"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
)

func newDraftCmd(r *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save and restore versioned project drafts",
	}
	cmd.AddCommand(
		newDraftSaveCmd(r),
		newDraftRestoreCmd(r),
		newDraftListCmd(r),
		newDraftPruneCmd(r),
	)
	return cmd
}

// withStore opens the draft database for the length of fn.
func (r *Root) withStore(fn func(*store.Store) error) error {
	s, err := store.New(r.cfg.Store.Path)
	if err != nil {
		return err
	}
	return errors.Join(fn(s), s.Close())
}

func newDraftSaveCmd(r *Root) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save <project.yaml>",
		Short: "Store the project as the next draft version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// a draft must at least build
			sess, err := r.open(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = projectName(args[0], sess.project)
			}
			return r.withStore(func(s *store.Store) error {
				d, err := s.SaveDraft(cmd.Context(), name, sess.project)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%d %s\n", d.Name, d.Version, d.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "draft name (defaults to the project name)")
	return cmd
}

func newDraftRestoreCmd(r *Root) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "restore <name|draft-id>",
		Short: "Write a draft back to a project file",
		Long: `Restore the latest draft of a name, or one exact draft by id. Without
--output the project is printed as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withStore(func(s *store.Store) error {
				var (
					d   store.Draft
					err error
				)
				if typeid.Validate(args[0], typeid.PrefixDraft) == nil {
					d, err = s.Draft(cmd.Context(), args[0])
				} else {
					d, err = s.LatestDraft(cmd.Context(), args[0])
				}
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}

				if output == "" {
					data, err := yaml.Marshal(d.Project)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := timeline.WriteProject(d.Project, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%d -> %s\n", d.Name, d.Version, output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "project file to write")
	return cmd
}

func newDraftListCmd(r *Root) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List drafts, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return r.withStore(func(s *store.Store) error {
				drafts, err := s.ListDrafts(cmd.Context(), name, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tVERSION\tITEMS\tSAVED\tID")
				for _, d := range drafts {
					fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", d.Name, d.Version, len(d.Project.Items), humanize.Time(d.CreatedAt), d.ID)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows (0 for all)")
	return cmd
}

func newDraftPruneCmd(r *Root) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <name>",
		Short: "Delete all but the newest drafts of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return fmt.Errorf("keep must be at least 1, got %d", keep)
			}
			return r.withStore(func(s *store.Store) error {
				n, err := s.PruneDrafts(cmd.Context(), args[0], keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d drafts\n", args[0], n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 5, "versions to keep")
	return cmd
}
