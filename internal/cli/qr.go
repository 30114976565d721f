package cli

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/coverstudio/internal/links"
)

func newQRCmd(r *Root) *cobra.Command {
	var (
		size   int
		border bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "qr <url>",
		Short: "Render the QR bitmap of a link layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := links.Render(args[0], size, &links.Options{Border: border})
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := png.Encode(f, img); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			r.log.Debug("link rendered", "url", args[0], "size", img.Bounds().Dx())
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&size, "size", "s", 256, "edge length in pixels")
	cmd.Flags().BoolVar(&border, "border", true, "keep the quiet zone")
	cmd.Flags().StringVarP(&output, "output", "o", "link.png", "output PNG")
	return cmd
}
