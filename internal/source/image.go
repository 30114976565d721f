package source

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/coverstudio/internal/timeline"
)

// ImageResolver reads still image headers.
type ImageResolver struct{}

func (ImageResolver) Resolve(ctx context.Context, ref string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, loadError(ref, err)
	}
	f, err := os.Open(ref)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}
	return Asset{Ref: ref, Kind: timeline.KindImage, Width: cfg.Width, Height: cfg.Height}, nil
}

// decodeImage decodes a whole still.
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
