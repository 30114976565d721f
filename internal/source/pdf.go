package source

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/coverstudio/internal/timeline"
)

// DefaultDPI is the raster density for PDF pages.
const DefaultDPI = 150

// PDFResolver treats every PDF page as a still image.
type PDFResolver struct {
	DPI int
}

func (r PDFResolver) dpi() float64 {
	if r.DPI <= 0 {
		return DefaultDPI
	}
	return float64(r.DPI)
}

func (r PDFResolver) Resolve(ctx context.Context, ref string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, loadError(ref, err)
	}
	path, page, err := SplitPage(ref)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}
	defer doc.Close()

	if page >= doc.NumPage() {
		return Asset{}, loadError(ref, fmt.Errorf("page %d of %d", page+1, doc.NumPage()))
	}
	rect, err := doc.Bound(page)
	if err != nil {
		return Asset{}, loadError(ref, err)
	}

	// bounds are in points (1/72 inch)
	scale := r.dpi() / 72
	return Asset{
		Ref:    PageRef(path, page),
		Kind:   timeline.KindImage,
		Width:  int(math.Round(float64(rect.Dx()) * scale)),
		Height: int(math.Round(float64(rect.Dy()) * scale)),
	}, nil
}

// PDFPages returns the page count of the document at path.
func PDFPages(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// renderPage rasterizes one page. A document is opened per call since fitz
// documents must not be shared between goroutines.
func renderPage(path string, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}
