// Package source resolves user-picked references into assets the timeline
// can place, and loads their pixels for previews.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivlev/coverstudio/internal/geometry"
	"github.com/ivlev/coverstudio/internal/system"
	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
)

// ErrAssetLoad is wrapped by every resolver failure.
var ErrAssetLoad = errors.New("asset load failed")

// LoadError reports which reference could not be loaded.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Ref, e.Err)
}

// Unwrap exposes both ErrAssetLoad and the cause to errors.Is.
func (e *LoadError) Unwrap() []error {
	return []error{ErrAssetLoad, e.Err}
}

func loadError(ref string, err error) error {
	return &LoadError{Ref: ref, Err: err}
}

// Asset is a resolved reference.
type Asset struct {
	Ref         string
	Kind        timeline.Kind
	Width       int
	Height      int
	Duration    float64 // videos only
	Orientation geometry.Orientation
}

// Item turns the asset into a timeline item with a fresh id.
func (a Asset) Item() timeline.MediaItem {
	return timeline.MediaItem{
		ID:       typeid.NewItemID(),
		Kind:     a.Kind,
		URI:      a.Ref,
		Width:    a.Width,
		Height:   a.Height,
		Duration: a.Duration,
		Edition:  timeline.EditionParameters{Orientation: a.Orientation},
	}
}

// Resolver turns a reference into an Asset.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Asset, error)
}

// SplitPage splits "file.pdf#3" into the path and a zero-based page index.
// References without a page select the first page.
func SplitPage(ref string) (path string, page int, err error) {
	path, frag, found := strings.Cut(ref, "#")
	if !found {
		return ref, 0, nil
	}
	n, err := strconv.Atoi(frag)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("bad page %q", frag)
	}
	return path, n - 1, nil
}

// PageRef builds the reference for a zero-based page index.
func PageRef(path string, page int) string {
	return fmt.Sprintf("%s#%d", path, page+1)
}

// MultiResolver dispatches on the file extension.
type MultiResolver struct {
	Image Resolver
	PDF   Resolver
	Video Resolver
}

// NewMultiResolver wires the stock resolvers.
func NewMultiResolver(dpi int) *MultiResolver {
	return &MultiResolver{
		Image: ImageResolver{},
		PDF:   PDFResolver{DPI: dpi},
		Video: VideoResolver{},
	}
}

func (m *MultiResolver) Resolve(ctx context.Context, ref string) (Asset, error) {
	path, _, _ := strings.Cut(ref, "#")
	switch {
	case system.HasExtension(path, system.ImageExtensions) && m.Image != nil:
		return m.Image.Resolve(ctx, ref)
	case system.HasExtension(path, system.PDFExtensions) && m.PDF != nil:
		return m.PDF.Resolve(ctx, ref)
	case system.HasExtension(path, system.VideoExtensions) && m.Video != nil:
		return m.Video.Resolve(ctx, ref)
	}
	return Asset{}, loadError(ref, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
}

// ResolveAll resolves refs in order. PDF references without a page expand
// to every page.
func ResolveAll(ctx context.Context, r Resolver, refs []string) ([]Asset, error) {
	var out []Asset
	for _, ref := range refs {
		if system.HasExtension(ref, system.PDFExtensions) {
			pages, err := PDFPages(ref)
			if err != nil {
				return nil, loadError(ref, err)
			}
			for i := 0; i < pages; i++ {
				a, err := r.Resolve(ctx, PageRef(ref, i))
				if err != nil {
					return nil, err
				}
				out = append(out, a)
			}
			continue
		}
		a, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
