// Package links renders the bitmap shown by a link layer.
package links

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// MinSize is the smallest bitmap edge that still scans reliably.
const MinSize = 64

// ErrInvalidURL is returned for links that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid link")

// Options tune the code.
type Options struct {
	Foreground color.Color
	Background color.Color
	Border     bool
}

// Validate checks that raw is an absolute http or https URL.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// Render returns a size×size QR code for raw.
func Render(raw string, size int, opts *Options) (image.Image, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	q, err := qrcode.New(raw, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", raw, err)
	}
	if opts != nil {
		if opts.Foreground != nil {
			q.ForegroundColor = opts.Foreground
		}
		if opts.Background != nil {
			q.BackgroundColor = opts.Background
		}
		q.DisableBorder = !opts.Border
	}
	return q.Image(max(size, MinSize)), nil
}
