package analyzer

import (
	"image"
	"image/color"
	"math"
	"slices"

	"golang.org/x/image/draw"
)

// Phase names reported to the Checkpoint.
const (
	PhaseGray     = "gray"
	PhaseEdges    = "edges"
	PhaseDilate   = "dilate"
	PhaseContours = "contours"
	PhaseMask     = "mask"
)

// ContrastDetector finds regions with Sobel edges, dilation and connected
// components.
type ContrastDetector struct {
	MinBlockArea  int     // pixels
	EdgeThreshold float64 // gradient magnitude
	DilateKernel  int
	DilatePasses  int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30,
		DilateKernel:  5,
		DilatePasses:  2,
	}
}

// Detect runs the phases in order, polling check before each one.
func (d *ContrastDetector) Detect(img image.Image, check Checkpoint) (Analysis, error) {
	if err := stop(check, PhaseGray); err != nil {
		return Analysis{}, err
	}
	gray := toGray(img)

	if err := stop(check, PhaseEdges); err != nil {
		return Analysis{}, err
	}
	edges := sobel(gray, d.EdgeThreshold)

	if err := stop(check, PhaseDilate); err != nil {
		return Analysis{}, err
	}
	for range d.DilatePasses {
		edges = dilate(edges, d.DilateKernel)
	}

	if err := stop(check, PhaseContours); err != nil {
		return Analysis{}, err
	}
	var blocks []Block
	for _, r := range components(edges) {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: r, Type: classify(r, gray.Bounds()), Confidence: 0.7})
	}
	// reading order: top to bottom, then left to right
	slices.SortFunc(blocks, func(a, b Block) int {
		if a.Rect.Min.Y != b.Rect.Min.Y {
			return a.Rect.Min.Y - b.Rect.Min.Y
		}
		return a.Rect.Min.X - b.Rect.Min.X
	})

	if err := stop(check, PhaseMask); err != nil {
		return Analysis{}, err
	}
	return Analysis{Blocks: blocks, Mask: Mask(gray.Bounds(), blocks)}, nil
}

// Mask paints blocks white on a black image of the given bounds.
func Mask(bounds image.Rectangle, blocks []Block) *image.Gray {
	m := image.NewGray(bounds)
	white := image.NewUniform(color.Gray{Y: 255})
	for _, b := range blocks {
		draw.Draw(m, b.Rect.Intersect(bounds), white, image.Point{}, draw.Src)
	}
	return m
}

func classify(r, bounds image.Rectangle) string {
	wide := r.Dx() >= 3*r.Dy()
	switch {
	case wide && r.Min.Y < bounds.Min.Y+bounds.Dy()/5:
		return "header"
	case wide:
		return "text"
	}
	return "image"
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := float64(gray.GrayAt(x+kx, y+ky).Y)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			if math.Hypot(gx, gy) > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return edges
}

// dilate is a max filter with a square kernel; the border is left black.
func dilate(img *image.Gray, kernel int) *image.Gray {
	b := img.Bounds()
	half := kernel / 2
	out := image.NewGray(b)
	for y := b.Min.Y + half; y < b.Max.Y-half; y++ {
		for x := b.Min.X + half; x < b.Max.X-half; x++ {
			var m uint8
			for ky := -half; ky <= half && m < 255; ky++ {
				for kx := -half; kx <= half; kx++ {
					m = max(m, img.GrayAt(x+kx, y+ky).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: m})
		}
	}
	return out
}

// components returns the bounding boxes of 4-connected bright regions.
func components(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	w := b.Dx()
	seen := make([]bool, w*b.Dy())
	idx := func(x, y int) int { return (y-b.Min.Y)*w + (x - b.Min.X) }
	bright := func(x, y int) bool { return img.GrayAt(x, y).Y > 128 }

	var rects []image.Rectangle
	var stack []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if seen[idx(x, y)] || !bright(x, y) {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			seen[idx(x, y)] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
					if !n.In(b) || seen[idx(n.X, n.Y)] || !bright(n.X, n.Y) {
						continue
					}
					seen[idx(n.X, n.Y)] = true
					stack = append(stack, n)
				}
			}
			rects = append(rects, r)
		}
	}
	return rects
}
