package geometry

import "math"

// verticalEpsilon is the horizontal extent below which an edge is treated as vertical.
const verticalEpsilon = 1e-9

// Line is an edge expressed as y = Slope*x + Intercept, or as x = X when Vertical.
type Line struct {
	Slope     float64
	Intercept float64
	Vertical  bool
	X         float64
}

// LineThrough builds the line passing through a and b.
func LineThrough(a, b Point) Line {
	dx := b.X - a.X
	if math.Abs(dx) < verticalEpsilon {
		return Line{Vertical: true, X: (a.X + b.X) / 2}
	}
	slope := (b.Y - a.Y) / dx
	return Line{Slope: slope, Intercept: a.Y - slope*a.X}
}

// YAt evaluates the line as y = f(x). A vertical line has no single y and yields NaN.
func (l Line) YAt(x float64) float64 {
	if l.Vertical {
		return math.NaN()
	}
	return l.Slope*x + l.Intercept
}

// XAt evaluates the line as x = f(y). A horizontal line yields NaN.
func (l Line) XAt(y float64) float64 {
	if l.Vertical {
		return l.X
	}
	if l.Slope == 0 {
		return math.NaN()
	}
	return (y - l.Intercept) / l.Slope
}
