package geometry

import "math"

// Point is a coordinate used during perspective projection.
// Z is always carried and is 0 for flattened points.
type Point struct {
	X, Y, Z float64
}

// Pt creates a flat point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Cross returns the z component of the 2D cross product.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Flatten drops the depth component.
func (p Point) Flatten() Point {
	return Point{X: p.X, Y: p.Y}
}

// RotateX rotates around the horizontal axis (pitch), operating on y/z.
func (p Point) RotateX(degrees float64) Point {
	if degrees == 0 {
		return p
	}
	sin, cos := math.Sincos(radians(degrees))
	return Point{X: p.X, Y: p.Y*cos - p.Z*sin, Z: p.Y*sin + p.Z*cos}
}

// RotateY rotates around the vertical axis (yaw), operating on x/z.
func (p Point) RotateY(degrees float64) Point {
	if degrees == 0 {
		return p
	}
	sin, cos := math.Sincos(radians(degrees))
	return Point{X: p.X*cos + p.Z*sin, Y: p.Y, Z: -p.X*sin + p.Z*cos}
}

// RotateZ is the 2D rotation (roll), operating on x/y.
func (p Point) RotateZ(degrees float64) Point {
	if degrees == 0 {
		return p
	}
	sin, cos := math.Sincos(radians(degrees))
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos, Z: p.Z}
}

// IsFinite reports whether every component is a real number.
func (p Point) IsFinite() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Z)
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
