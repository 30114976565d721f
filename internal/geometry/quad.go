package geometry

import (
	"fmt"
	"math"
)

// DefaultFieldOfView is the synthetic lens angle in degrees used to place the
// camera for perspective tilt. It approximates a 28mm-equivalent lens and is a
// calibration constant: the projected outline visibly differs from the
// platform's native crop preview.
const DefaultFieldOfView = 77.5

// Orientation is the clockwise rotation of the source media in degrees.
type Orientation int

const (
	OrientationUp    Orientation = 0
	OrientationRight Orientation = 90
	OrientationDown  Orientation = 180
	OrientationLeft  Orientation = 270
)

// Normalize folds any multiple of 90 into [0, 360). Other values snap down to
// the previous right angle.
func (o Orientation) Normalize() Orientation {
	v := int(o) % 360
	if v < 0 {
		v += 360
	}
	return Orientation(v - v%90)
}

// SwapsAxes reports whether the orientation exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	n := o.Normalize()
	return n == OrientationRight || n == OrientationLeft
}

// Quadrilateral is the valid outline of an image after orientation and
// perspective. Corners wind clockwise TL → TR → BR → BL in y-down space.
type Quadrilateral struct {
	TopLeft     Point `yaml:"top_left"`
	TopRight    Point `yaml:"top_right"`
	BottomLeft  Point `yaml:"bottom_left"`
	BottomRight Point `yaml:"bottom_right"`
}

// Rectangle returns the axis-aligned quad (0,0)-(w,h).
func Rectangle(width, height float64) Quadrilateral {
	return Quadrilateral{
		TopLeft:     Pt(0, 0),
		TopRight:    Pt(width, 0),
		BottomLeft:  Pt(0, height),
		BottomRight: Pt(width, height),
	}
}

// Corners returns the corners in winding order.
func (q Quadrilateral) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

func fromCorners(c [4]Point) Quadrilateral {
	return Quadrilateral{TopLeft: c[0], TopRight: c[1], BottomRight: c[2], BottomLeft: c[3]}
}

// Left is the edge TL→BL.
func (q Quadrilateral) Left() Line { return LineThrough(q.TopLeft, q.BottomLeft) }

// Top is the edge TL→TR.
func (q Quadrilateral) Top() Line { return LineThrough(q.TopLeft, q.TopRight) }

// Right is the edge TR→BR.
func (q Quadrilateral) Right() Line { return LineThrough(q.TopRight, q.BottomRight) }

// Bottom is the edge BL→BR.
func (q Quadrilateral) Bottom() Line { return LineThrough(q.BottomLeft, q.BottomRight) }

// Size returns the max extents of the quad. Built quads are normalized so
// their minimum x/y is 0, which makes this the width/height of the crop space.
func (q Quadrilateral) Size() (width, height float64) {
	for _, c := range q.Corners() {
		width = math.Max(width, c.X)
		height = math.Max(height, c.Y)
	}
	return width, height
}

// Centroid is the average of the four corners.
func (q Quadrilateral) Centroid() Point {
	var sx, sy float64
	for _, c := range q.Corners() {
		sx += c.X
		sy += c.Y
	}
	return Pt(sx/4, sy/4)
}

// IsFinite reports whether no corner carries NaN or Inf.
func (q Quadrilateral) IsFinite() bool {
	for _, c := range q.Corners() {
		if !c.IsFinite() {
			return false
		}
	}
	return true
}

// signedArea is positive for clockwise winding in y-down space.
func (q Quadrilateral) signedArea() float64 {
	c := q.Corners()
	var a float64
	for i := range c {
		j := (i + 1) % len(c)
		a += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return a / 2
}

// IsSimple reports whether the quad is convex, non-degenerate and keeps the
// expected winding.
func (q Quadrilateral) IsSimple() bool {
	if !q.IsFinite() || q.signedArea() <= 0 {
		return false
	}
	c := q.Corners()
	for i := range c {
		a, b, n := c[i], c[(i+1)%4], c[(i+2)%4]
		if b.Sub(a).Cross(n.Sub(b)) < 0 {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside or on the boundary, allowing tol
// pixels of slack.
func (q Quadrilateral) Contains(p Point, tol float64) bool {
	c := q.Corners()
	for i := range c {
		a, b := c[i], c[(i+1)%4]
		edge := b.Sub(a)
		length := math.Hypot(edge.X, edge.Y)
		if length == 0 {
			continue
		}
		if edge.Cross(p.Sub(a))/length < -tol {
			return false
		}
	}
	return true
}

func (q Quadrilateral) String() string {
	return fmt.Sprintf("[(%.2f,%.2f) (%.2f,%.2f) (%.2f,%.2f) (%.2f,%.2f)]",
		q.TopLeft.X, q.TopLeft.Y, q.TopRight.X, q.TopRight.Y,
		q.BottomRight.X, q.BottomRight.Y, q.BottomLeft.X, q.BottomLeft.Y)
}

// Builder projects tilted media onto the crop plane.
type Builder struct {
	FieldOfView float64 // degrees
}

// NewBuilder returns a Builder using fov, or DefaultFieldOfView when fov is
// outside (0, 180).
func NewBuilder(fov float64) Builder {
	if !(fov > 0 && fov < 180) {
		fov = DefaultFieldOfView
	}
	return Builder{FieldOfView: fov}
}

// BuildQuadrilateral uses the default field of view.
func BuildQuadrilateral(width, height, pitch, yaw, roll float64, orientation Orientation) Quadrilateral {
	return NewBuilder(DefaultFieldOfView).Build(width, height, pitch, yaw, roll, orientation)
}

// Build returns the outline of a width×height image after pitch, yaw and roll
// (degrees) have been applied around its centre and the result flattened back
// onto z=0. Without rotation the base rectangle is returned untouched.
// Degenerate input falls back to the unrotated rectangle.
func (b Builder) Build(width, height, pitch, yaw, roll float64, orientation Orientation) Quadrilateral {
	if orientation.SwapsAxes() {
		width, height = height, width
	}
	base := Rectangle(width, height)
	if pitch == 0 && yaw == 0 && roll == 0 {
		return base
	}
	if !(width > 0 && height > 0) || !finite(width) || !finite(height) ||
		!finite(pitch) || !finite(yaw) || !finite(roll) {
		return base
	}

	fov := b.FieldOfView
	if !(fov > 0 && fov < 180) {
		fov = DefaultFieldOfView
	}
	distance := math.Tan(radians(fov)/2) * math.Max(width, height)
	cx, cy := width/2, height/2

	corners := base.Corners()
	for i, c := range corners {
		p := Point{X: c.X - cx, Y: c.Y - cy}
		p = p.RotateX(pitch).RotateY(yaw).RotateZ(roll)
		if p.Z >= distance {
			// corner falls behind the synthetic camera
			return base
		}
		delta := distance / (distance - p.Z)
		corners[i] = Pt(cx+p.X*delta, cy+p.Y*delta)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	for _, c := range corners {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
	}
	for i := range corners {
		corners[i] = Pt(corners[i].X-minX, corners[i].Y-minY)
	}

	q := fromCorners(corners)
	if !q.IsSimple() {
		return base
	}
	return q
}
