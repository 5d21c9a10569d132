package brushd

import (
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// PointStatus classifies a point relative to a Plane.
type PointStatus int

const (
	Inside PointStatus = iota
	Above
	Below
)

func (p PointStatus) String() string {
	switch p {
	case Inside:
		return "inside"
	case Above:
		return "above"
	case Below:
		return "below"
	}
	return "unknown"
}

// A Plane is the set of points x where Normal.Dot(x) == Distance.
//
// The normal of a valid plane has unit length. Points in the direction of the
// normal are above the plane.
type Plane struct {
	Normal   model3d.Coord3D
	Distance float64
}

// NewPlaneNormal creates a plane through point with the given normal, using
// DefaultTolerance.
func NewPlaneNormal(point, normal model3d.Coord3D) (Plane, bool) {
	return DefaultTolerance.PlaneNormal(point, normal)
}

// NewPlanePoints creates a plane through three points, using
// DefaultTolerance.
func NewPlanePoints(a, b, c model3d.Coord3D) (Plane, bool) {
	return DefaultTolerance.PlanePoints(a, b, c)
}

// PlaneNormal creates a plane through point with the given (not necessarily
// normalized) normal.
//
// The second return value is false if the normal is zero or not finite.
func (t Tolerance) PlaneNormal(point, normal model3d.Coord3D) (Plane, bool) {
	norm := normal.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return Plane{}, false
	}
	n := normal.Scale(1 / norm)
	return Plane{Normal: n, Distance: n.Dot(point)}, true
}

// PlanePoints creates a plane through three points.
//
// The points are wound counter-clockwise when viewed from above the plane.
// The second return value is false if the points are nearly colinear, i.e.
// if the sine of the angle at a is below t.Angle.
func (t Tolerance) PlanePoints(a, b, c model3d.Coord3D) (Plane, bool) {
	v1 := b.Sub(a)
	v2 := c.Sub(a)
	cross := v1.Cross(v2)
	crossNorm := cross.Norm()
	if crossNorm <= t.Angle*v1.Norm()*v2.Norm() || crossNorm == 0 {
		return Plane{}, false
	}
	n := cross.Scale(1 / crossNorm)
	return Plane{Normal: n, Distance: n.Dot(a)}, true
}

// SignedDistance computes the distance from c to the plane, which is
// positive above the plane.
func (p Plane) SignedDistance(c model3d.Coord3D) float64 {
	return p.Normal.Dot(c) - p.Distance
}

// PointStatus classifies c as Above, Below or Inside the plane, where Inside
// means within eps of it.
func (p Plane) PointStatus(c model3d.Coord3D, eps float64) PointStatus {
	d := p.SignedDistance(c)
	if d > eps {
		return Above
	} else if d < -eps {
		return Below
	}
	return Inside
}

// Flip returns the same plane with the opposite orientation.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Scale(-1), Distance: -p.Distance}
}

// Project finds the closest point on the plane to c.
func (p Plane) Project(c model3d.Coord3D) model3d.Coord3D {
	return c.Sub(p.Normal.Scale(p.SignedDistance(c)))
}

// Equal checks if two planes have the same orientation and offset, up to a
// distance epsilon which is also used as an angular bound on the normals.
func (p Plane) Equal(other Plane, eps float64) bool {
	return p.Normal.Sub(other.Normal).Norm() <= eps && math.Abs(p.Distance-other.Distance) <= eps
}

// IntersectPlane computes the line where two planes meet.
//
// If the planes are parallel, or the angle between them is too small for the
// line to be computed reliably, a zero Line and false are returned.
func (p Plane) IntersectPlane(other Plane, t Tolerance) (Line, bool) {
	dir := p.Normal.Cross(other.Normal)
	sin := dir.Norm()
	if sin <= t.Angle {
		return Line{}, false
	}
	dir = dir.Scale(1 / sin)

	// Solve for the point on the line closest to the origin, which is a
	// combination of the two normals.
	n1n2 := p.Normal.Dot(other.Normal)
	det := 1 - n1n2*n1n2
	c1 := (p.Distance - other.Distance*n1n2) / det
	c2 := (other.Distance - p.Distance*n1n2) / det
	point := p.Normal.Scale(c1).Add(other.Normal.Scale(c2))
	return Line{Point: point, Direction: dir}, true
}

// IntersectRay finds the scale t such that r.Origin + t*r.Direction lies on
// the plane.
//
// Returns NaN if the ray is parallel to the plane or the intersection is
// behind the origin.
func (p Plane) IntersectRay(r *model3d.Ray) float64 {
	t := p.IntersectLine(Line{Point: r.Origin, Direction: r.Direction})
	if t < 0 {
		return math.NaN()
	}
	return t
}

// IntersectLine finds the parameter t of the line where it meets the plane.
//
// Returns NaN if the line is parallel to the plane.
func (p Plane) IntersectLine(l Line) float64 {
	dot := p.Normal.Dot(l.Direction)
	if dot == 0 {
		return math.NaN()
	}
	// n*(o + t*d) = b  =>  t = (b - n*o) / (n*d)
	return (p.Distance - p.Normal.Dot(l.Point)) / dot
}

// A Line is the set of points Point + t*Direction.
type Line struct {
	Point     model3d.Coord3D
	Direction model3d.Coord3D
}

// IsZero checks if l is the zero Line returned by failed constructions.
func (l Line) IsZero() bool {
	return l.Direction == model3d.Origin
}

// PointAt evaluates the line at parameter t.
func (l Line) PointAt(t float64) model3d.Coord3D {
	return l.Point.Add(l.Direction.Scale(t))
}

// Distance computes the distance from c to the line.
func (l Line) Distance(c model3d.Coord3D) float64 {
	d := l.Direction.Normalize()
	v := c.Sub(l.Point)
	return v.Sub(d.Scale(d.Dot(v))).Norm()
}
