package brushd

import (
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// Intersects checks if p and other have at least one point in common.
//
// Shapes which only touch are considered to intersect, and an empty shape
// intersects nothing. The result does not depend on the order of the
// arguments.
func (p *Polyhedron) Intersects(other *Polyhedron) bool {
	if p.IsEmpty() || other.IsEmpty() {
		return false
	}
	eps := math.Max(p.epsilon(), other.epsilon())
	f1 := p.separationFeatures()
	f2 := other.separationFeatures()

	var axes []model3d.Coord3D
	axes = append(axes, f1.Normals...)
	axes = append(axes, f2.Normals...)
	for _, e1 := range f1.Edges {
		for _, e2 := range f2.Edges {
			axes = append(axes, e1.Cross(e2))
		}
	}

	if !p.IsPolyhedron() || !other.IsPolyhedron() {
		// Flat shapes can also be separated within their own plane, or
		// along directions orthogonal to their edges.
		edges := append(append([]model3d.Coord3D{}, f1.Edges...), f2.Edges...)
		planeAxes := axes
		for _, n := range planeAxes {
			for _, e := range edges {
				axes = append(axes, e.Cross(n))
			}
		}
		axes = append(axes, edges...)

		offset := f2.Points[0].Sub(f1.Points[0])
		axes = append(axes, offset)
		for _, e := range edges {
			axes = append(axes, offset.Sub(e.Scale(e.Dot(offset))))
		}
	}

	minNorm := math.Min(p.tol.Angle, other.tol.Angle)
	for _, axis := range axes {
		norm := axis.Norm()
		if norm <= minNorm {
			continue
		}
		axis = axis.Scale(1 / norm)
		min1, max1 := projectPoints(f1.Points, axis)
		min2, max2 := projectPoints(f2.Points, axis)
		if max1 < min2-eps || max2 < min1-eps {
			return false
		}
	}
	return true
}

type separationFeatures struct {
	Points  []model3d.Coord3D
	Edges   []model3d.Coord3D
	Normals []model3d.Coord3D
}

func (p *Polyhedron) separationFeatures() *separationFeatures {
	res := &separationFeatures{Points: p.VertexPositions()}
	for _, e := range p.Edges() {
		res.Edges = append(res.Edges, e[1].Sub(e[0]).Normalize())
	}
	for _, f := range p.faces.IDs() {
		res.Normals = append(res.Normals, p.face(f).Plane.Normal)
	}
	return res
}

func projectPoints(points []model3d.Coord3D, axis model3d.Coord3D) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, c := range points {
		d := axis.Dot(c)
		min = math.Min(min, d)
		max = math.Max(max, d)
	}
	return
}

// ContainsPolyhedron checks if every vertex of other is inside p.
//
// Only a Polyhedron can contain another shape.
func (p *Polyhedron) ContainsPolyhedron(other *Polyhedron) bool {
	if !p.IsPolyhedron() {
		return false
	}
	for _, c := range other.VertexPositions() {
		if !p.Contains(c) {
			return false
		}
	}
	return true
}

// Intersection computes the shape shared by p and other, leaving both of them
// unchanged.
//
// For two polyhedra, p is clipped by every face of other, so polyhedra which
// only touch have an Empty intersection. When either shape is flat, the
// result is the hull of the points the shapes share, and may be flat itself.
func (p *Polyhedron) Intersection(other *Polyhedron) *Polyhedron {
	if p.IsPolyhedron() && other.IsPolyhedron() {
		res := p.Clone()
		for _, f := range other.faces.IDs() {
			if res.Clip(other.face(f).Plane, nil) == ClipEmpty {
				break
			}
		}
		return res
	}
	res := NewPolyhedron(p.tol)
	if !p.Intersects(other) {
		return res
	}
	res.buildHull(sharedPoints(p, other))
	return res
}

// sharedPoints finds candidate vertices of the intersection of two shapes:
// the vertices of each shape inside the other, and the points where the
// edges of one shape cross the faces or edges of the other.
func sharedPoints(p1, p2 *Polyhedron) []model3d.Coord3D {
	var res []model3d.Coord3D
	for _, c := range p1.VertexPositions() {
		if p2.Contains(c) {
			res = append(res, c)
		}
	}
	for _, c := range p2.VertexPositions() {
		if p1.Contains(c) {
			res = append(res, c)
		}
	}
	addShared := func(c model3d.Coord3D) {
		if p1.Contains(c) && p2.Contains(c) {
			res = append(res, c)
		}
	}
	for _, pair := range [2][2]*Polyhedron{{p1, p2}, {p2, p1}} {
		for _, e := range pair[0].Edges() {
			for _, f := range pair[1].faces.IDs() {
				plane := pair[1].face(f).Plane
				d1, d2 := plane.SignedDistance(e[0]), plane.SignedDistance(e[1])
				if (d1 < 0 && d2 > 0) || (d1 > 0 && d2 < 0) {
					addShared(edgeIntersection(plane, e[0], e[1]))
				}
			}
		}
	}
	eps := math.Max(p1.epsilon(), p2.epsilon())
	for _, e1 := range p1.Edges() {
		for _, e2 := range p2.Edges() {
			c1, c2 := segmentClosestPoints(e1, e2)
			if c1.Dist(c2) <= eps {
				addShared(c1.Add(c2).Scale(0.5))
			}
		}
	}
	return res
}

// segmentClosestPoints finds the closest pair of points on two segments.
func segmentClosestPoints(s1, s2 [2]model3d.Coord3D) (model3d.Coord3D, model3d.Coord3D) {
	d1 := s1[1].Sub(s1[0])
	d2 := s2[1].Sub(s2[0])
	r := s1[0].Sub(s2[0])
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	if a == 0 && e == 0 {
		return s1[0], s2[0]
	} else if a == 0 {
		t = clamp01(f / e)
	} else {
		c := d1.Dot(r)
		if e == 0 {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 0 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return s1[0].Add(d1.Scale(s)), s2[0].Add(d2.Scale(t))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
