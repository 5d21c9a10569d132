package brushd

import (
	"github.com/pkg/errors"
)

// Validate checks the structural and geometric invariants of p.
//
// A non-nil error indicates a bug in this package rather than bad input.
func (p *Polyhedron) Validate() error {
	if err := p.validateLinks(); err != nil {
		return err
	}
	shape := p.Shape()
	switch shape {
	case ShapeEmpty:
		if p.halfEdges.Len() != 0 || p.faces.Len() != 0 {
			return errors.New("empty shape has edges or faces")
		}
	case ShapePoint:
		if p.halfEdges.Len() != 0 || p.faces.Len() != 0 {
			return errors.New("point shape has edges or faces")
		}
	case ShapeEdge:
		if p.vertices.Len() != 2 || p.halfEdges.Len() != 2 {
			return errors.Errorf("edge shape has %d vertices and %d half-edges",
				p.vertices.Len(), p.halfEdges.Len())
		}
	case ShapePolygon:
		f := p.faces.IDs()[0]
		if n := len(p.faceEdges(f)); n < 3 || p.halfEdges.Len() != 2*n || p.vertices.Len() != n {
			return errors.New("polygon shape has extra elements")
		}
	case ShapePolyhedron:
		for _, h := range p.halfEdges.IDs() {
			if p.edge(h).Face == NoFace {
				return errors.Errorf("half-edge %d of polyhedron has no face", h)
			}
		}
		v, e, f := p.VertexCount(), p.EdgeCount(), p.FaceCount()
		if v-e+f != 2 {
			return errors.Errorf("euler characteristic is %d (V=%d E=%d F=%d)", v-e+f, v, e, f)
		}
		if f < 4 {
			return errors.Errorf("polyhedron has only %d faces", f)
		}
	}
	return p.validateGeometry()
}

func (p *Polyhedron) validateLinks() error {
	for _, h := range p.halfEdges.IDs() {
		e := p.edge(h)
		if !p.vertices.Alive(e.Origin) {
			return errors.Errorf("half-edge %d has dead origin %d", h, e.Origin)
		}
		for _, other := range []HalfEdgeID{e.Twin, e.Next, e.Prev} {
			if !p.halfEdges.Alive(other) {
				return errors.Errorf("half-edge %d links to dead half-edge %d", h, other)
			}
		}
		if e.Twin == h || p.edge(e.Twin).Twin != h {
			return errors.Errorf("half-edge %d has asymmetric twin", h)
		}
		if p.edge(e.Next).Prev != h || p.edge(e.Prev).Next != h {
			return errors.Errorf("half-edge %d has asymmetric next/prev", h)
		}
		if p.origin(e.Next) != p.origin(e.Twin) {
			return errors.Errorf("half-edge %d does not end where its successor starts", h)
		}
		if p.origin(e.Twin) == e.Origin {
			return errors.Errorf("half-edge %d is a loop", h)
		}
		if e.Face != NoFace {
			if !p.faces.Alive(e.Face) {
				return errors.Errorf("half-edge %d has dead face %d", h, e.Face)
			}
			if p.edge(e.Next).Face != e.Face {
				return errors.Errorf("half-edge %d and its successor disagree on face", h)
			}
		}
	}
	for _, v := range p.vertices.IDs() {
		h := p.vert(v).Edge
		if p.halfEdges.Len() == 0 {
			if h != NoHalfEdge {
				return errors.Errorf("isolated vertex %d has an edge", v)
			}
			continue
		}
		if !p.halfEdges.Alive(h) || p.origin(h) != v {
			return errors.Errorf("vertex %d has invalid outgoing half-edge", v)
		}
	}
	seen := map[HalfEdgeID]bool{}
	for _, f := range p.faces.IDs() {
		start := p.face(f).Edge
		if !p.halfEdges.Alive(start) || p.edge(start).Face != f {
			return errors.Errorf("face %d has invalid half-edge", f)
		}
		n := 0
		for h := start; ; h = p.edge(h).Next {
			if seen[h] {
				return errors.Errorf("face %d revisits half-edge %d", f, h)
			}
			seen[h] = true
			n++
			if p.edge(h).Next == start {
				break
			}
		}
		if n < 3 {
			return errors.Errorf("face %d has %d edges", f, n)
		}
	}
	for _, h := range p.halfEdges.IDs() {
		if p.edge(h).Face != NoFace && !seen[h] {
			return errors.Errorf("half-edge %d is not in its face's loop", h)
		}
	}
	return nil
}

func (p *Polyhedron) validateGeometry() error {
	eps := p.epsilon()
	for _, f := range p.faces.IDs() {
		if err := p.checkFace(f, eps); err != nil {
			return err
		}
	}
	return nil
}

// checkFace makes sure that a face is planar and convex, and that no vertex
// of a polyhedron is above it.
func (p *Polyhedron) checkFace(f FaceID, eps float64) error {
	plane := p.face(f).Plane
	if n := plane.Normal.Norm(); n < 0.5 || n > 1.5 {
		return errors.Errorf("face %d has invalid normal", f)
	}
	loop := p.facePositions(f)
	for _, c := range loop {
		// Merged faces keep the plane of one component, so allow a
		// little slack for the accumulated error.
		if d := plane.SignedDistance(c); d > 4*eps || d < -4*eps {
			return errors.Errorf("face %d is not planar (distance %e, eps %e)", f, d, eps)
		}
	}
	for i, c := range loop {
		next := loop[(i+1)%len(loop)]
		after := loop[(i+2)%len(loop)]
		e1, e2 := next.Sub(c), after.Sub(next)
		if e1.Cross(e2).Dot(plane.Normal) < -4*eps*(e1.Norm()+e2.Norm()) {
			return errors.Errorf("face %d is not convex", f)
		}
	}
	if !p.IsPolyhedron() {
		return nil
	}
	for _, v := range p.vertices.IDs() {
		if d := plane.SignedDistance(p.position(v)); d > 4*eps {
			return errors.Errorf("vertex %d is above face %d by %e", v, f, d)
		}
	}
	return nil
}

// checkInvariants panics if p is invalid and debug checks are enabled.
func (p *Polyhedron) checkInvariants() {
	if !debugChecks {
		return
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
