package brushd

import "math"

// mergeCoplanarFaces merges each of the fresh faces with every neighbor that
// lies in the same plane, and then dissolves the vertices left between two
// colinear edges.
//
// When a fresh face merges into an older one, the older face survives and
// keeps its plane.
func (p *Polyhedron) mergeCoplanarFaces(fresh []FaceID, eps float64, cb ClipCallback) {
	isFresh := map[FaceID]bool{}
	for _, f := range fresh {
		isFresh[f] = true
	}
	var notify func(keep, remove FaceID)
	if cb != nil {
		notify = cb.FacesWillBeMerged
	}

	var touched []VertexID
	queue := append([]FaceID{}, fresh...)
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if !p.faces.Alive(f) {
			continue
		}
		for _, h := range p.faceEdges(f) {
			g := p.twinFace(h)
			if g == f {
				continue
			}
			keep, remove, mergeEdge := f, g, h
			if isFresh[f] && !isFresh[g] {
				keep, remove, mergeEdge = g, f, p.edge(h).Twin
			}
			ref, other := keep, remove
			if isFresh[keep] && p.faceArea(remove) > p.faceArea(keep) {
				ref, other = remove, keep
			}
			if !p.facesCoplanar(ref, other, eps) {
				continue
			}
			ends, ok := p.mergeFaces(mergeEdge, notify)
			if !ok {
				continue
			}
			if isFresh[keep] {
				if plane, ok := newellPlane(p.tol, p.facePositions(keep)); ok {
					p.face(keep).Plane = plane
				}
			}
			touched = append(touched, ends[:]...)
			queue = append(queue, keep)
			break
		}
	}

	for _, v := range touched {
		if p.vertices.Alive(v) && p.isColinearVertex(v, eps) {
			p.dissolveVertex(v)
		}
	}
}

// facesCoplanar checks if the faces face the same way and every vertex of
// other is within eps of the plane of ref.
func (p *Polyhedron) facesCoplanar(ref, other FaceID, eps float64) bool {
	plane := p.face(ref).Plane
	if plane.Normal.Dot(p.face(other).Plane.Normal) <= 0 {
		return false
	}
	for _, c := range p.facePositions(other) {
		if math.Abs(plane.SignedDistance(c)) > eps {
			return false
		}
	}
	return true
}

// isColinearVertex checks if v has two neighbors and lies on the line
// between them.
func (p *Polyhedron) isColinearVertex(v VertexID, eps float64) bool {
	out := p.outgoing(v)
	if len(out) != 2 {
		return false
	}
	a := p.position(p.dest(out[0]))
	b := p.position(p.dest(out[1]))
	return (Line{Point: a, Direction: b.Sub(a)}).Distance(p.position(v)) <= eps
}

func (p *Polyhedron) faceArea(f FaceID) float64 {
	return loopArea(p.facePositions(f))
}
