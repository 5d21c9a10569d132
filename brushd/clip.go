package brushd

import (
	"github.com/unixpickle/model3d/model3d"
)

// ClipResult describes the outcome of Polyhedron.Clip.
type ClipResult int

const (
	// ClipUnchanged means no vertex was above the plane.
	ClipUnchanged ClipResult = iota

	// ClipEmpty means no vertex was below the plane, so everything was
	// removed.
	ClipEmpty

	// ClipSuccess means the plane cut through the shape.
	ClipSuccess
)

func (c ClipResult) String() string {
	switch c {
	case ClipUnchanged:
		return "unchanged"
	case ClipEmpty:
		return "empty"
	case ClipSuccess:
		return "success"
	}
	return "unknown"
}

// A ClipCallback is notified of changes to the faces of a Polyhedron during
// Clip, so that callers can maintain per-face attributes keyed by FaceID.
type ClipCallback interface {
	// FaceWasCreated is called after a face is added.
	FaceWasCreated(f FaceID)

	// FaceWillBeDeleted is called before a face is removed.
	FaceWillBeDeleted(f FaceID)

	// FaceWasSplit is called after part of original was cut off into a new
	// face, created. Both faces lie in the plane of original.
	FaceWasSplit(original, created FaceID)

	// FacesWillBeMerged is called before removed is joined into remaining.
	FacesWillBeMerged(remaining, removed FaceID)
}

// NopClipCallback implements ClipCallback by ignoring every event.
//
// It can be embedded to implement only some methods of ClipCallback.
type NopClipCallback struct{}

func (n NopClipCallback) FaceWasCreated(f FaceID)                     {}
func (n NopClipCallback) FaceWillBeDeleted(f FaceID)                  {}
func (n NopClipCallback) FaceWasSplit(original, created FaceID)       {}
func (n NopClipCallback) FacesWillBeMerged(remaining, removed FaceID) {}

// NewPolyhedronPlanes creates the intersection of an axis-aligned box and the
// half-spaces below each of the planes.
func NewPolyhedronPlanes(min, max model3d.Coord3D, planes []Plane) *Polyhedron {
	res := NewPolyhedronRect(min, max)
	for _, plane := range planes {
		if res.Clip(plane, nil) == ClipEmpty {
			break
		}
	}
	return res
}

// Clip removes the part of p above the plane.
//
// When the plane cuts through a solid, the cut is closed with a new face
// whose plane is the clipping plane. The callback, which may be nil, is
// notified of every face that is created, split, merged or deleted.
//
// If the result is ClipEmpty, p is left empty.
func (p *Polyhedron) Clip(plane Plane, cb ClipCallback) ClipResult {
	if cb == nil {
		cb = NopClipCallback{}
	}
	eps := p.epsilon()

	var above, below int
	for _, v := range p.vertices.IDs() {
		switch plane.PointStatus(p.position(v), eps) {
		case Above:
			above++
		case Below:
			below++
		}
	}
	if above == 0 {
		return ClipUnchanged
	} else if below == 0 {
		for _, f := range p.faces.IDs() {
			cb.FaceWillBeDeleted(f)
		}
		p.clearMesh()
		return ClipEmpty
	}

	if p.IsPolyhedron() {
		p.clipPolyhedron(plane, eps, cb)
	} else {
		p.clipFlat(plane, eps, cb)
	}
	p.checkInvariants()
	return ClipSuccess
}

// Split divides p into the parts below and above a plane.
//
// Either result may be empty.
func (p *Polyhedron) Split(plane Plane) (below, above *Polyhedron) {
	below = p.Clone()
	below.Clip(plane, nil)
	above = p.Clone()
	above.Clip(plane.Flip(), nil)
	return
}

// clipFlat clips a point, edge or polygon by walking its boundary.
func (p *Polyhedron) clipFlat(plane Plane, eps float64, cb ClipCallback) {
	var loop []model3d.Coord3D
	var facePlane Plane
	var oldFace FaceID = NoFace
	if p.IsPolygon() {
		oldFace = p.faces.IDs()[0]
		loop = p.facePositions(oldFace)
		facePlane = p.face(oldFace).Plane
	} else {
		loop = p.VertexPositions()
	}

	var kept []model3d.Coord3D
	for i, c := range loop {
		next := loop[(i+1)%len(loop)]
		s1 := plane.PointStatus(c, eps)
		s2 := plane.PointStatus(next, eps)
		if s1 != Above {
			kept = append(kept, c)
		}
		if (s1 == Above && s2 == Below) || (s1 == Below && s2 == Above) {
			kept = append(kept, edgeIntersection(plane, c, next))
		}
	}

	if oldFace != NoFace {
		cb.FaceWillBeDeleted(oldFace)
		p.setPolygon(kept, planarHull(kept, facePlane, eps), facePlane)
		if p.IsPolygon() {
			cb.FaceWasCreated(p.faces.IDs()[0])
		}
	} else {
		p.buildHull(kept)
	}
}

func edgeIntersection(plane Plane, a, b model3d.Coord3D) model3d.Coord3D {
	da := plane.SignedDistance(a)
	db := plane.SignedDistance(b)
	t := da / (da - db)
	return a.Add(b.Sub(a).Scale(t))
}

func (p *Polyhedron) clipPolyhedron(plane Plane, eps float64, cb ClipCallback) {
	status := map[VertexID]PointStatus{}
	for _, v := range p.vertices.IDs() {
		status[v] = plane.PointStatus(p.position(v), eps)
	}

	// Insert a vertex wherever an edge crosses the plane. Afterwards, no edge
	// connects an Above vertex to a Below vertex.
	for _, h := range p.halfEdges.IDs() {
		s1 := status[p.origin(h)]
		s2 := status[p.dest(h)]
		if (s1 == Above && s2 == Below) || (s1 == Below && s2 == Above) {
			a, b := p.position(p.origin(h)), p.position(p.dest(h))
			m := p.splitEdge(h, edgeIntersection(plane, a, b))
			status[m] = Inside
		}
	}

	// Cut every face with vertices on both sides along the plane.
	for _, f := range p.faces.IDs() {
		edges := p.faceEdges(f)
		var hasAbove, hasBelow bool
		for _, h := range edges {
			switch status[p.origin(h)] {
			case Above:
				hasAbove = true
			case Below:
				hasBelow = true
			}
		}
		if !hasAbove || !hasBelow {
			continue
		}
		sh, th, ok := p.findFaceCut(edges, status)
		if !ok {
			p.clipByHull(status, plane, eps, cb)
			return
		}
		created := p.splitFace(sh, th)
		cb.FaceWasSplit(f, created)
	}

	deleted := map[FaceID]bool{}
	for _, h := range p.halfEdges.IDs() {
		if status[p.origin(h)] == Above {
			deleted[p.edge(h).Face] = true
		}
	}
	var seam []HalfEdgeID
	for _, h := range p.halfEdges.IDs() {
		if !deleted[p.edge(h).Face] && deleted[p.twinFace(h)] {
			seam = append(seam, h)
		}
	}
	capLoop, ok := p.orderSeam(seam)
	if !ok {
		p.clipByHull(status, plane, eps, cb)
		return
	}

	for _, f := range p.faces.IDs() {
		if !deleted[f] {
			continue
		}
		cb.FaceWillBeDeleted(f)
		for _, h := range p.faceEdges(f) {
			p.halfEdges.Free(h)
		}
		p.faces.Free(f)
	}

	cap := p.faces.Alloc(face{Edge: NoHalfEdge, Plane: plane})
	capEdges := make([]HalfEdgeID, len(capLoop))
	for i, s := range capLoop {
		capEdges[i] = p.newHalfEdge(p.origin(p.edge(s).Next), cap)
		p.setTwins(capEdges[i], s)
	}
	for i, c := range capEdges {
		p.link(c, capEdges[(i+1)%len(capEdges)])
	}
	p.face(cap).Edge = capEdges[0]
	p.relinkVertices()
	p.updateBounds()
	cb.FaceWasCreated(cap)

	p.mergeCoplanarFaces([]FaceID{cap}, eps, cb)
	for _, s := range capLoop {
		if !p.halfEdges.Alive(s) {
			continue
		}
		if v := p.origin(s); p.isColinearVertex(v, eps) {
			p.dissolveVertex(v)
		}
	}
}

// findFaceCut finds the half-edges starting at the two Inside vertices that
// bound the single run of Above vertices in a face loop.
func (p *Polyhedron) findFaceCut(edges []HalfEdgeID,
	status map[VertexID]PointStatus) (sh, th HalfEdgeID, ok bool) {
	n := len(edges)
	sIdx, tIdx := -1, -1
	for i, h := range edges {
		cur := status[p.origin(h)]
		next := status[p.origin(edges[(i+1)%n])]
		prev := status[p.origin(edges[(i+n-1)%n])]
		if cur != Inside {
			continue
		}
		if next == Above {
			if sIdx != -1 {
				return NoHalfEdge, NoHalfEdge, false
			}
			sIdx = i
		}
		if prev == Above {
			if tIdx != -1 {
				return NoHalfEdge, NoHalfEdge, false
			}
			tIdx = i
		}
	}
	if sIdx == -1 || tIdx == -1 || sIdx == tIdx {
		return NoHalfEdge, NoHalfEdge, false
	}
	for i := (sIdx + 1) % n; i != tIdx; i = (i + 1) % n {
		if status[p.origin(edges[i])] != Above {
			return NoHalfEdge, NoHalfEdge, false
		}
	}
	return edges[sIdx], edges[tIdx], true
}

// orderSeam orders the seam half-edges into the loop of the face that will
// close it, returning the seam half-edge under each cap edge.
//
// Fails if the seam is not a single simple loop.
func (p *Polyhedron) orderSeam(seam []HalfEdgeID) ([]HalfEdgeID, bool) {
	if len(seam) < 3 {
		return nil, false
	}
	byDest := map[VertexID]HalfEdgeID{}
	for _, h := range seam {
		d := p.origin(p.edge(h).Next)
		if _, ok := byDest[d]; ok {
			return nil, false
		}
		byDest[d] = h
	}
	// The cap runs opposite to the seam, so after the cap edge over s comes
	// the cap edge over the seam half-edge ending where s starts.
	res := []HalfEdgeID{seam[0]}
	for {
		next, ok := byDest[p.origin(res[len(res)-1])]
		if !ok {
			return nil, false
		}
		if next == seam[0] {
			break
		}
		res = append(res, next)
		if len(res) > len(seam) {
			return nil, false
		}
	}
	if len(res) != len(seam) {
		return nil, false
	}
	return res, true
}

// clipByHull replaces p with the hull of its vertices which are not above the
// plane, for when rounding errors prevent cutting the mesh directly.
func (p *Polyhedron) clipByHull(status map[VertexID]PointStatus, plane Plane, eps float64,
	cb ClipCallback) {
	var points []model3d.Coord3D
	for _, v := range p.vertices.IDs() {
		if status[v] != Above {
			points = append(points, p.position(v))
		}
	}
	for _, f := range p.faces.IDs() {
		cb.FaceWillBeDeleted(f)
	}
	p.buildHull(points)
	for _, f := range p.faces.IDs() {
		cb.FaceWasCreated(f)
	}
}
