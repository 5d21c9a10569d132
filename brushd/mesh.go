package brushd

import "github.com/unixpickle/model3d/model3d"

// A VertexID is a handle to a vertex of one Polyhedron.
type VertexID int32

// A HalfEdgeID is a handle to a half-edge of one Polyhedron.
type HalfEdgeID int32

// A FaceID is a handle to a face of one Polyhedron.
//
// Handles stay valid until the face is deleted, and are preserved by Clone.
type FaceID int32

const (
	NoVertex   VertexID   = -1
	NoHalfEdge HalfEdgeID = -1
	NoFace     FaceID     = -1
)

type vertex struct {
	Position model3d.Coord3D
	Edge     HalfEdgeID
}

type halfEdge struct {
	Origin VertexID
	Twin   HalfEdgeID
	Next   HalfEdgeID
	Prev   HalfEdgeID

	// Face is NoFace for the boundary of the Edge and Polygon shapes.
	Face FaceID
}

type face struct {
	Edge  HalfEdgeID
	Plane Plane
}

func (p *Polyhedron) vert(id VertexID) *vertex {
	return p.vertices.Get(id)
}

func (p *Polyhedron) edge(id HalfEdgeID) *halfEdge {
	return p.halfEdges.Get(id)
}

func (p *Polyhedron) face(id FaceID) *face {
	return p.faces.Get(id)
}

func (p *Polyhedron) newVertex(pos model3d.Coord3D) VertexID {
	return p.vertices.Alloc(vertex{Position: pos, Edge: NoHalfEdge})
}

func (p *Polyhedron) newHalfEdge(origin VertexID, f FaceID) HalfEdgeID {
	return p.halfEdges.Alloc(halfEdge{
		Origin: origin,
		Twin:   NoHalfEdge,
		Next:   NoHalfEdge,
		Prev:   NoHalfEdge,
		Face:   f,
	})
}

func (p *Polyhedron) link(from, to HalfEdgeID) {
	p.edge(from).Next = to
	p.edge(to).Prev = from
}

func (p *Polyhedron) setTwins(h1, h2 HalfEdgeID) {
	p.edge(h1).Twin = h2
	p.edge(h2).Twin = h1
}

func (p *Polyhedron) origin(h HalfEdgeID) VertexID {
	return p.edge(h).Origin
}

func (p *Polyhedron) dest(h HalfEdgeID) VertexID {
	return p.edge(p.edge(h).Twin).Origin
}

func (p *Polyhedron) position(v VertexID) model3d.Coord3D {
	return p.vert(v).Position
}

func (p *Polyhedron) twinFace(h HalfEdgeID) FaceID {
	return p.edge(p.edge(h).Twin).Face
}

// faceEdges lists the half-edges of a face in loop order.
func (p *Polyhedron) faceEdges(f FaceID) []HalfEdgeID {
	start := p.face(f).Edge
	res := []HalfEdgeID{start}
	for h := p.edge(start).Next; h != start; h = p.edge(h).Next {
		res = append(res, h)
		if len(res) > p.halfEdges.Len() {
			panic("face loop does not close")
		}
	}
	return res
}

func (p *Polyhedron) faceVertexIDs(f FaceID) []VertexID {
	edges := p.faceEdges(f)
	res := make([]VertexID, len(edges))
	for i, h := range edges {
		res[i] = p.origin(h)
	}
	return res
}

func (p *Polyhedron) facePositions(f FaceID) []model3d.Coord3D {
	edges := p.faceEdges(f)
	res := make([]model3d.Coord3D, len(edges))
	for i, h := range edges {
		res[i] = p.position(p.origin(h))
	}
	return res
}

// outgoing lists the half-edges leaving v, rotating around the vertex.
func (p *Polyhedron) outgoing(v VertexID) []HalfEdgeID {
	start := p.vert(v).Edge
	if start == NoHalfEdge {
		return nil
	}
	res := []HalfEdgeID{start}
	for h := p.edge(p.edge(start).Twin).Next; h != start; h = p.edge(p.edge(h).Twin).Next {
		res = append(res, h)
		if len(res) > p.halfEdges.Len() {
			panic("vertex fan does not close")
		}
	}
	return res
}

// splitEdge inserts a vertex at pos in the middle of the edge of h.
//
// Afterwards, h ends at the new vertex, and the new vertex's outgoing edge
// continues along h's former direction.
func (p *Polyhedron) splitEdge(h HalfEdgeID, pos model3d.Coord3D) VertexID {
	t := p.edge(h).Twin
	m := p.newVertex(pos)

	h2 := p.newHalfEdge(m, p.edge(h).Face)
	t2 := p.newHalfEdge(m, p.edge(t).Face)

	p.link(h2, p.edge(h).Next)
	p.link(h, h2)
	p.link(t2, p.edge(t).Next)
	p.link(t, t2)

	p.setTwins(h, t2)
	p.setTwins(h2, t)

	p.vert(m).Edge = h2
	return m
}

// splitFace inserts an edge between the origins of sh and th, which must be
// in the same face and not adjacent.
//
// The existing face keeps the loop from th around to sh, and the returned new
// face receives the loop from sh around to th.
func (p *Polyhedron) splitFace(sh, th HalfEdgeID) FaceID {
	f := p.edge(sh).Face
	newFace := p.faces.Alloc(face{Edge: NoHalfEdge, Plane: p.face(f).Plane})

	s := p.origin(sh)
	t := p.origin(th)
	shPrev := p.edge(sh).Prev
	thPrev := p.edge(th).Prev

	x := p.newHalfEdge(s, f)
	y := p.newHalfEdge(t, newFace)
	p.setTwins(x, y)

	p.link(shPrev, x)
	p.link(x, th)
	p.link(thPrev, y)
	p.link(y, sh)

	p.face(f).Edge = x
	p.face(newFace).Edge = y
	for h := sh; h != y; h = p.edge(h).Next {
		p.edge(h).Face = newFace
	}
	return newFace
}

// mergeFaces removes the edge of h, joining the face of h's twin into the
// face of h.
//
// If the faces share a chain of consecutive edges, the whole chain is removed
// along with the vertices in its interior.
//
// If before is non-nil, it is called once the merge is known to be possible
// and before anything is modified.
//
// Returns the vertices at the ends of the removed chain, or false if the merge
// would produce a degenerate face.
func (p *Polyhedron) mergeFaces(h HalfEdgeID, before func(keep, remove FaceID)) ([2]VertexID, bool) {
	f := p.edge(h).Face
	g := p.twinFace(h)
	if f == g || f == NoFace || g == NoFace {
		return [2]VertexID{}, false
	}

	start := h
	for {
		prev := p.edge(start).Prev
		if p.twinFace(prev) != g {
			break
		}
		start = prev
		if start == h {
			return [2]VertexID{}, false
		}
	}
	chain := []HalfEdgeID{start}
	end := start
	for {
		next := p.edge(end).Next
		if p.twinFace(next) != g || next == start {
			break
		}
		end = next
		chain = append(chain, end)
	}

	fLen := len(p.faceEdges(f))
	gLen := len(p.faceEdges(g))
	if fLen+gLen-2*len(chain) < 3 || fLen <= len(chain) || gLen <= len(chain) {
		return [2]VertexID{}, false
	}
	if before != nil {
		before(f, g)
	}

	startTwin := p.edge(start).Twin
	endTwin := p.edge(end).Twin
	fBefore := p.edge(start).Prev
	fAfter := p.edge(end).Next
	gAfter := p.edge(startTwin).Next
	gBefore := p.edge(endTwin).Prev

	for e := gAfter; ; e = p.edge(e).Next {
		p.edge(e).Face = f
		if e == gBefore {
			break
		}
	}

	var interior []VertexID
	for _, e := range chain[1:] {
		interior = append(interior, p.origin(e))
	}
	ends := [2]VertexID{p.origin(start), p.origin(fAfter)}

	p.link(fBefore, gAfter)
	p.link(gBefore, fAfter)
	p.vert(ends[0]).Edge = gAfter
	p.vert(ends[1]).Edge = fAfter
	p.face(f).Edge = fBefore

	for _, e := range chain {
		p.halfEdges.Free(p.edge(e).Twin)
		p.halfEdges.Free(e)
	}
	for _, v := range interior {
		p.vertices.Free(v)
	}
	p.faces.Free(g)

	return ends, true
}

// dissolveVertex removes a vertex with exactly two incident edges, joining the
// two edges into one.
//
// Returns false if v does not have degree two, or if removing it would leave
// a face with fewer than three edges.
func (p *Polyhedron) dissolveVertex(v VertexID) bool {
	out := p.outgoing(v)
	if len(out) != 2 {
		return false
	}
	h := out[0]
	g := p.edge(h).Prev
	h2 := p.edge(h).Twin
	g2 := p.edge(g).Twin
	if p.edge(h2).Next != g2 {
		return false
	}
	for _, f := range []FaceID{p.edge(h).Face, p.edge(h2).Face} {
		if f != NoFace && len(p.faceEdges(f)) <= 3 {
			return false
		}
	}

	p.link(g, p.edge(h).Next)
	p.link(h2, p.edge(g2).Next)
	p.setTwins(g, h2)

	if f := p.edge(g).Face; f != NoFace && p.face(f).Edge == h {
		p.face(f).Edge = g
	}
	if f := p.edge(h2).Face; f != NoFace && p.face(f).Edge == g2 {
		p.face(f).Edge = h2
	}
	p.halfEdges.Free(h)
	p.halfEdges.Free(g2)
	p.vertices.Free(v)
	return true
}

// relinkVertices points every vertex at one of its outgoing half-edges and
// frees vertices which have none.
func (p *Polyhedron) relinkVertices() {
	for _, v := range p.vertices.IDs() {
		p.vert(v).Edge = NoHalfEdge
	}
	for _, h := range p.halfEdges.IDs() {
		p.vert(p.origin(h)).Edge = h
	}
	for _, v := range p.vertices.IDs() {
		if p.vert(v).Edge == NoHalfEdge {
			p.vertices.Free(v)
		}
	}
}

func (p *Polyhedron) updateBounds() {
	ids := p.vertices.IDs()
	if len(ids) == 0 {
		p.min, p.max = model3d.Origin, model3d.Origin
		return
	}
	p.min = p.position(ids[0])
	p.max = p.min
	for _, v := range ids[1:] {
		pos := p.position(v)
		p.min = p.min.Min(pos)
		p.max = p.max.Max(pos)
	}
}

func (p *Polyhedron) clearMesh() {
	p.vertices.Clear()
	p.halfEdges.Clear()
	p.faces.Clear()
	p.min, p.max = model3d.Origin, model3d.Origin
}

// rebuild replaces the mesh with the given vertices and face loops.
//
// Loops are lists of indices into positions wound counter-clockwise when
// viewed from outside. An edge used by only one loop is given a face-less
// twin, which is how the Polygon shape is represented. With no loops and two
// positions, a single edge is created.
//
// Face planes are computed from the loops and may be overridden afterwards.
func (p *Polyhedron) rebuild(positions []model3d.Coord3D, loops [][]int) []FaceID {
	p.clearMesh()
	vids := make([]VertexID, len(positions))
	for i, pos := range positions {
		vids[i] = p.newVertex(pos)
	}

	if len(loops) == 0 {
		if len(vids) == 2 {
			h1 := p.newHalfEdge(vids[0], NoFace)
			h2 := p.newHalfEdge(vids[1], NoFace)
			p.setTwins(h1, h2)
			p.link(h1, h2)
			p.link(h2, h1)
			p.vert(vids[0]).Edge = h1
			p.vert(vids[1]).Edge = h2
		} else if len(vids) > 2 {
			panic("cannot rebuild more than two vertices without faces")
		}
		p.updateBounds()
		return nil
	}

	type edgeKey [2]VertexID
	edgeMap := map[edgeKey]HalfEdgeID{}
	faceIDs := make([]FaceID, len(loops))
	var ordered []HalfEdgeID
	for i, loop := range loops {
		f := p.faces.Alloc(face{Edge: NoHalfEdge})
		faceIDs[i] = f
		hs := make([]HalfEdgeID, len(loop))
		for j, idx := range loop {
			hs[j] = p.newHalfEdge(vids[idx], f)
			p.vert(vids[idx]).Edge = hs[j]
		}
		for j, h := range hs {
			p.link(h, hs[(j+1)%len(hs)])
			key := edgeKey{vids[loop[j]], vids[loop[(j+1)%len(loop)]]}
			if _, ok := edgeMap[key]; ok {
				panic("duplicate directed edge in face loops")
			}
			edgeMap[key] = h
		}
		ordered = append(ordered, hs...)
		p.face(f).Edge = hs[0]
		positions := p.facePositions(f)
		if plane, ok := newellPlane(p.tol, positions); ok {
			p.face(f).Plane = plane
		}
	}

	var boundary []HalfEdgeID
	for _, h := range ordered {
		if p.edge(h).Twin != NoHalfEdge {
			continue
		}
		key := edgeKey{p.origin(h), p.origin(p.edge(h).Next)}
		if t, ok := edgeMap[edgeKey{key[1], key[0]}]; ok {
			p.setTwins(h, t)
		} else {
			t := p.newHalfEdge(key[1], NoFace)
			p.setTwins(h, t)
			boundary = append(boundary, t)
		}
	}
	for _, t := range boundary {
		// The boundary runs opposite to the face loop.
		h := p.edge(t).Twin
		next := p.edge(p.edge(h).Prev).Twin
		if p.edge(next).Face != NoFace {
			panic("boundary of open mesh is not a single loop")
		}
		p.link(t, next)
	}

	p.updateBounds()
	return faceIDs
}

// newellPlane fits a plane to a polygon loop using Newell's method, which is
// stable for nearly degenerate and slightly non-planar loops.
func newellPlane(t Tolerance, loop []model3d.Coord3D) (Plane, bool) {
	var center model3d.Coord3D
	for _, c := range loop {
		center = center.Add(c)
	}
	center = center.Scale(1 / float64(len(loop)))

	var normal model3d.Coord3D
	for i, c := range loop {
		c = c.Sub(center)
		next := loop[(i+1)%len(loop)].Sub(center)
		normal.X += (c.Y - next.Y) * (c.Z + next.Z)
		normal.Y += (c.Z - next.Z) * (c.X + next.X)
		normal.Z += (c.X - next.X) * (c.Y + next.Y)
	}
	return t.PlaneNormal(center, normal)
}

// loopArea computes the area of a planar polygon loop.
func loopArea(loop []model3d.Coord3D) float64 {
	var sum model3d.Coord3D
	for i := 1; i+1 < len(loop); i++ {
		sum = sum.Add(loop[i].Sub(loop[0]).Cross(loop[i+1].Sub(loop[0])))
	}
	return sum.Norm() / 2
}
