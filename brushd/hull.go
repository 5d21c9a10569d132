package brushd

import (
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model2d"
	"github.com/unixpickle/model3d/model3d"
	"golang.org/x/exp/slices"
)

// AddPoint extends p to the convex hull of p and c.
//
// Returns false if the shape did not change, which happens when c is inside
// p or within epsilon of its boundary.
func (p *Polyhedron) AddPoint(c model3d.Coord3D) bool {
	res := p.addPoint(c)
	if res {
		p.checkInvariants()
	}
	return res
}

// AddPoints adds each point in order and returns the number of points which
// changed the shape.
func (p *Polyhedron) AddPoints(cs ...model3d.Coord3D) int {
	var n int
	for _, c := range cs {
		if p.AddPoint(c) {
			n++
		}
	}
	return n
}

// RemoveVertex removes the vertex closest to c, if there is one within
// epsilon, and replaces p with the hull of the remaining vertices.
func (p *Polyhedron) RemoveVertex(c model3d.Coord3D) bool {
	v := p.findVertex(c, p.epsilon(c))
	if v == NoVertex {
		return false
	}
	var remaining []model3d.Coord3D
	for _, other := range p.vertices.IDs() {
		if other != v {
			remaining = append(remaining, p.position(other))
		}
	}
	p.buildHull(remaining)
	return true
}

func (p *Polyhedron) addPoint(c model3d.Coord3D) bool {
	eps := p.epsilon(c)
	if !p.IsPolyhedron() {
		return p.addPointEps(c, eps)
	}
	if p.findVertex(c, eps) != NoVertex {
		return false
	}
	added, ok := p.insertHullPoint(c, eps)
	if ok {
		return added
	}
	p.buildHull(append(p.VertexPositions(), c))
	return p.findVertex(c, eps) != NoVertex
}

// addPointEps adds c without falling back to a rebuild of the hull.
func (p *Polyhedron) addPointEps(c model3d.Coord3D, eps float64) bool {
	if p.findVertex(c, eps) != NoVertex {
		return false
	}
	switch p.Shape() {
	case ShapeEmpty:
		p.rebuild([]model3d.Coord3D{c}, nil)
		return true
	case ShapePoint:
		p.rebuild([]model3d.Coord3D{p.VertexPositions()[0], c}, nil)
		return true
	case ShapeEdge:
		return p.addPointToEdge(c, eps)
	case ShapePolygon:
		return p.addPointToPolygon(c, eps)
	default:
		added, _ := p.insertHullPoint(c, eps)
		return added
	}
}

func (p *Polyhedron) addPointToEdge(c model3d.Coord3D, eps float64) bool {
	ends := p.VertexPositions()
	a, b := ends[0], ends[1]
	line := Line{Point: a, Direction: b.Sub(a)}
	if line.Distance(c) > eps {
		normal := b.Sub(a).Cross(c.Sub(a))
		plane, ok := p.tol.PlaneNormal(a, normal)
		if !ok {
			return false
		}
		faces := p.rebuild([]model3d.Coord3D{a, b, c}, [][]int{{0, 1, 2}})
		p.face(faces[0]).Plane = plane
		return true
	}

	dir := b.Sub(a).Normalize()
	t := dir.Dot(c.Sub(a))
	if t < -eps {
		p.rebuild([]model3d.Coord3D{c, b}, nil)
	} else if t > b.Dist(a)+eps {
		p.rebuild([]model3d.Coord3D{a, c}, nil)
	} else {
		return false
	}
	return true
}

func (p *Polyhedron) addPointToPolygon(c model3d.Coord3D, eps float64) bool {
	f := p.faces.IDs()[0]
	plane := p.face(f).Plane
	loop := p.facePositions(f)

	dist := plane.SignedDistance(c)
	if math.Abs(dist) <= eps {
		points := append(append([]model3d.Coord3D{}, loop...), c)
		hull := planarHull(points, plane, eps)
		if !slices.Contains(hull, len(loop)) {
			return false
		}
		p.setPolygon(points, hull, plane)
		return true
	}

	if len(loop) > 3 {
		// The vertices may be up to eps away from the plane, so the polygon
		// does not necessarily survive as a face of the solid.
		p.buildHull(append(loop, c))
		return p.findVertex(c, eps) != NoVertex
	}
	p.extrudePolygon(c)
	return true
}

// extrudePolygon replaces a polygon with the pyramid on it with apex c, which
// must not be in the polygon's plane.
func (p *Polyhedron) extrudePolygon(c model3d.Coord3D) {
	f := p.faces.IDs()[0]
	plane := p.face(f).Plane
	loop := p.facePositions(f)

	// The base faces away from c.
	base := loop
	basePlane := plane
	if plane.SignedDistance(c) > 0 {
		base = make([]model3d.Coord3D, len(loop))
		for i, x := range loop {
			base[len(loop)-(i+1)] = x
		}
		basePlane = plane.Flip()
	}
	n := len(base)
	positions := append(append([]model3d.Coord3D{}, base...), c)
	loops := [][]int{make([]int, n)}
	for i := 0; i < n; i++ {
		loops[0][i] = i
		loops = append(loops, []int{(i + 1) % n, i, n})
	}
	faces := p.rebuild(positions, loops)
	p.face(faces[0]).Plane = basePlane
}

// setPolygon replaces p with the polygon formed by the hull indices, which
// are counter-clockwise about the plane.
func (p *Polyhedron) setPolygon(points []model3d.Coord3D, hull []int, plane Plane) {
	switch len(hull) {
	case 0:
		p.clearMesh()
		return
	case 1:
		p.rebuild([]model3d.Coord3D{points[hull[0]]}, nil)
		return
	case 2:
		p.rebuild([]model3d.Coord3D{points[hull[0]], points[hull[1]]}, nil)
		return
	}
	positions := make([]model3d.Coord3D, len(hull))
	loop := make([]int, len(hull))
	for i, idx := range hull {
		positions[i] = points[idx]
		loop[i] = i
	}
	faces := p.rebuild(positions, [][]int{loop})
	p.face(faces[0]).Plane = plane
}

// planarHull computes the 2D convex hull of points projected onto the plane.
//
// The result lists indices of hull vertices counter-clockwise about the
// plane's normal, without colinear or duplicate points.
func planarHull(points []model3d.Coord3D, plane Plane, eps float64) []int {
	u, w := planeBasis(plane.Normal)
	flat := make([]model2d.Coord, len(points))
	for i, c := range points {
		flat[i] = model2d.XY(u.Dot(c), w.Dot(c))
	}
	return convexHull2D(flat, eps)
}

// planeBasis creates two unit vectors such that (u, w, normal) is a
// right-handed orthonormal basis.
func planeBasis(normal model3d.Coord3D) (u, w model3d.Coord3D) {
	axis := model3d.X(1)
	if math.Abs(normal.X) > 0.9 {
		axis = model3d.Y(1)
	}
	u = normal.Cross(axis).Normalize()
	w = normal.Cross(u)
	return
}

// convexHull2D computes a counter-clockwise convex hull with the monotone
// chain algorithm.
//
// Points within eps of the line through their neighbors are dropped.
func convexHull2D(points []model2d.Coord, eps float64) []int {
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	slices.SortFunc(indices, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	leftTurn := func(i, j, k int) bool {
		a, b, c := points[i], points[j], points[k]
		base := c.Sub(a)
		length := base.Norm()
		if length <= eps {
			return false
		}
		ab := b.Sub(a)
		// The cross product is the distance of b from the line ac, times
		// the length of ac.
		cross := ab.X*base.Y - ab.Y*base.X
		return cross > eps*length
	}
	chain := func(order []int) []int {
		var res []int
		for _, idx := range order {
			for len(res) >= 2 && !leftTurn(res[len(res)-2], res[len(res)-1], idx) {
				res = res[:len(res)-1]
			}
			if len(res) == 1 && points[res[0]].Dist(points[idx]) <= eps {
				continue
			}
			res = append(res, idx)
		}
		return res
	}

	lower := chain(indices)
	reversed := make([]int, len(indices))
	for i, idx := range indices {
		reversed[len(indices)-(i+1)] = idx
	}
	upper := chain(reversed)

	if len(lower) < 2 || len(upper) < 2 {
		return lower
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) == 2 && points[hull[0]].Dist(points[hull[1]]) <= eps {
		return hull[:1]
	}
	return hull
}

// insertHullPoint adds c to a polyhedron by replacing the faces that can see
// it with a fan of triangles around it.
//
// The second return value is false if rounding errors made the update
// inconsistent, in which case p is left unchanged.
func (p *Polyhedron) insertHullPoint(c model3d.Coord3D, eps float64) (added, ok bool) {
	faces := p.faces.IDs()
	dists := make(map[FaceID]float64, len(faces))
	best := NoFace
	bestDist := eps
	for _, f := range faces {
		d := p.face(f).Plane.SignedDistance(c)
		dists[f] = d
		if d > bestDist {
			best = f
			bestDist = d
		}
	}
	if best == NoFace {
		return false, true
	}

	// Faces whose planes pass within eps of c are replaced along with the
	// visible ones, so that the new faces never fold back onto a face in
	// the same plane.
	visible := map[FaceID]bool{best: true}
	queue := []FaceID{best}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, h := range p.faceEdges(f) {
			g := p.twinFace(h)
			if !visible[g] && dists[g] > -eps {
				visible[g] = true
				queue = append(queue, g)
			}
		}
	}
	if len(visible) == len(faces) {
		return false, false
	}
	removed := make([]FaceID, 0, len(visible))
	for _, f := range faces {
		if visible[f] {
			removed = append(removed, f)
		}
	}

	horizon, ok := p.findHorizon(removed, visible)
	if !ok {
		return false, false
	}
	backup := p.Clone()
	fresh, dead, ok := p.replaceVisibleFaces(c, removed, horizon)
	if ok {
		p.mergeCoplanarFaces(fresh, eps, nil)
		ok = p.insertionConsistent(c, fresh, dead, eps)
	}
	if !ok {
		*p = *backup
		return false, false
	}
	return true, true
}

// findHorizon finds the kept half-edges across from the removed faces, in
// order around the boundary of the removed region.
//
// Fails if the region is not bounded by a single simple loop.
func (p *Polyhedron) findHorizon(removed []FaceID, visible map[FaceID]bool) ([]HalfEdgeID, bool) {
	byOrigin := map[VertexID]HalfEdgeID{}
	var first HalfEdgeID = NoHalfEdge
	for _, f := range removed {
		for _, h := range p.faceEdges(f) {
			t := p.edge(h).Twin
			if visible[p.edge(t).Face] {
				continue
			}
			o := p.origin(t)
			if _, ok := byOrigin[o]; ok {
				return nil, false
			}
			byOrigin[o] = t
			if first == NoHalfEdge || t < first {
				first = t
			}
		}
	}
	if len(byOrigin) < 3 {
		return nil, false
	}
	// The horizon half-edges run backwards along the removed boundary, so
	// each one is followed by the one starting at its destination.
	res := []HalfEdgeID{first}
	for {
		next, ok := byOrigin[p.dest(res[len(res)-1])]
		if !ok {
			return nil, false
		}
		if next == first {
			break
		}
		res = append(res, next)
		if len(res) > len(byOrigin) {
			return nil, false
		}
	}
	if len(res) != len(byOrigin) {
		return nil, false
	}
	return res, true
}

// replaceVisibleFaces deletes the removed faces and connects c to every
// horizon edge with a new triangle.
//
// Returns the new faces and the positions of the deleted vertices.
func (p *Polyhedron) replaceVisibleFaces(c model3d.Coord3D, removed []FaceID,
	horizon []HalfEdgeID) (fresh []FaceID, dead []model3d.Coord3D, ok bool) {
	onHorizon := map[VertexID]bool{}
	for _, h := range horizon {
		onHorizon[p.origin(h)] = true
	}

	var deadVertices []VertexID
	for _, f := range removed {
		for _, h := range p.faceEdges(f) {
			if v := p.origin(h); !onHorizon[v] {
				onHorizon[v] = true
				deadVertices = append(deadVertices, v)
			}
		}
	}
	for _, f := range removed {
		for _, h := range p.faceEdges(f) {
			p.halfEdges.Free(h)
		}
		p.faces.Free(f)
	}
	for _, v := range deadVertices {
		dead = append(dead, p.position(v))
		p.vertices.Free(v)
	}

	apex := p.newVertex(c)
	n := len(horizon)
	fresh = make([]FaceID, n)
	toApex := make([]HalfEdgeID, n)
	fromApex := make([]HalfEdgeID, n)
	for i, h := range horizon {
		u := p.origin(h)
		v := p.origin(p.edge(h).Next)
		f := p.faces.Alloc(face{Edge: NoHalfEdge})
		a := p.newHalfEdge(v, f)
		b := p.newHalfEdge(u, f)
		d := p.newHalfEdge(apex, f)
		p.link(a, b)
		p.link(b, d)
		p.link(d, a)
		p.setTwins(a, h)
		p.vert(v).Edge = a
		p.face(f).Edge = a

		uPos, vPos := p.position(u), p.position(v)
		plane, planeOK := p.tol.PlaneNormal(vPos, uPos.Sub(vPos).Cross(c.Sub(vPos)))
		if !planeOK {
			return nil, nil, false
		}
		p.face(f).Plane = plane

		fresh[i] = f
		toApex[i] = b
		fromApex[i] = d
	}
	for i := range horizon {
		p.setTwins(fromApex[i], toApex[(i+1)%n])
	}
	p.vert(apex).Edge = fromApex[0]
	p.updateBounds()
	return fresh, dead, true
}

// insertionConsistent checks the faces created around c, and makes sure that
// c and the deleted vertices are inside the hull.
func (p *Polyhedron) insertionConsistent(c model3d.Coord3D, fresh []FaceID,
	dead []model3d.Coord3D, eps float64) bool {
	for _, f := range fresh {
		if p.faces.Alive(f) && p.checkFace(f, eps) != nil {
			return false
		}
	}
	for _, f := range p.faces.IDs() {
		plane := p.face(f).Plane
		if plane.SignedDistance(c) > eps {
			return false
		}
		for _, x := range dead {
			if plane.SignedDistance(x) > eps {
				return false
			}
		}
	}
	return true
}

// buildHull replaces p with the convex hull of the points.
//
// The hull is seeded with the largest simplex found among the points, after
// which the point farthest outside the current hull is inserted until every
// point is within epsilon. The result does not depend on the order of the
// points.
func (p *Polyhedron) buildHull(points []model3d.Coord3D) {
	p.clearMesh()
	if len(points) == 0 {
		return
	}
	points = append([]model3d.Coord3D{}, points...)
	slices.SortFunc(points, coordLess)
	min, max := points[0], points[0]
	for _, c := range points[1:] {
		min = min.Min(c)
		max = max.Max(c)
	}
	eps := p.tol.BoundsEpsilon(min, max)

	seed := p.hullSeed(points, eps)
	for _, i := range seed[:essentials.MinInt(len(seed), 3)] {
		p.addPointEps(points[i], eps)
	}
	if len(seed) == 4 {
		p.extrudePolygon(points[seed[3]])
	} else {
		for _, c := range points {
			p.addPointEps(c, eps)
		}
		return
	}

	remaining := make([]model3d.Coord3D, 0, len(points))
	for i, c := range points {
		if !slices.Contains(seed, i) {
			remaining = append(remaining, c)
		}
	}
	for len(remaining) > 0 {
		outside := remaining[:0]
		best := -1
		bestDist := eps
		for _, c := range remaining {
			d := p.maxFaceDistance(c)
			if d <= eps {
				continue
			}
			if d > bestDist {
				best = len(outside)
				bestDist = d
			}
			outside = append(outside, c)
		}
		if best == -1 {
			break
		}
		c := outside[best]
		remaining = slices.Delete(outside, best, best+1)
		if p.findVertex(c, eps) == NoVertex {
			// A point which cannot be inserted consistently is dropped.
			p.insertHullPoint(c, eps)
		}
	}
}

// hullSeed finds the indices of up to four points spanning the largest
// simplex, with fewer indices if the points are within eps of a plane, a line
// or a single point.
func (p *Polyhedron) hullSeed(points []model3d.Coord3D, eps float64) []int {
	a := points[0]
	b := farthestPoint(points, a.Dist)
	if points[b].Dist(a) <= eps {
		return []int{0}
	}
	line := Line{Point: a, Direction: points[b].Sub(a)}
	c := farthestPoint(points, line.Distance)
	if line.Distance(points[c]) <= eps {
		return []int{0, b}
	}
	plane, ok := p.tol.PlaneNormal(a, points[b].Sub(a).Cross(points[c].Sub(a)))
	if !ok {
		return []int{0, b}
	}
	d := farthestPoint(points, func(x model3d.Coord3D) float64 {
		return math.Abs(plane.SignedDistance(x))
	})
	if math.Abs(plane.SignedDistance(points[d])) <= eps {
		return []int{0, b, c}
	}
	return []int{0, b, c, d}
}

func farthestPoint(points []model3d.Coord3D, dist func(model3d.Coord3D) float64) int {
	best := 0
	bestDist := dist(points[0])
	for i, c := range points[1:] {
		if d := dist(c); d > bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}

func (p *Polyhedron) maxFaceDistance(c model3d.Coord3D) float64 {
	res := math.Inf(-1)
	for _, f := range p.faces.IDs() {
		res = math.Max(res, p.face(f).Plane.SignedDistance(c))
	}
	return res
}

func coordLess(a, b model3d.Coord3D) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
