package brushd

import (
	"fmt"
	"math"
	"strings"

	"github.com/unixpickle/model3d/model3d"
	"golang.org/x/exp/slices"
)

// Shape is the dimensional state of a Polyhedron.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapePoint
	ShapeEdge
	ShapePolygon
	ShapePolyhedron
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapePoint:
		return "point"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapePolyhedron:
		return "polyhedron"
	}
	return "unknown"
}

// A Polyhedron is a convex set of points stored as a half-edge mesh.
//
// Depending on how many affinely independent points it contains, a
// Polyhedron may be empty, a single point, a line segment, a planar convex
// polygon, or a closed convex solid. All of these shapes are queried through
// the same methods.
//
// A Polyhedron is not safe for concurrent mutation, but distinct Polyhedra
// share no state and may be used from different Goroutines.
type Polyhedron struct {
	tol Tolerance

	vertices  slotList[VertexID, vertex]
	halfEdges slotList[HalfEdgeID, halfEdge]
	faces     slotList[FaceID, face]

	min model3d.Coord3D
	max model3d.Coord3D
}

// NewPolyhedron creates an empty Polyhedron which uses the given tolerance
// for all of its operations.
func NewPolyhedron(tol Tolerance) *Polyhedron {
	return &Polyhedron{tol: tol}
}

// NewPolyhedronPoints creates the convex hull of the points using
// DefaultTolerance.
//
// Unlike AddPoints, the result does not depend on the order of the points.
func NewPolyhedronPoints(points ...model3d.Coord3D) *Polyhedron {
	res := NewPolyhedron(DefaultTolerance)
	res.buildHull(points)
	return res
}

// NewPolyhedronRect creates an axis-aligned box using DefaultTolerance.
//
// If the box is flat along some axes, a lower-dimensional shape is created.
func NewPolyhedronRect(min, max model3d.Coord3D) *Polyhedron {
	res := NewPolyhedron(DefaultTolerance)
	res.setRect(min, max)
	return res
}

func (p *Polyhedron) setRect(min, max model3d.Coord3D) {
	eps := p.tol.BoundsEpsilon(min, max)
	size := max.Sub(min)
	if size.X <= eps || size.Y <= eps || size.Z <= eps {
		p.clearMesh()
		p.AddPoints(
			min,
			model3d.XYZ(max.X, min.Y, min.Z),
			model3d.XYZ(min.X, max.Y, min.Z),
			model3d.XYZ(max.X, max.Y, min.Z),
			model3d.XYZ(min.X, min.Y, max.Z),
			model3d.XYZ(max.X, min.Y, max.Z),
			model3d.XYZ(min.X, max.Y, max.Z),
			max,
		)
		return
	}

	// Corner i has bit 0 set for max X, bit 1 for max Y, bit 2 for max Z.
	corners := make([]model3d.Coord3D, 8)
	for i := range corners {
		c := min
		if i&1 != 0 {
			c.X = max.X
		}
		if i&2 != 0 {
			c.Y = max.Y
		}
		if i&4 != 0 {
			c.Z = max.Z
		}
		corners[i] = c
	}
	loops := [][]int{
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
	}
	faces := p.rebuild(corners, loops)
	for i, f := range faces {
		var normal [3]float64
		axis := i / 2
		normal[axis] = 1
		bound := max.Array()[axis]
		if i%2 == 0 {
			normal[axis] = -1
			bound = -min.Array()[axis]
		}
		p.face(f).Plane = Plane{Normal: model3d.NewCoord3DArray(normal), Distance: bound}
	}
	p.checkInvariants()
}

// Tolerance gets the tolerance used by p's operations.
func (p *Polyhedron) Tolerance() Tolerance {
	return p.tol
}

// Clone creates a deep copy of p.
//
// Vertex, half-edge and face handles of p remain valid for the copy.
func (p *Polyhedron) Clone() *Polyhedron {
	return &Polyhedron{
		tol:       p.tol,
		vertices:  p.vertices.Clone(),
		halfEdges: p.halfEdges.Clone(),
		faces:     p.faces.Clone(),
		min:       p.min,
		max:       p.max,
	}
}

// epsilon computes the distance epsilon for an operation on p involving the
// extra coordinates.
func (p *Polyhedron) epsilon(extra ...model3d.Coord3D) float64 {
	if p.vertices.Len() == 0 {
		return p.tol.BoundsEpsilon(model3d.Origin, model3d.Origin, extra...)
	}
	return p.tol.BoundsEpsilon(p.min, p.max, extra...)
}

// Epsilon gets the distance epsilon which p uses for its own geometry.
func (p *Polyhedron) Epsilon() float64 {
	return p.epsilon()
}

func (p *Polyhedron) Shape() Shape {
	switch {
	case p.vertices.Len() == 0:
		return ShapeEmpty
	case p.vertices.Len() == 1:
		return ShapePoint
	case p.faces.Len() == 0:
		return ShapeEdge
	case p.faces.Len() == 1:
		return ShapePolygon
	default:
		return ShapePolyhedron
	}
}

func (p *Polyhedron) IsEmpty() bool {
	return p.Shape() == ShapeEmpty
}

func (p *Polyhedron) IsPoint() bool {
	return p.Shape() == ShapePoint
}

func (p *Polyhedron) IsEdge() bool {
	return p.Shape() == ShapeEdge
}

func (p *Polyhedron) IsPolygon() bool {
	return p.Shape() == ShapePolygon
}

func (p *Polyhedron) IsPolyhedron() bool {
	return p.Shape() == ShapePolyhedron
}

func (p *Polyhedron) VertexCount() int {
	return p.vertices.Len()
}

// EdgeCount counts the undirected edges of p.
func (p *Polyhedron) EdgeCount() int {
	return p.halfEdges.Len() / 2
}

func (p *Polyhedron) FaceCount() int {
	return p.faces.Len()
}

// Min gets the minimum corner of p's bounding box.
func (p *Polyhedron) Min() model3d.Coord3D {
	return p.min
}

// Max gets the maximum corner of p's bounding box.
func (p *Polyhedron) Max() model3d.Coord3D {
	return p.max
}

// Bounds gets p's bounding box.
func (p *Polyhedron) Bounds() *model3d.Rect {
	return &model3d.Rect{MinVal: p.min, MaxVal: p.max}
}

// Vertices lists the live vertex handles.
func (p *Polyhedron) Vertices() []VertexID {
	return p.vertices.IDs()
}

func (p *Polyhedron) VertexPosition(v VertexID) model3d.Coord3D {
	return p.position(v)
}

func (p *Polyhedron) VertexPositions() []model3d.Coord3D {
	ids := p.vertices.IDs()
	res := make([]model3d.Coord3D, len(ids))
	for i, v := range ids {
		res[i] = p.position(v)
	}
	return res
}

// Faces lists the live face handles.
func (p *Polyhedron) Faces() []FaceID {
	return p.faces.IDs()
}

// HasFaceID checks if a face handle refers to a live face.
func (p *Polyhedron) HasFaceID(f FaceID) bool {
	return p.faces.Alive(f)
}

// FaceLoop gets the vertex positions of a face, counter-clockwise when
// viewed from outside.
func (p *Polyhedron) FaceLoop(f FaceID) []model3d.Coord3D {
	return p.facePositions(f)
}

// FaceVertices gets the vertex handles of a face in loop order.
func (p *Polyhedron) FaceVertices(f FaceID) []VertexID {
	return p.faceVertexIDs(f)
}

// FacePlane gets the supporting plane of a face, whose normal points out of
// the polyhedron.
func (p *Polyhedron) FacePlane(f FaceID) Plane {
	return p.face(f).Plane
}

// FaceLoops gets the vertex loops of all faces, ordered by face handle.
func (p *Polyhedron) FaceLoops() [][]model3d.Coord3D {
	var res [][]model3d.Coord3D
	for _, f := range p.faces.IDs() {
		res = append(res, p.facePositions(f))
	}
	return res
}

// Edges lists every undirected edge as a pair of endpoints.
func (p *Polyhedron) Edges() [][2]model3d.Coord3D {
	var res [][2]model3d.Coord3D
	for _, h := range p.halfEdges.IDs() {
		if t := p.edge(h).Twin; h < t {
			res = append(res, [2]model3d.Coord3D{p.position(p.origin(h)), p.position(p.origin(t))})
		}
	}
	return res
}

// findVertex finds a vertex within eps of c.
func (p *Polyhedron) findVertex(c model3d.Coord3D, eps float64) VertexID {
	for _, v := range p.vertices.IDs() {
		if p.position(v).Dist(c) <= eps {
			return v
		}
	}
	return NoVertex
}

// HasVertex checks if some vertex is within epsilon of c.
func (p *Polyhedron) HasVertex(c model3d.Coord3D) bool {
	return p.findVertex(c, p.epsilon(c)) != NoVertex
}

// HasEdge checks if some edge connects vertices at a and b, in either
// direction.
func (p *Polyhedron) HasEdge(a, b model3d.Coord3D) bool {
	eps := p.epsilon(a, b)
	v := p.findVertex(a, eps)
	if v == NoVertex {
		return false
	}
	for _, h := range p.outgoing(v) {
		if p.position(p.dest(h)).Dist(b) <= eps {
			return true
		}
	}
	return false
}

// HasFace checks if some face has the given vertex loop, up to a cyclic
// rotation of the loop.
func (p *Polyhedron) HasFace(loop ...model3d.Coord3D) bool {
	if len(loop) == 0 {
		return false
	}
	eps := p.epsilon(loop...)
	for _, f := range p.faces.IDs() {
		if loopsEqual(p.facePositions(f), loop, eps) {
			return true
		}
	}
	return false
}

func loopsEqual(l1, l2 []model3d.Coord3D, eps float64) bool {
	if len(l1) != len(l2) {
		return false
	}
	for offset := range l1 {
		if l1[offset].Dist(l2[0]) > eps {
			continue
		}
		match := true
		for i, c := range l2 {
			if l1[(i+offset)%len(l1)].Dist(c) > eps {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Contains checks if c is inside or on the boundary of p.
func (p *Polyhedron) Contains(c model3d.Coord3D) bool {
	if !p.IsPolyhedron() {
		point := NewPolyhedron(p.tol)
		point.AddPoint(c)
		return p.Intersects(point)
	}
	eps := p.epsilon(c)
	for _, f := range p.faces.IDs() {
		if p.face(f).Plane.SignedDistance(c) > eps {
			return false
		}
	}
	return true
}

// Centroid computes the mean of p's vertices, which is inside p.
func (p *Polyhedron) Centroid() model3d.Coord3D {
	var sum model3d.Coord3D
	for _, c := range p.VertexPositions() {
		sum = sum.Add(c)
	}
	return sum.Scale(1 / math.Max(1, float64(p.vertices.Len())))
}

// Volume computes the volume enclosed by p, which is zero unless p is a
// Polyhedron.
func (p *Polyhedron) Volume() float64 {
	if !p.IsPolyhedron() {
		return 0
	}
	return p.Mesh().Volume()
}

// Area computes the total area of p's faces.
func (p *Polyhedron) Area() float64 {
	var res float64
	for _, f := range p.faces.IDs() {
		res += loopArea(p.facePositions(f))
	}
	return res
}

// Mesh triangulates the faces of p.
//
// Polygons produce a single-sided mesh, and lower-dimensional shapes produce
// an empty mesh.
func (p *Polyhedron) Mesh() *model3d.Mesh {
	res := model3d.NewMesh()
	for _, f := range p.faces.IDs() {
		loop := p.facePositions(f)
		for i := 1; i+1 < len(loop); i++ {
			res.Add(&model3d.Triangle{loop[0], loop[i], loop[i+1]})
		}
	}
	return res
}

// Polytope converts a Polyhedron to a system of linear constraints.
func (p *Polyhedron) Polytope() model3d.ConvexPolytope {
	var res model3d.ConvexPolytope
	for _, f := range p.faces.IDs() {
		plane := p.face(f).Plane
		res = append(res, &model3d.LinearConstraint{
			Normal: plane.Normal,
			Max:    plane.Distance,
		})
	}
	return res
}

// String produces a canonical description of p which does not depend on the
// order in which its vertices and faces were created.
func (p *Polyhedron) String() string {
	var loops []string
	for _, f := range p.faces.IDs() {
		loops = append(loops, canonicalLoop(p.facePositions(f)))
	}
	slices.Sort(loops)

	var verts []string
	for _, c := range p.VertexPositions() {
		verts = append(verts, formatCoord(c))
	}
	slices.Sort(verts)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d vertices, %d edges, %d faces\n", p.Shape(), p.VertexCount(),
		p.EdgeCount(), p.FaceCount())
	for _, v := range verts {
		fmt.Fprintf(&b, "vertex %s\n", v)
	}
	for _, l := range loops {
		fmt.Fprintf(&b, "face %s\n", l)
	}
	return b.String()
}

func formatCoord(c model3d.Coord3D) string {
	// Avoid printing negative zero so that equal dumps compare equal.
	fix := func(x float64) float64 {
		if x == 0 {
			return 0
		}
		return x
	}
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", fix(c.X), fix(c.Y), fix(c.Z))
}

// canonicalLoop formats a face loop starting from its smallest vertex.
func canonicalLoop(loop []model3d.Coord3D) string {
	strs := make([]string, len(loop))
	start := 0
	for i, c := range loop {
		strs[i] = formatCoord(c)
		if strs[i] < strs[start] {
			start = i
		}
	}
	rotated := append(append([]string{}, strs[start:]...), strs[:start]...)
	return strings.Join(rotated, " ")
}
