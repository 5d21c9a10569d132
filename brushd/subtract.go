package brushd

import (
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"golang.org/x/exp/slices"
)

// Subtract computes convex pieces which together cover p minus other.
//
// The pieces do not overlap, and neighboring pieces that can be joined into a
// single convex piece are merged. Neither p nor other is modified.
//
// The result is empty if other does not reach into the interior of p, or if
// other covers p entirely. Both arguments must be solids, or else the result
// is empty.
func (p *Polyhedron) Subtract(other *Polyhedron) []*Polyhedron {
	res, _ := p.subtract(other)
	return res
}

// subtract is like Subtract, but also reports whether other overlaps the
// interior of p at all.
func (p *Polyhedron) subtract(other *Polyhedron) ([]*Polyhedron, bool) {
	if !p.IsPolyhedron() || !other.IsPolyhedron() {
		return nil, false
	}
	if !boundsOverlap(p, other) {
		return nil, false
	}

	remaining := p.Clone()
	var fragments []*Polyhedron
	for _, f := range other.faces.IDs() {
		plane := other.face(f).Plane
		outside := remaining.Clone()
		switch outside.Clip(plane.Flip(), nil) {
		case ClipUnchanged:
			// Everything left is outside of this face.
			return nil, false
		case ClipEmpty:
			continue
		}
		if outside.IsPolyhedron() {
			fragments = append(fragments, outside)
		}
		remaining.Clip(plane, nil)
		if !remaining.IsPolyhedron() {
			// The overlap is too thin to be represented.
			return nil, false
		}
	}

	fragments = mergeFragments(fragments)
	var res []*Polyhedron
	for _, frag := range fragments {
		if frag.Volume() > frag.epsilon()*frag.Area() {
			res = append(res, frag)
		}
	}
	return res, true
}

// SubtractAll subtracts every cutter from every brush.
//
// For each brush, the result contains the pieces left after all cutters have
// been removed. A brush which no cutter touches is returned as-is, and a brush
// which is removed entirely yields no pieces.
//
// Brushes are processed on up to concurrency Goroutines, or GOMAXPROCS if
// concurrency is 0.
func SubtractAll(brushes, cutters []*Polyhedron, concurrency int) [][]*Polyhedron {
	res := make([][]*Polyhedron, len(brushes))
	essentials.ConcurrentMap(concurrency, len(brushes), func(i int) {
		pieces := []*Polyhedron{brushes[i]}
		for _, cutter := range cutters {
			var next []*Polyhedron
			for _, piece := range pieces {
				if !piece.Intersects(cutter) {
					next = append(next, piece)
					continue
				}
				fragments, overlaps := piece.subtract(cutter)
				if !overlaps {
					next = append(next, piece)
				} else {
					next = append(next, fragments...)
				}
			}
			pieces = next
		}
		res[i] = pieces
	})
	return res
}

func boundsOverlap(p1, p2 *Polyhedron) bool {
	eps := math.Max(p1.epsilon(), p2.epsilon())
	min1, max1 := p1.min, p1.max
	min2, max2 := p2.min, p2.max
	return min1.X <= max2.X+eps && min2.X <= max1.X+eps &&
		min1.Y <= max2.Y+eps && min2.Y <= max1.Y+eps &&
		min1.Z <= max2.Z+eps && min2.Z <= max1.Z+eps
}

// mergeFragments repeatedly joins pairs of fragments whose union is convex.
func mergeFragments(fragments []*Polyhedron) []*Polyhedron {
	fragments = append([]*Polyhedron{}, fragments...)
	for {
		merged := false
	PairLoop:
		for i := 0; i < len(fragments); i++ {
			for j := i + 1; j < len(fragments); j++ {
				if m := mergeFragmentPair(fragments[i], fragments[j]); m != nil {
					fragments[i] = m
					fragments = slices.Delete(fragments, j, j+1)
					merged = true
					break PairLoop
				}
			}
		}
		if !merged {
			return fragments
		}
	}
}

// mergeFragmentPair joins two solids if they share a complete face and their
// union is convex, returning nil otherwise.
func mergeFragmentPair(p1, p2 *Polyhedron) *Polyhedron {
	eps := math.Max(p1.epsilon(), p2.epsilon())
	for _, f1 := range p1.faces.IDs() {
		plane1 := p1.face(f1).Plane
		loop1 := p1.facePositions(f1)
		for _, f2 := range p2.faces.IDs() {
			plane2 := p2.face(f2).Plane
			if !plane1.Equal(plane2.Flip(), eps) {
				continue
			}
			loop2 := p2.facePositions(f2)
			if !sameVertexSet(loop1, loop2, eps) {
				continue
			}
			if verticesAboveFaces(p1, f1, p2, eps) || verticesAboveFaces(p2, f2, p1, eps) {
				return nil
			}
			res := NewPolyhedron(p1.tol)
			res.buildHull(append(p1.VertexPositions(), p2.VertexPositions()...))
			return res
		}
	}
	return nil
}

// verticesAboveFaces checks if any vertex of other is above a face of p other
// than the shared face.
func verticesAboveFaces(p *Polyhedron, shared FaceID, other *Polyhedron, eps float64) bool {
	for _, f := range p.faces.IDs() {
		if f == shared {
			continue
		}
		plane := p.face(f).Plane
		for _, v := range other.vertices.IDs() {
			if plane.SignedDistance(other.position(v)) > eps {
				return true
			}
		}
	}
	return false
}

func sameVertexSet(l1, l2 []model3d.Coord3D, eps float64) bool {
	if len(l1) != len(l2) {
		return false
	}
	for _, c1 := range l1 {
		found := false
		for _, c2 := range l2 {
			if c1.Dist(c2) <= eps {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
