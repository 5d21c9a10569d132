package brushd

import (
	"math"
	"math/rand"

	"github.com/unixpickle/model3d/model3d"
)

const DefaultHitAndRunEpsilon = 1e-5

// A HitAndRunSampler samples points inside solid polyhedra using hit and run
// sampling.
type HitAndRunSampler struct {
	// Iterations is the number of monte carlo steps to take.
	// More iterations takes longer to run, but gives more uniform samples.
	Iterations int

	// Epsilon is a small fraction of each chord which is kept away from the
	// boundary. If zero, DefaultHitAndRunEpsilon is used.
	Epsilon float64
}

// Sample produces a random point inside the polyhedron, starting the sampling
// process at some initial point that must be within it.
//
// If p is not a solid, init is returned unchanged.
func (h *HitAndRunSampler) Sample(r *rand.Rand, p *Polyhedron, init model3d.Coord3D) model3d.Coord3D {
	if !p.IsPolyhedron() {
		return init
	}
	eps := h.Epsilon
	if eps == 0 {
		eps = DefaultHitAndRunEpsilon
	}
	planes := make([]Plane, 0, p.FaceCount())
	for _, f := range p.Faces() {
		planes = append(planes, p.FacePlane(f))
	}
	cur := init
	for i := 0; i < h.Iterations; i++ {
		d := sampleDirection(r)
		negT, posT := castPlanes(planes, cur, d)
		if math.IsInf(negT, 0) || math.IsInf(posT, 0) {
			panic("polyhedron is not closed or we ended up outside of it")
		}
		t := (r.Float64()*(1-2*eps)+eps)*(posT-negT) + negT
		cur = cur.Add(d.Scale(t))
	}
	return cur
}

func sampleDirection(r *rand.Rand) model3d.Coord3D {
	for {
		c := model3d.XYZ(r.NormFloat64(), r.NormFloat64(), r.NormFloat64())
		n := c.Norm()
		if n > 1e-5 {
			return c.Scale(1 / n)
		}
	}
}

// castPlanes shoots a ray in the positive and negative direction from a
// point below all of the planes, and returns the lowest magnitude scales for
// collisions with the planes in both directions.
//
// If there is no collision in a direction, it will have infinite magnitude.
func castPlanes(planes []Plane, origin, direction model3d.Coord3D) (negT, posT float64) {
	negT = math.Inf(-1)
	posT = math.Inf(1)
	for _, plane := range planes {
		t := plane.IntersectLine(Line{Point: origin, Direction: direction})
		if math.IsNaN(t) {
			continue
		}
		if t < 0 && t > negT {
			negT = t
		} else if t > 0 && t < posT {
			posT = t
		}
	}
	return
}
