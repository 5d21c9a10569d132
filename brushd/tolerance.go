package brushd

import (
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// DefaultTolerance is used by constructors which are not given an explicit
// Tolerance.
var DefaultTolerance = Tolerance{
	Relative: 1e-9,
	Absolute: 1e-12,
	Angle:    1e-9,
}

// A Tolerance configures the floating-point comparisons made by geometric
// operations.
//
// Distances are compared against an epsilon derived from the magnitude of the
// operands, so that coordinates near the origin and coordinates far from it
// are treated with the same relative precision.
type Tolerance struct {
	// Relative is multiplied by the scale of the operands (the largest
	// coordinate magnitude or extent involved) to get a distance epsilon.
	Relative float64

	// Absolute is a lower bound on the distance epsilon.
	Absolute float64

	// Angle is the smallest sine of an angle between two directions which
	// is not treated as zero.
	Angle float64
}

// Epsilon computes the distance epsilon for operands of the given scale.
func (t Tolerance) Epsilon(scale float64) float64 {
	return math.Max(t.Relative*scale, t.Absolute)
}

// BoundsEpsilon computes the distance epsilon for a bounding box, optionally
// extended to include extra coordinates.
func (t Tolerance) BoundsEpsilon(min, max model3d.Coord3D, extra ...model3d.Coord3D) float64 {
	scale := boundsScale(min, max)
	for _, c := range extra {
		scale = math.Max(scale, maxAbs(c))
	}
	return t.Epsilon(scale)
}

func boundsScale(min, max model3d.Coord3D) float64 {
	return math.Max(math.Max(maxAbs(min), maxAbs(max)), max.Sub(min).MaxCoord())
}

func maxAbs(c model3d.Coord3D) float64 {
	return math.Max(math.Abs(c.X), math.Max(math.Abs(c.Y), math.Abs(c.Z)))
}
