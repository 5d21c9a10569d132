package brushd

import (
	"math"
	"sync"

	"github.com/unixpickle/model3d/model3d"
)

// A Collider implements model3d.Collider for a solid Polyhedron.
//
// Rays are intersected with the face planes directly. The polyhedron must not
// be modified while the Collider is in use.
type Collider struct {
	poly *Polyhedron

	lock         sync.RWMutex
	meshCollider model3d.Collider
}

func NewCollider(p *Polyhedron) *Collider {
	return &Collider{poly: p}
}

func (c *Collider) Min() model3d.Coord3D {
	return c.poly.Min()
}

func (c *Collider) Max() model3d.Coord3D {
	return c.poly.Max()
}

func (c *Collider) FirstRayCollision(r *model3d.Ray) (model3d.RayCollision, bool) {
	var res model3d.RayCollision
	var found bool
	c.RayCollisions(r, func(rc model3d.RayCollision) {
		if !found {
			res = rc
			found = true
		}
	})
	return res, found
}

func (c *Collider) RayCollisions(r *model3d.Ray, f func(model3d.RayCollision)) int {
	entry, exit, ok := c.poly.castRay(r)
	if !ok {
		return 0
	}
	var count int
	for _, rc := range []model3d.RayCollision{entry, exit} {
		if rc.Scale >= 0 {
			count++
			if f != nil {
				f(rc)
			}
		}
	}
	return count
}

func (c *Collider) SphereCollision(center model3d.Coord3D, r float64) bool {
	c.lock.RLock()
	collider := c.meshCollider
	c.lock.RUnlock()
	if collider == nil {
		c.lock.Lock()
		if c.meshCollider == nil {
			c.meshCollider = model3d.MeshToCollider(c.poly.Mesh())
		}
		collider = c.meshCollider
		c.lock.Unlock()
	}
	return c.poly.Contains(center) || collider.SphereCollision(center, r)
}

// castRay finds where the line of a ray enters and exits a solid.
//
// The scales of the collisions may be negative if the origin of the ray is
// inside the solid or past it.
func (p *Polyhedron) castRay(r *model3d.Ray) (entry, exit model3d.RayCollision, ok bool) {
	if !p.IsPolyhedron() {
		return
	}
	entry.Scale = math.Inf(-1)
	exit.Scale = math.Inf(1)
	eps := p.epsilon(r.Origin)
	for _, f := range p.faces.IDs() {
		plane := p.face(f).Plane
		dot := plane.Normal.Dot(r.Direction)
		if dot == 0 {
			if plane.SignedDistance(r.Origin) > eps {
				return
			}
			continue
		}
		t := plane.IntersectLine(Line{Point: r.Origin, Direction: r.Direction})
		if dot < 0 && t > entry.Scale {
			entry = model3d.RayCollision{Scale: t, Normal: plane.Normal}
		} else if dot > 0 && t < exit.Scale {
			exit = model3d.RayCollision{Scale: t, Normal: plane.Normal}
		}
	}
	if entry.Scale > exit.Scale || math.IsInf(entry.Scale, 0) || math.IsInf(exit.Scale, 0) {
		return
	}
	ok = true
	return
}
