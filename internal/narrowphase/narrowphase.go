// Package narrowphase computes contact manifolds between posed shapes.
//
// Normals always point from the first collider to the second and depths are
// non-negative. Configurations without a well-defined normal (coincident
// centers, flat simplices, non-converging EPA) still produce a manifold using
// the best available normal, flagged as Degenerate so callers can count them.
package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/shape"
)

// FeatureID identifies which pair of shape features produced a contact point,
// stable from step to step while the contact persists.
type FeatureID uint64

// Collider is a shape placed in the world.
type Collider struct {
	Shape    *shape.Shape
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Support returns the world-space point of c furthest along dir.
func (c Collider) Support(dir mgl64.Vec3) mgl64.Vec3 {
	local := c.Rotation.Conjugate().Rotate(dir)
	return c.toWorld(c.Shape.Support(local))
}

func (c Collider) toWorld(p mgl64.Vec3) mgl64.Vec3 {
	return c.Position.Add(c.Rotation.Rotate(p))
}

func (c Collider) toLocal(p mgl64.Vec3) mgl64.Vec3 {
	return c.Rotation.Conjugate().Rotate(p.Sub(c.Position))
}

// segment returns the capsule core in world space.
func (c Collider) segment() (mgl64.Vec3, mgl64.Vec3) {
	a, b := c.Shape.Segment()
	return c.toWorld(a), c.toWorld(b)
}

// Point is one contact point of a manifold.
type Point struct {
	Position mgl64.Vec3
	Depth    float64
	Feature  FeatureID
}

// Manifold is the contact set between two colliders.
type Manifold struct {
	Normal     mgl64.Vec3
	Points     []Point
	Degenerate bool
}

func (m Manifold) flip() Manifold {
	m.Normal = m.Normal.Mul(-1)
	return m
}

// MaxDepth returns the deepest penetration in the manifold.
func (m Manifold) MaxDepth() float64 {
	depth := 0.0
	for _, p := range m.Points {
		if p.Depth > depth {
			depth = p.Depth
		}
	}
	return depth
}

// Collide returns the contact manifold of a and b, or false when they do
// not touch.
func Collide(a, b Collider) (Manifold, bool) {
	ka, kb := a.Shape.Kind(), b.Shape.Kind()
	if ka > kb {
		m, ok := Collide(b, a)
		return m.flip(), ok
	}

	switch {
	case ka == shape.Sphere && kb == shape.Sphere:
		return sphereSphere(a, b)
	case ka == shape.Sphere && kb == shape.Capsule:
		return sphereCapsule(a, b)
	case ka == shape.Sphere:
		return sphereConvex(a, b)
	case ka == shape.Box && kb == shape.Box:
		return boxBox(a, b)
	case ka == shape.Box && kb == shape.Capsule:
		m, ok := capsuleConvex(b, a)
		return m.flip(), ok
	case ka == shape.Capsule && kb == shape.Capsule:
		return capsuleCapsule(a, b)
	case ka == shape.Capsule:
		return capsuleConvex(a, b)
	default:
		return polytopes(a, b)
	}
}

// Stats counts narrow phase outcomes over a batch of pairs.
type Stats struct {
	Tested     int
	Colliding  int
	Points     int
	Degenerate int
}

func (s *Stats) Record(m Manifold, hit bool) {
	s.Tested++
	if !hit {
		return
	}
	s.Colliding++
	s.Points += len(m.Points)
	if m.Degenerate {
		s.Degenerate++
	}
}

// fallbackNormal is used when no geometric normal can be derived.
func fallbackNormal(a, b Collider) mgl64.Vec3 {
	d := b.Position.Sub(a.Position)
	if l := d.Len(); l > 1e-9 {
		return d.Mul(1 / l)
	}
	return mgl64.Vec3{0, 1, 0}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
