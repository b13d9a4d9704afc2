package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/narrowphase"
)

// PointState tracks a contact point through one step.
type PointState int

const (
	StateNew PointState = iota
	StateWarmStarted
	StateResolved
)

func (s PointState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateWarmStarted:
		return "warm_started"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ContactPoint carries one point of a manifold plus its solver state.
type ContactPoint struct {
	Position mgl64.Vec3
	Depth    float64
	Feature  narrowphase.FeatureID

	// accumulated over iterations and carried across steps
	NormalImpulse  float64
	TangentImpulse mgl64.Vec3
	State          PointState

	rA, rB         mgl64.Vec3
	normalMass     float64
	tangentMass    [2]float64
	tangentImpulse [2]float64
	velocityTarget float64
	degenerate     bool
}

// Contact is the set of points between two bodies for one step. The
// normal points from A to B.
type Contact struct {
	A, B   *body.RigidBody
	Normal mgl64.Vec3
	Points []ContactPoint

	Friction    float64
	Restitution float64

	tangents [2]mgl64.Vec3
}

// NewContact converts a manifold into a contact with mixed material
// coefficients.
func NewContact(a, b *body.RigidBody, m narrowphase.Manifold) *Contact {
	c := &Contact{
		A:           a,
		B:           b,
		Normal:      m.Normal,
		Points:      make([]ContactPoint, len(m.Points)),
		Friction:    MixFriction(a.Friction(), b.Friction()),
		Restitution: MixRestitution(a.Restitution(), b.Restitution()),
	}
	for i, p := range m.Points {
		c.Points[i] = ContactPoint{Position: p.Position, Depth: p.Depth, Feature: p.Feature}
	}
	return c
}

// MixRestitution takes the bouncier of the two materials.
func MixRestitution(a, b float64) float64 {
	return math.Max(a, b)
}

// MixFriction is the geometric mean of the two coefficients.
func MixFriction(a, b float64) float64 {
	return math.Sqrt(a * b)
}

// Key returns the warm-start cache key of point i.
func (c *Contact) Key(i int) Key {
	return Key{A: c.A.ID(), B: c.B.ID(), Feature: c.Points[i].Feature}
}

// tangentBasis builds two unit vectors orthogonal to n and each other.
func tangentBasis(n mgl64.Vec3) [2]mgl64.Vec3 {
	var t1 mgl64.Vec3
	if math.Abs(n[0]) >= 0.57735 {
		t1 = mgl64.Vec3{n[1], -n[0], 0}
	} else {
		t1 = mgl64.Vec3{0, n[2], -n[1]}
	}
	t1 = t1.Normalize()
	return [2]mgl64.Vec3{t1, n.Cross(t1)}
}

func relativeVelocity(a, b *body.RigidBody, rA, rB mgl64.Vec3) mgl64.Vec3 {
	va := a.LinearVelocity().Add(a.AngularVelocity().Cross(rA))
	vb := b.LinearVelocity().Add(b.AngularVelocity().Cross(rB))
	return vb.Sub(va)
}

// effectiveMass returns 1/k along dir, or 0 when k is degenerate.
func effectiveMass(a, b *body.RigidBody, rA, rB, dir mgl64.Vec3, minMass float64) float64 {
	ra := rA.Cross(dir)
	rb := rB.Cross(dir)
	k := a.EffectiveInverseMass() + b.EffectiveInverseMass() +
		ra.Dot(a.EffectiveInverseInertiaWorld().Mul3x1(ra)) +
		rb.Dot(b.EffectiveInverseInertiaWorld().Mul3x1(rb))
	if !(k > minMass) || math.IsInf(k, 0) {
		return 0
	}
	return 1 / k
}

func applyPair(a, b *body.RigidBody, impulse, rA, rB mgl64.Vec3) {
	a.ApplyContactImpulse(impulse.Mul(-1), rA)
	b.ApplyContactImpulse(impulse, rB)
}
