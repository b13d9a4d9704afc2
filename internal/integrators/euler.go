package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
)

// Integrator advances a body in two halves so the solver can run between
// the velocity and position updates.
type Integrator interface {
	Name() string
	IntegrateVelocity(b *body.RigidBody, gravity mgl64.Vec3, dt float64)
	IntegratePosition(b *body.RigidBody, dt float64)
}

// SymplecticEuler updates velocity from forces first and then position from
// the new velocity.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

func (e *SymplecticEuler) Name() string { return "symplectic_euler" }

// IntegrateVelocity consumes the accumulated force and torque. Static and
// sleeping bodies are skipped.
func (e *SymplecticEuler) IntegrateVelocity(b *body.RigidBody, gravity mgl64.Vec3, dt float64) {
	if !b.Awake() {
		b.ClearForces()
		return
	}

	accel := b.AccumulatedForce().Mul(b.InverseMass())
	if !b.IgnoresGravity() {
		accel = accel.Add(gravity)
	}
	v := b.LinearVelocity().Add(accel.Mul(dt))
	w := b.AngularVelocity().Add(b.InverseInertiaWorld().Mul3x1(b.AccumulatedTorque()).Mul(dt))

	if d := b.LinearDamping(); d > 0 {
		v = v.Mul(1 / (1 + dt*d))
	}
	if d := b.AngularDamping(); d > 0 {
		w = w.Mul(1 / (1 + dt*d))
	}

	b.SetVelocities(v, w)
	b.ClearForces()
}

// IntegratePosition moves the center of mass by v*dt and spins the
// orientation by w*dt, renormalizing the quaternion.
func (e *SymplecticEuler) IntegratePosition(b *body.RigidBody, dt float64) {
	if !b.Awake() {
		return
	}
	com := b.CenterOfMass().Add(b.LinearVelocity().Mul(dt))
	q := body.IntegrateOrientation(b.Pose().Orientation, b.AngularVelocity(), dt)
	b.SetCenterOfMassPose(com, q)
}
