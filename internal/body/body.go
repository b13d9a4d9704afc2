package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/shape"
)

// ID identifies a body within one World. IDs are never reused.
type ID uint64

var ErrInvalidBody = errors.New("body: invalid body parameters")

// ParamError reports a rejected body parameter.
type ParamError struct {
	Field string
	Value float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("body: invalid %s %v", e.Field, e.Value)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidBody
}

const (
	DefaultRestitution = 0.2
	DefaultFriction    = 0.5
)

// Options configures a body at creation. The zero value is a dynamic,
// collidable body with perfectly inelastic, frictionless material.
type Options struct {
	Static           bool
	Restitution      float64
	Friction         float64
	IgnoreGravity    bool
	DisableCollision bool
	LinearDamping    float64
	AngularDamping   float64
	LinearVelocity   mgl64.Vec3
	AngularVelocity  mgl64.Vec3
}

func DefaultOptions() Options {
	return Options{
		Restitution: DefaultRestitution,
		Friction:    DefaultFriction,
	}
}

// RigidBody holds the dynamic state of one body. Pose refers to the shape
// frame; velocities refer to the center of mass.
type RigidBody struct {
	id    ID
	shape *shape.Shape

	mass            float64
	invMass         float64
	inertia         mgl64.Mat3
	invInertia      mgl64.Mat3
	localCOM        mgl64.Vec3
	pose            Pose
	linearVelocity  mgl64.Vec3
	angularVelocity mgl64.Vec3
	force           mgl64.Vec3
	torque          mgl64.Vec3

	restitution    float64
	friction       float64
	linearDamping  float64
	angularDamping float64
	static         bool
	ignoreGravity  bool
	collidable     bool

	sleeping  bool
	calmSteps int
}

// New builds a body. Static bodies ignore density and get zero inverse mass.
func New(id ID, s *shape.Shape, pose Pose, density float64, opts Options) (*RigidBody, error) {
	if s == nil {
		return nil, fmt.Errorf("body: nil shape: %w", ErrInvalidBody)
	}
	if !opts.Static && (!(density > 0) || math.IsInf(density, 0)) {
		return nil, &ParamError{Field: "density", Value: density}
	}
	if opts.Restitution < 0 || opts.Restitution > 1 || math.IsNaN(opts.Restitution) {
		return nil, &ParamError{Field: "restitution", Value: opts.Restitution}
	}
	if opts.Friction < 0 || math.IsNaN(opts.Friction) || math.IsInf(opts.Friction, 0) {
		return nil, &ParamError{Field: "friction", Value: opts.Friction}
	}
	if opts.LinearDamping < 0 || opts.AngularDamping < 0 {
		return nil, &ParamError{Field: "damping", Value: math.Min(opts.LinearDamping, opts.AngularDamping)}
	}
	if !finite(pose.Position) || pose.Orientation.Len() < 1e-12 {
		return nil, fmt.Errorf("body: invalid pose %v: %w", pose, ErrInvalidBody)
	}

	b := &RigidBody{
		id:             id,
		shape:          s,
		pose:           Pose{Position: pose.Position, Orientation: pose.Orientation.Normalize()},
		restitution:    opts.Restitution,
		friction:       opts.Friction,
		linearDamping:  opts.LinearDamping,
		angularDamping: opts.AngularDamping,
		static:         opts.Static,
		ignoreGravity:  opts.IgnoreGravity,
		collidable:     !opts.DisableCollision,
	}

	mass, inertia, com := s.MassProperties(density)
	b.localCOM = com
	if !opts.Static {
		if !(mass > 0) {
			return nil, &ParamError{Field: "mass", Value: mass}
		}
		inv := inertia.Inv()
		if inv == (mgl64.Mat3{}) {
			return nil, fmt.Errorf("body: singular inertia tensor: %w", ErrInvalidBody)
		}
		b.mass = mass
		b.invMass = 1 / mass
		b.inertia = inertia
		b.invInertia = inv
		b.linearVelocity = opts.LinearVelocity
		b.angularVelocity = opts.AngularVelocity
	}
	return b, nil
}

func (b *RigidBody) ID() ID { return b.id }
func (b *RigidBody) Shape() *shape.Shape { return b.shape }
func (b *RigidBody) Mass() float64 { return b.mass }
func (b *RigidBody) InverseMass() float64 { return b.invMass }
func (b *RigidBody) Inertia() mgl64.Mat3 { return b.inertia }
func (b *RigidBody) InverseInertia() mgl64.Mat3 { return b.invInertia }
func (b *RigidBody) LocalCenterOfMass() mgl64.Vec3 { return b.localCOM }
func (b *RigidBody) Pose() Pose { return b.pose }
func (b *RigidBody) LinearVelocity() mgl64.Vec3 { return b.linearVelocity }
func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }
func (b *RigidBody) Restitution() float64 { return b.restitution }
func (b *RigidBody) Friction() float64 { return b.friction }
func (b *RigidBody) IsStatic() bool { return b.static }
func (b *RigidBody) IsSleeping() bool { return b.sleeping }
func (b *RigidBody) IgnoresGravity() bool { return b.ignoreGravity }
func (b *RigidBody) Collidable() bool { return b.collidable }
func (b *RigidBody) LinearDamping() float64 { return b.linearDamping }
func (b *RigidBody) AngularDamping() float64 { return b.angularDamping }
func (b *RigidBody) AccumulatedForce() mgl64.Vec3 { return b.force }
func (b *RigidBody) AccumulatedTorque() mgl64.Vec3 { return b.torque }

// Awake reports whether the body takes part in integration and solving.
func (b *RigidBody) Awake() bool {
	return !b.static && !b.sleeping
}

func (b *RigidBody) CenterOfMass() mgl64.Vec3 {
	return b.pose.Position.Add(b.pose.Orientation.Rotate(b.localCOM))
}

// InverseInertiaWorld returns R * I^-1 * R^T.
func (b *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	r := b.pose.Orientation.Mat4().Mat3()
	return r.Mul3(b.invInertia).Mul3(r.Transpose())
}

// EffectiveInverseMass is zero for bodies the solver must treat as immovable.
func (b *RigidBody) EffectiveInverseMass() float64 {
	if !b.Awake() {
		return 0
	}
	return b.invMass
}

func (b *RigidBody) EffectiveInverseInertiaWorld() mgl64.Mat3 {
	if !b.Awake() {
		return mgl64.Mat3{}
	}
	return b.InverseInertiaWorld()
}

// VelocityAt returns the velocity of the material point at world position p.
func (b *RigidBody) VelocityAt(p mgl64.Vec3) mgl64.Vec3 {
	return b.linearVelocity.Add(b.angularVelocity.Cross(p.Sub(b.CenterOfMass())))
}

// ApplyForce accumulates a force acting at world point until the next step.
func (b *RigidBody) ApplyForce(force, point mgl64.Vec3) {
	if b.static {
		return
	}
	b.Wake()
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(point.Sub(b.CenterOfMass()).Cross(force))
}

// ApplyTorque accumulates a pure torque until the next step.
func (b *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	if b.static {
		return
	}
	b.Wake()
	b.torque = b.torque.Add(torque)
}

// ApplyImpulse changes velocity immediately.
func (b *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	if b.static {
		return
	}
	b.Wake()
	b.applyImpulse(impulse, point.Sub(b.CenterOfMass()))
}

// ApplyContactImpulse applies impulse at offset r from the center of mass
// without touching the sleep state. No-op for static and sleeping bodies.
func (b *RigidBody) ApplyContactImpulse(impulse, r mgl64.Vec3) {
	if !b.Awake() {
		return
	}
	b.applyImpulse(impulse, r)
}

func (b *RigidBody) applyImpulse(impulse, r mgl64.Vec3) {
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	b.angularVelocity = b.angularVelocity.Add(b.InverseInertiaWorld().Mul3x1(r.Cross(impulse)))
}

func (b *RigidBody) ClearForces() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

func (b *RigidBody) SetPose(p Pose) {
	b.pose = Pose{Position: p.Position, Orientation: p.Orientation.Normalize()}
	if !b.static {
		b.Wake()
	}
}

func (b *RigidBody) SetLinearVelocity(v mgl64.Vec3) {
	if b.static {
		return
	}
	b.Wake()
	b.linearVelocity = v
}

func (b *RigidBody) SetAngularVelocity(w mgl64.Vec3) {
	if b.static {
		return
	}
	b.Wake()
	b.angularVelocity = w
}

// SetVelocities writes solver output without waking the body.
func (b *RigidBody) SetVelocities(linear, angular mgl64.Vec3) {
	if !b.Awake() {
		return
	}
	b.linearVelocity = linear
	b.angularVelocity = angular
}

// SetCenterOfMassPose moves the body so its center of mass sits at com with
// orientation q.
func (b *RigidBody) SetCenterOfMassPose(com mgl64.Vec3, q mgl64.Quat) {
	q = q.Normalize()
	b.pose = Pose{Position: com.Sub(q.Rotate(b.localCOM)), Orientation: q}
}

// PredictPose extrapolates the pose by dt using the current velocities only.
func (b *RigidBody) PredictPose(dt float64) Pose {
	if !b.Awake() {
		return b.pose
	}
	com := b.CenterOfMass().Add(b.linearVelocity.Mul(dt))
	q := IntegrateOrientation(b.pose.Orientation, b.angularVelocity, dt)
	return Pose{Position: com.Sub(q.Rotate(b.localCOM)), Orientation: q}
}

// IntegrateOrientation returns normalize(q + 0.5*dt*w*q).
func IntegrateOrientation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	spin := mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}

// MotionEnergy is the mass-normalized kinetic energy used for sleep decisions.
func (b *RigidBody) MotionEnergy() float64 {
	return 0.5 * (b.linearVelocity.Dot(b.linearVelocity) + b.angularVelocity.Dot(b.angularVelocity))
}

func (b *RigidBody) KineticEnergy() float64 {
	if b.static {
		return 0
	}
	lin := 0.5 * b.mass * b.linearVelocity.Dot(b.linearVelocity)
	iw := b.pose.Orientation.Mat4().Mat3()
	world := iw.Mul3(b.inertia).Mul3(iw.Transpose())
	rot := 0.5 * b.angularVelocity.Dot(world.Mul3x1(b.angularVelocity))
	return lin + rot
}

func (b *RigidBody) Momentum() mgl64.Vec3 {
	return b.linearVelocity.Mul(b.mass)
}

// Wake clears the sleep flag and restarts the calm counter.
func (b *RigidBody) Wake() {
	b.sleeping = false
	b.calmSteps = 0
}

// Sleep zeroes velocities and parks the body.
func (b *RigidBody) Sleep() {
	if b.static {
		return
	}
	b.sleeping = true
	b.linearVelocity = mgl64.Vec3{}
	b.angularVelocity = mgl64.Vec3{}
	b.ClearForces()
}

// UpdateCalm counts consecutive calls in which the motion energy stayed at
// or below threshold and returns the count. Motion restarts it at zero.
func (b *RigidBody) UpdateCalm(threshold float64) int {
	if !b.Awake() {
		return b.calmSteps
	}
	if b.MotionEnergy() > threshold {
		b.calmSteps = 0
	} else {
		b.calmSteps++
	}
	return b.calmSteps
}

// CalmSteps is the count kept by UpdateCalm.
func (b *RigidBody) CalmSteps() int { return b.calmSteps }

func finite(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}
