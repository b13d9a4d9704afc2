package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
)

// Joint is a bilateral constraint solved alongside contacts.
type Joint interface {
	Bodies() (*body.RigidBody, *body.RigidBody)
	// PreStep reports false when the constraint has no usable effective
	// mass this step; such joints apply no impulse.
	PreStep(dt float64, cfg Config) bool
	WarmStart()
	Solve()
}

func skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

func anchorVelocity(b *body.RigidBody, r mgl64.Vec3) mgl64.Vec3 {
	return b.LinearVelocity().Add(b.AngularVelocity().Cross(r))
}

// BallJoint pins a point of A to a point of B, leaving rotation free.
type BallJoint struct {
	A, B *body.RigidBody
	// anchors in each body's shape frame
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3

	rA, rB     mgl64.Vec3
	mass       mgl64.Mat3
	bias       mgl64.Vec3
	impulse    mgl64.Vec3
	degenerate bool
}

// NewBallJoint anchors both bodies at the world point anchor.
func NewBallJoint(a, b *body.RigidBody, anchor mgl64.Vec3) *BallJoint {
	return &BallJoint{
		A:            a,
		B:            b,
		LocalAnchorA: a.Pose().InverseTransform(anchor),
		LocalAnchorB: b.Pose().InverseTransform(anchor),
	}
}

func (j *BallJoint) Bodies() (*body.RigidBody, *body.RigidBody) { return j.A, j.B }

// Error is the world-space gap between the two anchors.
func (j *BallJoint) Error() mgl64.Vec3 {
	return j.B.Pose().Transform(j.LocalAnchorB).Sub(j.A.Pose().Transform(j.LocalAnchorA))
}

func (j *BallJoint) PreStep(dt float64, cfg Config) bool {
	pa := j.A.Pose().Transform(j.LocalAnchorA)
	pb := j.B.Pose().Transform(j.LocalAnchorB)
	j.rA = pa.Sub(j.A.CenterOfMass())
	j.rB = pb.Sub(j.B.CenterOfMass())

	sa, sb := skew(j.rA), skew(j.rB)
	k := mgl64.Ident3().Mul(j.A.EffectiveInverseMass() + j.B.EffectiveInverseMass())
	k = k.Add(sa.Mul3(j.A.EffectiveInverseInertiaWorld()).Mul3(sa.Transpose()))
	k = k.Add(sb.Mul3(j.B.EffectiveInverseInertiaWorld()).Mul3(sb.Transpose()))
	// k is positive semi-definite; compare det against its scale
	tr := k.Trace()
	if det := k.Det(); !(det > cfg.MinEffectiveMass*tr*tr*tr) || math.IsInf(det, 0) {
		j.mass = mgl64.Mat3{}
		j.impulse = mgl64.Vec3{}
		j.degenerate = true
		return false
	}
	j.degenerate = false
	j.mass = k.Inv()
	j.bias = pb.Sub(pa).Mul(-cfg.Baumgarte / dt)
	if !cfg.WarmStarting {
		j.impulse = mgl64.Vec3{}
	}
	return true
}

func (j *BallJoint) WarmStart() {
	if j.degenerate {
		return
	}
	applyPair(j.A, j.B, j.impulse, j.rA, j.rB)
}

func (j *BallJoint) Solve() {
	if j.degenerate {
		return
	}
	cdot := anchorVelocity(j.B, j.rB).Sub(anchorVelocity(j.A, j.rA))
	lambda := j.mass.Mul3x1(j.bias.Sub(cdot))
	j.impulse = j.impulse.Add(lambda)
	applyPair(j.A, j.B, lambda, j.rA, j.rB)
}

// DistanceJoint keeps two anchor points at a fixed distance.
type DistanceJoint struct {
	A, B         *body.RigidBody
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3
	Length       float64

	rA, rB  mgl64.Vec3
	axis    mgl64.Vec3
	mass    float64
	bias    float64
	impulse float64
}

// NewDistanceJoint links world points anchorA and anchorB at their current
// separation.
func NewDistanceJoint(a, b *body.RigidBody, anchorA, anchorB mgl64.Vec3) *DistanceJoint {
	return &DistanceJoint{
		A:            a,
		B:            b,
		LocalAnchorA: a.Pose().InverseTransform(anchorA),
		LocalAnchorB: b.Pose().InverseTransform(anchorB),
		Length:       anchorB.Sub(anchorA).Len(),
	}
}

func (j *DistanceJoint) Bodies() (*body.RigidBody, *body.RigidBody) { return j.A, j.B }

// Error is the current length minus the rest length.
func (j *DistanceJoint) Error() float64 {
	pa := j.A.Pose().Transform(j.LocalAnchorA)
	pb := j.B.Pose().Transform(j.LocalAnchorB)
	return pb.Sub(pa).Len() - j.Length
}

func (j *DistanceJoint) PreStep(dt float64, cfg Config) bool {
	pa := j.A.Pose().Transform(j.LocalAnchorA)
	pb := j.B.Pose().Transform(j.LocalAnchorB)
	j.rA = pa.Sub(j.A.CenterOfMass())
	j.rB = pb.Sub(j.B.CenterOfMass())

	d := pb.Sub(pa)
	l := d.Len()
	if l < 1e-9 {
		j.mass = 0
		return false
	}
	j.axis = d.Mul(1 / l)
	j.mass = effectiveMass(j.A, j.B, j.rA, j.rB, j.axis, cfg.MinEffectiveMass)
	j.bias = -cfg.Baumgarte / dt * (l - j.Length)
	if !cfg.WarmStarting {
		j.impulse = 0
	}
	return j.mass != 0
}

func (j *DistanceJoint) WarmStart() {
	if j.mass == 0 {
		return
	}
	applyPair(j.A, j.B, j.axis.Mul(j.impulse), j.rA, j.rB)
}

func (j *DistanceJoint) Solve() {
	if j.mass == 0 {
		return
	}
	cdot := anchorVelocity(j.B, j.rB).Sub(anchorVelocity(j.A, j.rA)).Dot(j.axis)
	lambda := j.mass * (j.bias - cdot)
	j.impulse += lambda
	applyPair(j.A, j.B, j.axis.Mul(lambda), j.rA, j.rB)
}
