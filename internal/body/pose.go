package body

import "github.com/go-gl/mathgl/mgl64"

// Pose places a shape frame in the world.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// At returns an unrotated pose at position.
func At(position mgl64.Vec3) Pose {
	return Pose{Position: position, Orientation: mgl64.QuatIdent()}
}

// Matrix returns the model matrix consumed by renderers.
func (p Pose) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(p.Position[0], p.Position[1], p.Position[2]).Mul4(p.Orientation.Mat4())
}

// Transform maps a point from the shape frame to world space.
func (p Pose) Transform(local mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(p.Orientation.Rotate(local))
}

// InverseTransform maps a world point into the shape frame.
func (p Pose) InverseTransform(world mgl64.Vec3) mgl64.Vec3 {
	return p.Orientation.Conjugate().Rotate(world.Sub(p.Position))
}
