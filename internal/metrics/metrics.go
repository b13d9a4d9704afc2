// Package metrics summarizes a run from the frames and step statistics the
// world publishes.
package metrics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/world"
)

// Metric folds per-step observations into one number.
type Metric interface {
	Name() string
	Observe(f *frame.Frame, s world.Stats)
	Value() float64
	Reset()
}

// Default returns the metrics recorded for every run.
func Default() []Metric {
	return []Metric{
		NewEnergy(),
		NewEnergyDrift(),
		NewMomentumDrift(),
		NewPenetration(),
		NewDegenerate(),
		NewSolverEffort(),
		NewStability(1e3),
		NewSleeping(),
	}
}

// TotalEnergy is kinetic plus gravitational potential energy of the
// dynamic bodies, with zero potential at the origin.
func TotalEnergy(f *frame.Frame) float64 {
	e := 0.0
	for _, b := range f.Bodies {
		if b.Static {
			continue
		}
		e += b.KineticEnergy - b.Mass*f.Gravity.Dot(b.Pose.Position)
	}
	return e
}

// Momentum is the total linear momentum of the dynamic bodies.
func Momentum(f *frame.Frame) mgl64.Vec3 {
	var p mgl64.Vec3
	for _, b := range f.Bodies {
		if !b.Static {
			p = p.Add(b.LinearVelocity.Mul(b.Mass))
		}
	}
	return p
}
