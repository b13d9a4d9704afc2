package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/world"
)

// Penetration is the deepest contact penetration seen.
type Penetration struct {
	name string
	max  float64
}

func NewPenetration() *Penetration {
	return &Penetration{name: "max_penetration"}
}

func (p *Penetration) Name() string { return p.name }

func (p *Penetration) Observe(_ *frame.Frame, s world.Stats) {
	p.max = math.Max(p.max, s.MaxPenetration)
}

func (p *Penetration) Value() float64 { return p.max }
func (p *Penetration) Reset() { p.max = 0 }

// Degenerate counts manifolds and solver rows that fell back to a
// degenerate path.
type Degenerate struct {
	name  string
	count int
}

func NewDegenerate() *Degenerate {
	return &Degenerate{name: "degenerate"}
}

func (d *Degenerate) Name() string { return d.name }

func (d *Degenerate) Observe(_ *frame.Frame, s world.Stats) {
	d.count += s.Narrow.Degenerate + s.Solver.Degenerate
}

func (d *Degenerate) Value() float64 { return float64(d.count) }
func (d *Degenerate) Reset() { d.count = 0 }

// SolverEffort is the mean of the largest accumulated normal impulse per
// step.
type SolverEffort struct {
	name    string
	sum     float64
	samples int
}

func NewSolverEffort() *SolverEffort {
	return &SolverEffort{name: "solver_effort"}
}

func (c *SolverEffort) Name() string { return c.name }

func (c *SolverEffort) Observe(_ *frame.Frame, s world.Stats) {
	c.sum += s.Solver.MaxNormalImpulse
	c.samples++
}

func (c *SolverEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *SolverEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
