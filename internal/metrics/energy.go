package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/world"
)

// Energy is the mean total energy over the run.
type Energy struct {
	name    string
	samples int
	total   float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *frame.Frame, _ world.Stats) {
	e.total += TotalEnergy(f)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of total energy from the
// first observation.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *frame.Frame, _ world.Stats) {
	energy := TotalEnergy(f)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	if e.initial != 0 {
		e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial)/math.Abs(e.initial))
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// MomentumDrift is the largest change of total linear momentum from the
// first observation. Gravity and static contacts change momentum, so it
// is only meaningful for free-flying scenes.
type MomentumDrift struct {
	name     string
	initial  mgl64.Vec3
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(f *frame.Frame, _ world.Stats) {
	p := Momentum(f)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	d := p.Sub(m.initial).Len()
	m.maxDrift = math.Max(m.maxDrift, d)
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = mgl64.Vec3{}
	m.maxDrift = 0
	m.samples = 0
}
