package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Bounce is one impact: the vertical velocity flips from falling to
// rising between two samples.
type Bounce struct {
	Time         float64
	Height       float64
	ImpactSpeed  float64
	ReboundSpeed float64
}

// Restitution is the measured rebound ratio of the impact.
func (b Bounce) Restitution() float64 {
	if b.ImpactSpeed == 0 {
		return 0
	}
	return b.ReboundSpeed / b.ImpactSpeed
}

// Bounces finds the impacts along axis. Impacts slower than minSpeed are
// treated as resting contact and ignored.
func Bounces(tr Trajectory, axis int, minSpeed float64) []Bounce {
	var out []Bounce
	for i := 1; i < tr.Len(); i++ {
		before, after := tr.Velocities[i-1][axis], tr.Velocities[i][axis]
		if before >= -minSpeed || after <= 0 {
			continue
		}
		out = append(out, Bounce{
			Time:         tr.Times[i],
			Height:       tr.Positions[i][axis],
			ImpactSpeed:  -before,
			ReboundSpeed: after,
		})
	}
	return out
}

// Apexes returns the local maxima of the coordinate along axis, ignoring
// the first sample.
func Apexes(tr Trajectory, axis int) []float64 {
	var out []float64
	for i := 1; i < tr.Len(); i++ {
		if tr.Velocities[i-1][axis] > 0 && tr.Velocities[i][axis] <= 0 {
			out = append(out, math.Max(tr.Positions[i-1][axis], tr.Positions[i][axis]))
		}
	}
	return out
}

// Summary aggregates the impacts of one body.
type Summary struct {
	Bounces         int
	MeanRestitution float64
	StdRestitution  float64
	FirstApex       float64
	MaxImpactSpeed  float64
}

func Summarize(bounces []Bounce, apexes []float64) Summary {
	s := Summary{Bounces: len(bounces)}
	if len(apexes) > 0 {
		s.FirstApex = apexes[0]
	}
	if len(bounces) == 0 {
		return s
	}
	ratios := make([]float64, len(bounces))
	for i, b := range bounces {
		ratios[i] = b.Restitution()
		s.MaxImpactSpeed = math.Max(s.MaxImpactSpeed, b.ImpactSpeed)
	}
	if len(ratios) == 1 {
		s.MeanRestitution = ratios[0]
		return s
	}
	s.MeanRestitution, s.StdRestitution = stat.MeanStdDev(ratios, nil)
	return s
}
