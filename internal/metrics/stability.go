package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/world"
)

// Stability is the fraction of frames in which every body has a finite
// pose within threshold of the origin.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f *frame.Frame, _ world.Stats) {
	s.samples++
	for _, b := range f.Bodies {
		p := b.Pose.Position
		q := b.Pose.Orientation
		if p.Len() > s.threshold || math.IsNaN(p.Len()) || math.IsNaN(q.Len()) || math.Abs(q.Len()-1) > 1e-6 {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Sleeping is the fraction of dynamic bodies asleep in the latest frame.
type Sleeping struct {
	name     string
	fraction float64
}

func NewSleeping() *Sleeping {
	return &Sleeping{name: "sleeping"}
}

func (s *Sleeping) Name() string { return s.name }

func (s *Sleeping) Observe(f *frame.Frame, _ world.Stats) {
	dynamic, asleep := 0, 0
	for _, b := range f.Bodies {
		if b.Static {
			continue
		}
		dynamic++
		if b.Sleeping {
			asleep++
		}
	}
	s.fraction = 0
	if dynamic > 0 {
		s.fraction = float64(asleep) / float64(dynamic)
	}
}

func (s *Sleeping) Value() float64 { return s.fraction }
func (s *Sleeping) Reset() { s.fraction = 0 }
