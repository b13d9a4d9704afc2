package broadphase

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultAxisInterval is how many Pairs calls reuse a sweep axis before
// the variance is measured again.
const DefaultAxisInterval = 30

// SweepAndPrune sorts boxes along the axis with the largest spread of
// centers and sweeps for overlapping intervals.
type SweepAndPrune struct {
	AxisInterval int

	axis  int
	calls int
	order []int
	xs    []float64
}

func NewSweepAndPrune() *SweepAndPrune {
	return &SweepAndPrune{AxisInterval: DefaultAxisInterval}
}

func (s *SweepAndPrune) Name() string { return "sap" }

// Axis returns the current sweep axis (0=x, 1=y, 2=z).
func (s *SweepAndPrune) Axis() int { return s.axis }

func (s *SweepAndPrune) Pairs(proxies []Proxy) []Pair {
	if len(proxies) < 2 {
		return nil
	}
	interval := s.AxisInterval
	if interval <= 0 {
		interval = 1
	}
	if s.calls%interval == 0 {
		s.axis = s.chooseAxis(proxies)
	}
	s.calls++

	axis := s.axis
	s.order = s.order[:0]
	for i := range proxies {
		s.order = append(s.order, i)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := proxies[s.order[i]], proxies[s.order[j]]
		if a.Bounds.Min[axis] != b.Bounds.Min[axis] {
			return a.Bounds.Min[axis] < b.Bounds.Min[axis]
		}
		return a.ID < b.ID
	})

	var pairs []Pair
	for i, pi := range s.order {
		a := proxies[pi]
		for _, pj := range s.order[i+1:] {
			b := proxies[pj]
			if b.Bounds.Min[axis] > a.Bounds.Max[axis] {
				break
			}
			if candidate(a, b) {
				pairs = append(pairs, MakePair(a.ID, b.ID))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func (s *SweepAndPrune) chooseAxis(proxies []Proxy) int {
	if cap(s.xs) < len(proxies) {
		s.xs = make([]float64, len(proxies))
	}
	xs := s.xs[:len(proxies)]

	best, bestVar := 0, -1.0
	for axis := 0; axis < 3; axis++ {
		for i, p := range proxies {
			xs[i] = p.Bounds.Center()[axis]
		}
		if v := stat.Variance(xs, nil); v > bestVar {
			best, bestVar = axis, v
		}
	}
	return best
}
