package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Separation is the summed position distance between matching bodies of
// two runs at every shared sample.
func Separation(a, b []Trajectory) (times, dist []float64) {
	n := min(len(a), len(b))
	if n == 0 {
		return nil, nil
	}
	samples := a[0].Len()
	for i := 0; i < n; i++ {
		samples = min(samples, a[i].Len(), b[i].Len())
	}
	times = make([]float64, samples)
	dist = make([]float64, samples)
	for k := 0; k < samples; k++ {
		times[k] = a[0].Times[k]
		for i := 0; i < n; i++ {
			dist[k] += a[i].Positions[k].Sub(b[i].Positions[k]).Len()
		}
	}
	return times, dist
}

// Divergence fits log(separation) against time and returns the slope, the
// exponential rate at which two runs started a small distance apart drift
// apart. Samples where the runs coincide exactly are skipped. ok is false
// with fewer than two usable samples.
func Divergence(a, b []Trajectory) (rate float64, ok bool) {
	times, dist := Separation(a, b)
	var xs, ys []float64
	for i, d := range dist {
		if d <= 0 {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, math.Log(d))
	}
	if len(xs) < 2 {
		return 0, false
	}
	_, rate = stat.LinearRegression(xs, ys, nil, false)
	return rate, true
}
