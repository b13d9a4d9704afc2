package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/storage"
)

// vertical builds a trajectory moving only along y.
func vertical(ys, vys []float64) Trajectory {
	tr := Trajectory{ID: 2, Name: "ball"}
	for i := range ys {
		tr.add(float64(i)*0.1, mgl64.Vec3{0, ys[i], 0}, mgl64.Vec3{0, vys[i], 0})
	}
	return tr
}

func TestBounces(t *testing.T) {
	tr := vertical(
		[]float64{3, 2, 0.5, 1, 1.2, 1, 0.5, 0.6, 0.5, 0.5},
		[]float64{-1, -4, 2, 1, -0.5, -1, 0.5, -0.05, 0.02, 0.01},
	)
	bounces := Bounces(tr, 1, 0.1)
	if len(bounces) != 2 {
		t.Fatalf("expected 2 bounces, got %d: %+v", len(bounces), bounces)
	}
	tests := []struct {
		impact, rebound, e float64
	}{
		{4, 2, 0.5},
		{1, 0.5, 0.5},
	}
	for i, tt := range tests {
		b := bounces[i]
		if b.ImpactSpeed != tt.impact || b.ReboundSpeed != tt.rebound {
			t.Errorf("bounce %d: got %+v", i, b)
		}
		if math.Abs(b.Restitution()-tt.e) > 1e-12 {
			t.Errorf("bounce %d: restitution %v, want %v", i, b.Restitution(), tt.e)
		}
	}

	apexes := Apexes(tr, 1)
	if len(apexes) != 2 || apexes[0] != 1.2 {
		t.Errorf("unexpected apexes %v", apexes)
	}

	s := Summarize(bounces, apexes)
	if s.Bounces != 2 || math.Abs(s.MeanRestitution-0.5) > 1e-12 || s.StdRestitution > 1e-12 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.FirstApex != 1.2 || s.MaxImpactSpeed != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil)
	if s != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestCrossingsAndPeriod(t *testing.T) {
	const period = 2.0
	tr := Trajectory{}
	for i := 0; i <= 1000; i++ {
		ts := float64(i) * 0.01
		x := math.Sin(2 * math.Pi * ts / period)
		tr.add(ts, mgl64.Vec3{x, 0, 0}, mgl64.Vec3{})
	}
	crossings := Crossings(tr, 0, 0.5)
	if len(crossings) != 5 {
		t.Fatalf("expected 5 crossings, got %d", len(crossings))
	}
	mean, std, ok := Period(crossings)
	if !ok {
		t.Fatal("expected a period")
	}
	if math.Abs(mean-period) > 1e-3 || std > 1e-3 {
		t.Errorf("period %v ± %v, want %v", mean, std, period)
	}
	if _, _, ok := Period(crossings[:1]); ok {
		t.Error("one crossing should not give a period")
	}
}

func TestPlotASCII(t *testing.T) {
	tr := vertical([]float64{-1, 0, 1}, []float64{1, 0, -1})
	out := PlotASCII(PhasePortrait(tr, 1), 20, 10)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(lines))
	}
	if got := strings.Count(out, "•"); got != 3 {
		t.Errorf("expected 3 points, got %d", got)
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "─") {
		t.Error("axes missing")
	}
	if PlotASCII(nil, 20, 10) != "" {
		t.Error("expected empty plot for no points")
	}
}

func TestDivergence(t *testing.T) {
	const rate = 2.0
	var a, b Trajectory
	for i := 0; i < 50; i++ {
		ts := float64(i) * 0.05
		a.add(ts, mgl64.Vec3{}, mgl64.Vec3{})
		b.add(ts, mgl64.Vec3{1e-6 * math.Exp(rate*ts), 0, 0}, mgl64.Vec3{})
	}
	got, ok := Divergence([]Trajectory{a}, []Trajectory{b})
	if !ok {
		t.Fatal("expected a fit")
	}
	if math.Abs(got-rate) > 1e-9 {
		t.Errorf("rate %v, want %v", got, rate)
	}
	if _, ok := Divergence([]Trajectory{a}, []Trajectory{a}); ok {
		t.Error("identical runs should not fit")
	}
}

func TestFromFrames(t *testing.T) {
	state := func(id body.ID, y float64, static bool) frame.BodyState {
		return frame.BodyState{ID: id, Pose: body.Pose{Position: mgl64.Vec3{0, y, 0}}, Static: static}
	}
	frames := []*frame.Frame{
		{Time: 0, Bodies: []frame.BodyState{state(1, 0, true), state(2, 5, false), state(3, 7, false)}},
		{Time: 0.1, Bodies: []frame.BodyState{state(1, 0, true), state(2, 4, false), state(3, 6, false)}},
	}
	trs := FromFrames(frames, map[body.ID]string{2: "a", 3: "b"})
	if len(trs) != 2 {
		t.Fatalf("expected 2 trajectories, got %d", len(trs))
	}
	if trs[0].ID != 2 || trs[1].Name != "b" {
		t.Errorf("unexpected order %v %v", trs[0].ID, trs[1].Name)
	}
	if ys := trs[1].Component(1); ys[0] != 7 || ys[1] != 6 {
		t.Errorf("unexpected heights %v", ys)
	}
	if _, ok := Find(trs, "b"); !ok {
		t.Error("Find failed")
	}
}

func TestFromSamples_SkipsStillBodies(t *testing.T) {
	at := func(id body.ID, time, y float64) storage.Sample {
		return storage.Sample{ID: id, Time: time, Name: "x", Pose: body.Pose{Position: mgl64.Vec3{0, y, 0}}}
	}
	samples := []storage.Sample{at(1, 0, 0), at(2, 0, 3), at(1, 0.1, 0), at(2, 0.1, 2.9)}
	trs := FromSamples(samples)
	if len(trs) != 1 || trs[0].ID != 2 || trs[0].Len() != 2 {
		t.Errorf("unexpected trajectories %+v", trs)
	}
}
