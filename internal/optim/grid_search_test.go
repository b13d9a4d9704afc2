package optim

import (
	"context"
	"testing"

	"github.com/san-kum/rigidsim/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestNewGridSearch_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params []Param
	}{
		{"empty", nil},
		{"unknown", []Param{{Name: "warp", Values: []float64{1}}}},
		{"no values", []Param{{Name: "slop"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGridSearch(tt.params, 1, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPoints(t *testing.T) {
	g, err := NewGridSearch([]Param{
		{Name: "iterations", Values: []float64{4, 8}},
		{Name: "slop", Values: []float64{0.01, 0.02, 0.05}},
	}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	points := g.Points()
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	if points[0]["iterations"] != 4 || points[0]["slop"] != 0.01 {
		t.Errorf("unexpected first point %v", points[0])
	}
	if points[1]["iterations"] != 4 || points[1]["slop"] != 0.02 {
		t.Errorf("last parameter should vary fastest, got %v", points[1])
	}
	if points[5]["iterations"] != 8 || points[5]["slop"] != 0.05 {
		t.Errorf("unexpected last point %v", points[5])
	}
}

func TestApply_LeavesBaseUntouched(t *testing.T) {
	base := config.GetPreset("drop")
	iters := base.World.Solver.Iterations
	cfg := Apply(base, map[string]float64{"iterations": 3.4, "dt": 0.01, "margin": 0.05})
	if cfg.World.Solver.Iterations != 3 {
		t.Errorf("iterations should round to 3, got %d", cfg.World.Solver.Iterations)
	}
	if cfg.World.TimeStep != 0.01 || cfg.World.Margin != 0.05 {
		t.Errorf("unexpected world config %+v", cfg.World)
	}
	if base.World.Solver.Iterations != iters {
		t.Error("base config was modified")
	}
}

func TestSearch_OrdersByMetric(t *testing.T) {
	base := config.GetPreset("drop")
	base.Duration = 0.5

	g, err := NewGridSearch([]Param{
		{Name: "iterations", Values: []float64{1, 10}},
		{Name: "dt", Values: []float64{1.0 / 60, -1}},
	}, 2, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	points, err := g.Search(context.Background(), base, "max_penetration")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Value < points[i-1].Value {
			t.Errorf("points not sorted at %d: %v < %v", i, points[i].Value, points[i-1].Value)
		}
	}
	// negative time steps fail validation and sort last
	for _, p := range points[2:] {
		if p.Err == nil || p.Params["dt"] != -1 {
			t.Errorf("expected invalid point, got %+v", p)
		}
	}
	for _, p := range points[:2] {
		if p.Err != nil {
			t.Errorf("unexpected error %v", p.Err)
		}
	}
}

func TestSearch_UnknownMetric(t *testing.T) {
	base := config.GetPreset("drop")
	base.Duration = 0.1
	g, _ := NewGridSearch([]Param{{Name: "slop", Values: []float64{0.01}}}, 1, nil)
	if _, err := g.Search(context.Background(), base, "nope"); err != ErrNoResult {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, _ := NewGridSearch([]Param{{Name: "slop", Values: []float64{0.01, 0.02}}}, 1, nil)
	if _, err := g.Search(ctx, config.GetPreset("drop"), "energy"); err == nil {
		t.Error("expected cancellation error")
	}
}
