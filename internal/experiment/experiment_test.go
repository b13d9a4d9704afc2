package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/metrics"
	"go.uber.org/zap/zaptest"
)

func shortPreset(t *testing.T, name string, duration float64) *config.Config {
	t.Helper()
	cfg := config.GetPreset(name)
	if cfg == nil {
		t.Fatalf("missing preset %s", name)
	}
	cfg.Duration = duration
	return cfg
}

func TestRun_NotSetup(t *testing.T) {
	e := New(config.DefaultConfig(), zaptest.NewLogger(t))
	if _, err := e.Run(context.Background()); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
}

func TestRun_SamplesFrames(t *testing.T) {
	cfg := shortPreset(t, "drop", 1)
	cfg.SampleEvery = 6
	e := New(cfg, zaptest.NewLogger(t))
	if err := e.Setup(); err != nil {
		t.Fatal(err)
	}
	e.AddMetric(metrics.NewPenetration())
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 60 {
		t.Errorf("expected 60 steps, got %d", res.Steps)
	}
	// initial frame plus one every 6 steps
	if len(res.Frames) != 11 {
		t.Errorf("expected 11 frames, got %d", len(res.Frames))
	}
	if res.Frames[0].Step != 0 || res.Frames[len(res.Frames)-1].Step != 60 {
		t.Errorf("unexpected frame steps %d..%d", res.Frames[0].Step, res.Frames[len(res.Frames)-1].Step)
	}
	if _, ok := res.Metrics["max_penetration"]; !ok {
		t.Error("metric missing from result")
	}
	if res.Names[2] != "ball" {
		t.Errorf("expected body 2 named ball, got %q", res.Names[2])
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, shortPreset(t, "drop", 1), zaptest.NewLogger(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || res.Steps != 0 {
		t.Errorf("expected empty partial result, got %+v", res)
	}
}

func TestDiverged(t *testing.T) {
	f := &frame.Frame{Bodies: []frame.BodyState{
		{ID: 1, Pose: body.IdentityPose()},
		{ID: 2, Pose: body.At(mgl64.Vec3{0, math.NaN(), 0})},
	}}
	id, bad := diverged(f)
	if !bad || id != 2 {
		t.Errorf("expected body 2 to be reported, got %d %v", id, bad)
	}
	f.Bodies = f.Bodies[:1]
	if _, bad := diverged(f); bad {
		t.Error("finite frame reported as diverged")
	}

	err := error(&StepError{Step: 3, Body: 2, Err: ErrUnstable})
	if !errors.Is(err, ErrUnstable) {
		t.Error("StepError should unwrap to its cause")
	}
}

func TestEnsemble_PreservesOrder(t *testing.T) {
	names := []string{"drop", "stack", "newton"}
	var cfgs []*config.Config
	for _, n := range names {
		cfgs = append(cfgs, shortPreset(t, n, 0.5))
	}
	results, err := NewEnsemble(cfgs, 2, zaptest.NewLogger(t)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Scene != names[i] {
			t.Errorf("result %d: expected %s, got %s", i, names[i], r.Scene)
		}
	}
}

func TestEnsemble_PropagatesSetupError(t *testing.T) {
	bad := shortPreset(t, "drop", 0.5)
	bad.Bodies[1].Shape.Radius = 0
	_, err := NewEnsemble([]*config.Config{shortPreset(t, "drop", 0.5), bad}, 2, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestVerify_Deterministic(t *testing.T) {
	if err := Verify(context.Background(), shortPreset(t, "pile", 1), zaptest.NewLogger(t)); err != nil {
		t.Errorf("pile run not deterministic: %v", err)
	}
}

func TestNewtonsCradle_TransfersMomentum(t *testing.T) {
	res, err := Run(context.Background(), shortPreset(t, "newton", 3), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	last := res.Frames[len(res.Frames)-1]
	striker := last.Bodies[0]
	end := last.Bodies[len(last.Bodies)-1]
	if math.Abs(striker.LinearVelocity[0]) > 0.3 {
		t.Errorf("striker kept moving at %v", striker.LinearVelocity)
	}
	if end.LinearVelocity[0] < 2 {
		t.Errorf("far ball did not fly off: %v", end.LinearVelocity)
	}
	if drift := res.Metrics["momentum_drift"]; drift > 1e-6 {
		t.Errorf("momentum drifted by %v", drift)
	}
}
