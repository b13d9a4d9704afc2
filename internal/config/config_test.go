package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/world"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "drop" {
		t.Errorf("expected drop scene, got %s", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestPresets_AllBuild(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			w, err := world.New(cfg.World, zaptest.NewLogger(t))
			if err != nil {
				t.Fatal(err)
			}
			scene, err := cfg.Build(w)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			want := 0
			for _, b := range cfg.Bodies {
				want += b.Instances()
			}
			if got := len(w.Bodies()); got != want {
				t.Errorf("expected %d bodies, got %d", want, got)
			}
			if len(scene.Names) != want {
				t.Errorf("expected %d names, got %d", want, len(scene.Names))
			}
			if len(w.Joints()) != len(cfg.Joints) {
				t.Errorf("expected %d joints, got %d", len(cfg.Joints), len(w.Joints()))
			}
		})
	}
}

func TestGetPreset_ReturnsCopies(t *testing.T) {
	a := GetPreset("drop")
	a.Bodies[1].Position = mgl64.Vec3{9, 9, 9}
	if b := GetPreset("drop"); b.Bodies[1].Position == a.Bodies[1].Position {
		t.Error("preset shared between calls")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
}

func TestListPresets_Sorted(t *testing.T) {
	names := ListPresets()
	want := []string{"drop", "hulls", "newton", "pendulum", "pile", "stack"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := GetPreset("pendulum")
	cfg.Duration = 0
	cfg.Bodies[1].Shape = ShapeConfig{Kind: "box", HalfExtents: mgl64.Vec3{1, 0, 1}}
	cfg.Joints[0].Kind = "hinge"
	cfg.Joints[1].B = "missing"

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 4 {
		t.Errorf("expected 4 errors, got %d: %v", got, err)
	}
	if !errors.Is(err, shape.ErrDegenerate) {
		t.Errorf("expected degenerate shape in chain: %v", err)
	}
}

func TestBuild_RejectsInvalidScene(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bodies[1].Shape.Radius = -1
	w, err := world.New(cfg.World, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Build(w); err == nil {
		t.Fatal("expected an error")
	}
	if len(w.Bodies()) != 0 {
		t.Errorf("invalid scene left %d bodies", len(w.Bodies()))
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("pile")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "pile" || len(loaded.Bodies) != len(cfg.Bodies) {
		t.Errorf("loaded %q with %d bodies", loaded.Name, len(loaded.Bodies))
	}
	if loaded.Bodies[2].Rotation != cfg.Bodies[2].Rotation {
		t.Errorf("rotation: expected %v, got %v", cfg.Bodies[2].Rotation, loaded.Bodies[2].Rotation)
	}
	if loaded.World.TimeStep != cfg.World.TimeStep {
		t.Errorf("time step: expected %v, got %v", cfg.World.TimeStep, loaded.World.TimeStep)
	}
	if *loaded.Bodies[0].Friction != 0.6 {
		t.Errorf("ground friction lost: %v", *loaded.Bodies[0].Friction)
	}
}

func TestBodyConfig_Pose(t *testing.T) {
	b := BodyConfig{
		Position: mgl64.Vec3{1, 2, 3},
		Spacing:  mgl64.Vec3{0, 1, 0},
		Count:    3,
	}
	if b.Instances() != 3 {
		t.Errorf("expected 3 instances, got %d", b.Instances())
	}
	if p := b.Pose(2); p.Position != (mgl64.Vec3{1, 4, 3}) || p.Orientation != mgl64.QuatIdent() {
		t.Errorf("unexpected pose %v", p)
	}
	if (BodyConfig{}).Instances() != 1 {
		t.Error("zero count should create one body")
	}
}

func TestBuild_SeedDrivesJitter(t *testing.T) {
	positions := func(t *testing.T, seed int64) []mgl64.Vec3 {
		t.Helper()
		cfg := GetPreset("pile")
		cfg.Seed = seed
		w, err := world.New(cfg.World, zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := cfg.Build(w); err != nil {
			t.Fatal(err)
		}
		var out []mgl64.Vec3
		for _, id := range w.Bodies() {
			p, err := w.BodyPose(id)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, p.Position)
		}
		return out
	}

	a, b, c := positions(t, 7), positions(t, 7), positions(t, 8)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different scenes")
	}
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced the same scene")
	}
	// the ground has no jitter
	if a[0] != (mgl64.Vec3{0, -0.5, 0}) {
		t.Errorf("ground moved to %v", a[0])
	}
	for i := 1; i < len(a); i++ {
		if a[i][1] != c[i][1] {
			t.Errorf("body %d: jitter changed height %v vs %v", i, a[i][1], c[i][1])
		}
	}

	cfg := GetPreset("pile")
	cfg.Bodies[1].Jitter = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected negative jitter to be rejected")
	}
}
