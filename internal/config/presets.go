package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/san-kum/rigidsim/internal/world"
)

func ptr(v float64) *float64 { return &v }

var ground = BodyConfig{
	Name:     "ground",
	Shape:    ShapeConfig{Kind: "box", HalfExtents: mgl64.Vec3{20, 0.5, 20}},
	Position: mgl64.Vec3{0, -0.5, 0},
	Static:   true,
	Friction: ptr(0.6),
	// restitution is mixed with max, so the ground stays inelastic
	Restitution: ptr(0),
}

func scene(name string, duration float64, bodies []BodyConfig, joints ...JointConfig) *Config {
	return &Config{
		Name:        name,
		Duration:    duration,
		SampleEvery: 2,
		World:       world.DefaultConfig(),
		Bodies:      bodies,
		Joints:      joints,
	}
}

// Presets are the built-in scenes, keyed by name.
var Presets = map[string]func() *Config{
	"drop": func() *Config {
		return scene("drop", 5, []BodyConfig{ground, {
			Name:        "ball",
			Shape:       ShapeConfig{Kind: "sphere", Radius: 0.5},
			Position:    mgl64.Vec3{0, 10.5, 0},
			Restitution: ptr(0.5),
		}})
	},
	"newton": func() *Config {
		balls := BodyConfig{
			Name:          "ball",
			Shape:         ShapeConfig{Kind: "sphere", Radius: 0.5},
			Position:      mgl64.Vec3{-1, 1, 0},
			Count:         4,
			Spacing:       mgl64.Vec3{1.0001, 0, 0},
			Restitution:   ptr(1),
			Friction:      ptr(0),
			IgnoreGravity: true,
		}
		striker := BodyConfig{
			Name:          "striker",
			Shape:         ShapeConfig{Kind: "sphere", Radius: 0.5},
			Position:      mgl64.Vec3{-4, 1, 0},
			Velocity:      mgl64.Vec3{3, 0, 0},
			Restitution:   ptr(1),
			Friction:      ptr(0),
			IgnoreGravity: true,
		}
		return scene("newton", 4, []BodyConfig{striker, balls})
	},
	"stack": func() *Config {
		return scene("stack", 6, []BodyConfig{ground, {
			Name:     "crate",
			Shape:    ShapeConfig{Kind: "box", HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
			Position: mgl64.Vec3{0, 0.5, 0},
			Count:    5,
			Spacing:  mgl64.Vec3{0, 1.001, 0},
			Friction: ptr(0.7),
		}})
	},
	"pile": func() *Config {
		return scene("pile", 8, []BodyConfig{
			ground,
			{
				Name:     "ball",
				Shape:    ShapeConfig{Kind: "sphere", Radius: 0.35},
				Position: mgl64.Vec3{-0.6, 2, 0.1},
				Count:    8,
				Spacing:  mgl64.Vec3{0.15, 0.9, -0.03},
				Jitter:   0.05,
			},
			{
				Name:     "crate",
				Shape:    ShapeConfig{Kind: "box", HalfExtents: mgl64.Vec3{0.3, 0.25, 0.4}},
				Position: mgl64.Vec3{0.6, 2.3, -0.1},
				Rotation: RotationConfig{Axis: mgl64.Vec3{1, 1, 0}, Angle: 0.4},
				Count:    6,
				Spacing:  mgl64.Vec3{-0.12, 1.1, 0.05},
				Jitter:   0.05,
			},
			{
				Name:     "pill",
				Shape:    ShapeConfig{Kind: "capsule", Radius: 0.2, HalfHeight: 0.35},
				Position: mgl64.Vec3{0, 3, 0.6},
				Rotation: RotationConfig{Axis: mgl64.Vec3{0, 0, 1}, Angle: 1.2},
				Count:    4,
				Spacing:  mgl64.Vec3{0.1, 1.2, -0.2},
				Jitter:   0.05,
			},
		})
	},
	"pendulum": func() *Config {
		return scene("pendulum", 10, []BodyConfig{
			{
				Name:             "pivot",
				Shape:            ShapeConfig{Kind: "sphere", Radius: 0.1},
				Position:         mgl64.Vec3{0, 5, 0},
				Static:           true,
				DisableCollision: true,
			},
			{
				Name:     "upper",
				Shape:    ShapeConfig{Kind: "box", HalfExtents: mgl64.Vec3{0.75, 0.1, 0.1}},
				Position: mgl64.Vec3{0.75, 5, 0},
			},
			{
				Name:     "lower",
				Shape:    ShapeConfig{Kind: "sphere", Radius: 0.25},
				Position: mgl64.Vec3{2.5, 5, 0},
			},
		},
			JointConfig{Kind: "ball", A: "pivot", B: "upper", Anchor: mgl64.Vec3{0, 5, 0}},
			JointConfig{Kind: "distance", A: "upper", B: "lower", Anchor: mgl64.Vec3{1.5, 5, 0}, AnchorB: mgl64.Vec3{2.5, 5, 0}},
		)
	},
	"hulls": func() *Config {
		octahedron := []mgl64.Vec3{
			{0.5, 0, 0}, {-0.5, 0, 0}, {0, 0.5, 0}, {0, -0.5, 0}, {0, 0, 0.5}, {0, 0, -0.5},
		}
		wedge := []mgl64.Vec3{
			{-0.5, 0, -0.3}, {0.5, 0, -0.3}, {-0.5, 0, 0.3}, {0.5, 0, 0.3}, {-0.5, 0.6, 0}, {0.5, 0.6, 0},
		}
		return scene("hulls", 6, []BodyConfig{
			ground,
			{
				Name:     "gem",
				Shape:    ShapeConfig{Kind: "hull", Points: octahedron},
				Position: mgl64.Vec3{0, 1.5, 0},
				Rotation: RotationConfig{Axis: mgl64.Vec3{1, 0, 1}, Angle: 0.5},
				Count:    3,
				Spacing:  mgl64.Vec3{0.2, 1.2, 0},
			},
			{
				Name:     "wedge",
				Shape:    ShapeConfig{Kind: "hull", Points: wedge},
				Position: mgl64.Vec3{1.5, 1, 0},
				Count:    2,
				Spacing:  mgl64.Vec3{-0.3, 1.3, 0.2},
			},
		})
	},
}

// GetPreset returns a fresh copy of the named scene, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

// ListPresets returns the preset names in alphabetical order.
func ListPresets() []string {
	names := lo.Keys(Presets)
	sort.Strings(names)
	return names
}
