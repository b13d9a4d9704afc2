package config

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/world"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDuration    = 5.0
	DefaultDensity     = 1.0
	DefaultSampleEvery = 1
)

// Config describes a scene: world parameters, the bodies to create and
// how long to run.
type Config struct {
	Name        string        `yaml:"name"`
	Duration    float64       `yaml:"duration"`
	Seed        int64         `yaml:"seed"`
	SampleEvery int           `yaml:"sample_every"`
	World       world.Config  `yaml:"world"`
	Bodies      []BodyConfig  `yaml:"bodies"`
	Joints      []JointConfig `yaml:"joints"`
}

type ShapeConfig struct {
	Kind        string       `yaml:"kind"`
	Radius      float64      `yaml:"radius,omitempty"`
	HalfExtents mgl64.Vec3   `yaml:"half_extents,omitempty"`
	HalfHeight  float64      `yaml:"half_height,omitempty"`
	Points      []mgl64.Vec3 `yaml:"points,omitempty"`
}

// RotationConfig is an axis-angle orientation; a zero axis means identity.
type RotationConfig struct {
	Axis  mgl64.Vec3 `yaml:"axis"`
	Angle float64    `yaml:"angle"`
}

// BodyConfig creates Count bodies, each offset by Spacing from the last.
// Jitter moves each instance by up to that distance along x and z, drawn
// from the scene's seed.
type BodyConfig struct {
	Name             string         `yaml:"name"`
	Shape            ShapeConfig    `yaml:"shape"`
	Position         mgl64.Vec3     `yaml:"position"`
	Rotation         RotationConfig `yaml:"rotation,omitempty"`
	Count            int            `yaml:"count,omitempty"`
	Spacing          mgl64.Vec3     `yaml:"spacing,omitempty"`
	Jitter           float64        `yaml:"jitter,omitempty"`
	Density          float64        `yaml:"density,omitempty"`
	Static           bool           `yaml:"static,omitempty"`
	Restitution      *float64       `yaml:"restitution,omitempty"`
	Friction         *float64       `yaml:"friction,omitempty"`
	IgnoreGravity    bool           `yaml:"ignore_gravity,omitempty"`
	DisableCollision bool           `yaml:"disable_collision,omitempty"`
	LinearDamping    float64        `yaml:"linear_damping,omitempty"`
	AngularDamping   float64        `yaml:"angular_damping,omitempty"`
	Velocity         mgl64.Vec3     `yaml:"velocity,omitempty"`
	AngularVelocity  mgl64.Vec3     `yaml:"angular_velocity,omitempty"`
}

// JointConfig connects the first bodies named A and B.
type JointConfig struct {
	Kind    string     `yaml:"kind"`
	A       string     `yaml:"a"`
	B       string     `yaml:"b"`
	Anchor  mgl64.Vec3 `yaml:"anchor"`
	AnchorB mgl64.Vec3 `yaml:"anchor_b,omitempty"`
}

// DefaultConfig is a single sphere dropped onto the ground.
func DefaultConfig() *Config {
	return GetPreset("drop")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Duration:    DefaultDuration,
		SampleEvery: DefaultSampleEvery,
		World:       world.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem in the scene at once.
func (c *Config) Validate() error {
	var err error
	if !(c.Duration > 0) {
		err = multierr.Append(err, fmt.Errorf("duration must be positive, got %v", c.Duration))
	}
	if c.SampleEvery < 1 {
		err = multierr.Append(err, fmt.Errorf("sample_every must be at least 1, got %d", c.SampleEvery))
	}
	err = multierr.Append(err, c.World.Validate())

	names := map[string]bool{}
	for i, b := range c.Bodies {
		if b.Name != "" {
			names[b.Name] = true
		}
		if _, e := b.Shape.Build(); e != nil {
			err = multierr.Append(err, fmt.Errorf("body %d (%s): %w", i, b.Name, e))
		}
		if b.Count < 0 {
			err = multierr.Append(err, fmt.Errorf("body %d (%s): negative count %d", i, b.Name, b.Count))
		}
		if !(b.Jitter >= 0) {
			err = multierr.Append(err, fmt.Errorf("body %d (%s): jitter must be non-negative, got %v", i, b.Name, b.Jitter))
		}
	}
	for i, j := range c.Joints {
		if !lo.Contains([]string{"ball", "distance"}, j.Kind) {
			err = multierr.Append(err, fmt.Errorf("joint %d: unknown kind %q", i, j.Kind))
		}
		for _, n := range []string{j.A, j.B} {
			if !names[n] {
				err = multierr.Append(err, fmt.Errorf("joint %d: unknown body %q", i, n))
			}
		}
	}
	return err
}

// Build creates the shape described by s.
func (s ShapeConfig) Build() (*shape.Shape, error) {
	switch s.Kind {
	case "sphere":
		return shape.NewSphere(s.Radius)
	case "box":
		return shape.NewBox(s.HalfExtents)
	case "capsule":
		return shape.NewCapsule(s.Radius, s.HalfHeight)
	case "hull", "convex_hull":
		return shape.NewConvexHull(s.Points)
	}
	return nil, fmt.Errorf("config: unknown shape kind %q", s.Kind)
}

// Instances is the number of bodies b creates.
func (b BodyConfig) Instances() int {
	return max(b.Count, 1)
}

// Pose returns the pose of the i-th instance.
func (b BodyConfig) Pose(i int) body.Pose {
	q := mgl64.QuatIdent()
	if b.Rotation.Axis.Len() > 0 {
		q = mgl64.QuatRotate(b.Rotation.Angle, b.Rotation.Axis.Normalize())
	}
	return body.Pose{
		Position:    b.Position.Add(b.Spacing.Mul(float64(i))),
		Orientation: q,
	}
}

// jittered is Pose(i) shifted by the next offsets from rng. Bodies without
// jitter draw nothing, so adding one leaves the others' offsets alone.
func (b BodyConfig) jittered(i int, rng *rand.Rand) body.Pose {
	p := b.Pose(i)
	if b.Jitter == 0 {
		return p
	}
	dx := (2*rng.Float64() - 1) * b.Jitter
	dz := (2*rng.Float64() - 1) * b.Jitter
	p.Position = p.Position.Add(mgl64.Vec3{dx, 0, dz})
	return p
}

func (b BodyConfig) Options() body.Options {
	opts := body.Options{
		Static:           b.Static,
		Restitution:      body.DefaultRestitution,
		Friction:         body.DefaultFriction,
		IgnoreGravity:    b.IgnoreGravity,
		DisableCollision: b.DisableCollision,
		LinearDamping:    b.LinearDamping,
		AngularDamping:   b.AngularDamping,
		LinearVelocity:   b.Velocity,
		AngularVelocity:  b.AngularVelocity,
	}
	if b.Restitution != nil {
		opts.Restitution = *b.Restitution
	}
	if b.Friction != nil {
		opts.Friction = *b.Friction
	}
	return opts
}

func (b BodyConfig) density() float64 {
	if b.Density == 0 {
		return DefaultDensity
	}
	return b.Density
}

// Scene is a world built from a config, with body names resolved.
type Scene struct {
	World *world.World
	// Names maps every created body to the name of its entry.
	Names map[body.ID]string
	first map[string]body.ID
}

// ID returns the first body created under name.
func (s *Scene) ID(name string) (body.ID, bool) {
	id, ok := s.first[name]
	return id, ok
}

// Build validates c and creates its world.
func (c *Config) Build(w *world.World) (*Scene, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	scene := &Scene{World: w, Names: map[body.ID]string{}, first: map[string]body.ID{}}
	rng := rand.New(rand.NewSource(c.Seed))
	for i, b := range c.Bodies {
		s, err := b.Shape.Build()
		if err != nil {
			return nil, &world.ConstructionError{Op: fmt.Sprintf("body %d shape", i), Err: err}
		}
		for k := 0; k < b.Instances(); k++ {
			id, err := w.AddBody(s, b.jittered(k, rng), b.density(), b.Options())
			if err != nil {
				return nil, fmt.Errorf("config: body %d (%s): %w", i, b.Name, err)
			}
			scene.Names[id] = b.Name
			if _, ok := scene.first[b.Name]; !ok {
				scene.first[b.Name] = id
			}
		}
	}
	for i, j := range c.Joints {
		a, b := scene.first[j.A], scene.first[j.B]
		var err error
		switch j.Kind {
		case "ball":
			_, err = w.AddBallJoint(a, b, j.Anchor)
		case "distance":
			_, err = w.AddDistanceJoint(a, b, j.Anchor, j.AnchorB)
		}
		if err != nil {
			return nil, fmt.Errorf("config: joint %d: %w", i, err)
		}
	}
	return scene, nil
}
