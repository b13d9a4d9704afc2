package solver

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/shape"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func newSphere(t *testing.T, id body.ID, pos mgl64.Vec3, opts body.Options) *body.RigidBody {
	t.Helper()
	s, err := shape.NewSphere(0.5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := body.New(id, s, body.At(pos), 1, opts)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newGround(t *testing.T) *body.RigidBody {
	t.Helper()
	s, err := shape.NewBox(mgl64.Vec3{10, 0.5, 10})
	if err != nil {
		t.Fatal(err)
	}
	b, err := body.New(1, s, body.At(mgl64.Vec3{0, -0.5, 0}), 0, body.Options{Static: true, Friction: 1})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func singlePoint(normal, pos mgl64.Vec3, depth float64) narrowphase.Manifold {
	return narrowphase.Manifold{
		Normal: normal,
		Points: []narrowphase.Point{{Position: pos, Depth: depth, Feature: 7}},
	}
}

func newSolver(t *testing.T) *ContactSolver {
	return NewContactSolver(DefaultConfig(), zaptest.NewLogger(t))
}

func TestSolve_ElasticHeadOnSwapsVelocities(t *testing.T) {
	opts := body.Options{Restitution: 1, LinearVelocity: mgl64.Vec3{2, 0, 0}}
	a := newSphere(t, 1, mgl64.Vec3{-0.499, 0, 0}, opts)
	opts.LinearVelocity = mgl64.Vec3{-2, 0, 0}
	b := newSphere(t, 2, mgl64.Vec3{0.499, 0, 0}, opts)

	before := a.Momentum().Add(b.Momentum())
	c := NewContact(a, b, singlePoint(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 0.002))
	newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)

	if got := a.LinearVelocity(); math.Abs(got[0]+2) > 1e-9 {
		t.Errorf("a: expected vx -2, got %v", got)
	}
	if got := b.LinearVelocity(); math.Abs(got[0]-2) > 1e-9 {
		t.Errorf("b: expected vx 2, got %v", got)
	}
	after := a.Momentum().Add(b.Momentum())
	if after.Sub(before).Len() > 1e-9 {
		t.Errorf("momentum changed from %v to %v", before, after)
	}
}

func TestSolve_SlowElasticHeadOnSwapsVelocities(t *testing.T) {
	opts := body.Options{Restitution: 1, LinearVelocity: mgl64.Vec3{0.4, 0, 0}}
	a := newSphere(t, 1, mgl64.Vec3{-0.499, 0, 0}, opts)
	opts.LinearVelocity = mgl64.Vec3{-0.4, 0, 0}
	b := newSphere(t, 2, mgl64.Vec3{0.499, 0, 0}, opts)

	energy := a.KineticEnergy() + b.KineticEnergy()
	c := NewContact(a, b, singlePoint(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 0.002))
	newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)

	if got := a.LinearVelocity(); math.Abs(got[0]+0.4) > 1e-9 {
		t.Errorf("a: expected vx -0.4, got %v", got)
	}
	if got := b.LinearVelocity(); math.Abs(got[0]-0.4) > 1e-9 {
		t.Errorf("b: expected vx 0.4, got %v", got)
	}
	if after := a.KineticEnergy() + b.KineticEnergy(); math.Abs(after-energy) > 1e-9 {
		t.Errorf("kinetic energy changed from %v to %v", energy, after)
	}
}

func TestSolve_RestingContactBelowThresholdDoesNotBounce(t *testing.T) {
	s := newSolver(t)
	ground := newGround(t)
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.5, 0}, body.Options{Restitution: 1, LinearVelocity: mgl64.Vec3{0, -0.5, 0}})

	s.Solve([]*Contact{NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))}, nil, 1.0/60.0)
	if got := ball.LinearVelocity()[1]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected a new contact to bounce, got vy %v", got)
	}

	// same feature next step: the contact is persistent now
	ball.SetLinearVelocity(mgl64.Vec3{0, -0.5, 0})
	s.Solve([]*Contact{NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))}, nil, 1.0/60.0)
	if got := ball.LinearVelocity()[1]; math.Abs(got) > 1e-9 {
		t.Errorf("expected resting contact to stop, got vy %v", got)
	}
}

func TestSolve_NeverPulls(t *testing.T) {
	ground := newGround(t)
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.5, 0}, body.Options{LinearVelocity: mgl64.Vec3{0, 3, 0}})
	c := NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0.001))

	newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)

	if jn := c.Points[0].NormalImpulse; jn != 0 {
		t.Errorf("expected no impulse on separating contact, got %v", jn)
	}
	if got := ball.LinearVelocity(); got != (mgl64.Vec3{0, 3, 0}) {
		t.Errorf("separating velocity changed to %v", got)
	}
}

func TestSolve_AccumulatedImpulseNonNegativeEveryIteration(t *testing.T) {
	for iterations := 1; iterations <= 8; iterations++ {
		ground := newGround(t)
		ball := newSphere(t, 2, mgl64.Vec3{0.1, 0.48, 0}, body.Options{
			Friction:        0.5,
			LinearVelocity:  mgl64.Vec3{1, -2, 0.5},
			AngularVelocity: mgl64.Vec3{3, 0, -1},
		})
		m := narrowphase.Manifold{Normal: mgl64.Vec3{0, 1, 0}, Points: []narrowphase.Point{
			{Position: mgl64.Vec3{0.1, -0.01, 0}, Depth: 0.02, Feature: 1},
			{Position: mgl64.Vec3{0.2, -0.01, 0.1}, Depth: 0.02, Feature: 2},
		}}
		c := NewContact(ground, ball, m)
		cfg := DefaultConfig()
		cfg.Iterations = iterations
		NewContactSolver(cfg, zaptest.NewLogger(t)).Solve([]*Contact{c}, nil, 1.0/60.0)

		for i, p := range c.Points {
			if p.NormalImpulse < 0 {
				t.Errorf("iterations=%d point %d: negative impulse %v", iterations, i, p.NormalImpulse)
			}
			if p.State != StateResolved {
				t.Errorf("iterations=%d point %d: state %v", iterations, i, p.State)
			}
		}
	}
}

func TestSolve_FrictionWithinPyramid(t *testing.T) {
	ground := newGround(t)
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.5, 0}, body.Options{
		Friction:       1,
		LinearVelocity: mgl64.Vec3{4, -2, 3},
	})
	c := NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))
	newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)

	p := c.Points[0]
	if p.NormalImpulse <= 0 {
		t.Fatalf("expected a normal impulse, got %v", p.NormalImpulse)
	}
	if math.Abs(p.TangentImpulse.Dot(c.Normal)) > 1e-12 {
		t.Errorf("tangent impulse has a normal component: %v", p.TangentImpulse)
	}
	limit := c.Friction * p.NormalImpulse
	for k, tangent := range c.tangents {
		if f := math.Abs(p.TangentImpulse.Dot(tangent)); f > limit+1e-9 {
			t.Errorf("tangent %d: |%v| exceeds %v", k, f, limit)
		}
	}
	v := ball.LinearVelocity()
	if math.Hypot(v[0], v[2]) >= 5 {
		t.Errorf("friction did not slow the slide: %v", v)
	}
}

func TestSolve_WarmStartsPersistentPoint(t *testing.T) {
	s := newSolver(t)
	ground := newGround(t)
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.5, 0}, body.Options{LinearVelocity: mgl64.Vec3{0, -1, 0}})

	first := NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))
	stats := s.Solve([]*Contact{first}, nil, 1.0/60.0)
	if stats.WarmStarted != 0 {
		t.Errorf("first step warm started %d points", stats.WarmStarted)
	}
	if s.Cache().Len() != 1 {
		t.Fatalf("expected one cached point, got %d", s.Cache().Len())
	}

	ball.SetLinearVelocity(mgl64.Vec3{0, -1, 0})
	second := NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))
	stats = s.Solve([]*Contact{second}, nil, 1.0/60.0)
	if stats.WarmStarted != 1 {
		t.Errorf("expected one warm-started point, got %d", stats.WarmStarted)
	}
	if got := second.Points[0].NormalImpulse; math.Abs(got-ball.Mass()) > 1e-9 {
		t.Errorf("expected impulse %v, got %v", ball.Mass(), got)
	}
	if got := ball.LinearVelocity()[1]; math.Abs(got) > 1e-9 {
		t.Errorf("expected ball at rest, got vy %v", got)
	}
}

func TestCache_GracePeriod(t *testing.T) {
	s := newSolver(t)
	ground := newGround(t)
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.5, 0}, body.Options{LinearVelocity: mgl64.Vec3{0, -1, 0}})
	s.Solve([]*Contact{NewContact(ground, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0))}, nil, 1.0/60.0)

	for i := 0; i < DefaultGracePeriod; i++ {
		s.Solve(nil, nil, 1.0/60.0)
		if s.Cache().Len() != 1 {
			t.Fatalf("entry dropped after %d idle steps", i+1)
		}
	}
	if !s.Cache().Touching(1, 2) {
		t.Error("pair should count as touching within the grace period")
	}
	stats := s.Solve(nil, nil, 1.0/60.0)
	if s.Cache().Len() != 0 || stats.Pruned != 1 {
		t.Errorf("expected entry pruned, len=%d pruned=%d", s.Cache().Len(), stats.Pruned)
	}
	if s.Cache().Touching(1, 2) {
		t.Error("pair still touching after the grace period")
	}
}

func TestCache_RemoveBody(t *testing.T) {
	c := NewCache()
	c.Store(Key{A: 1, B: 2, Feature: 3}, 1, mgl64.Vec3{}, 1)
	c.Store(Key{A: 2, B: 4, Feature: 3}, 1, mgl64.Vec3{}, 1)
	c.Store(Key{A: 3, B: 4, Feature: 3}, 1, mgl64.Vec3{}, 1)
	c.RemoveBody(2)
	if c.Touching(1, 2) || !c.Touching(3, 4) {
		t.Error("pair bookkeeping out of sync with entries")
	}
	if c.Len() != 1 {
		t.Errorf("expected one entry left, got %d", c.Len())
	}
	if _, _, ok := c.Lookup(Key{A: 3, B: 4, Feature: 3}); !ok {
		t.Error("unrelated entry removed")
	}
}

func TestSolve_DegenerateRowsSkipped(t *testing.T) {
	a := newGround(t)
	b := newGround(t)
	c := NewContact(a, b, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, 0.1))

	stats := newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)
	if stats.Degenerate != 1 {
		t.Errorf("expected one degenerate point, got %d", stats.Degenerate)
	}
	if c.Points[0].NormalImpulse != 0 {
		t.Errorf("degenerate point received impulse %v", c.Points[0].NormalImpulse)
	}
}

func TestSolve_SleepingBodyIsImmovable(t *testing.T) {
	sleeper := newSphere(t, 1, mgl64.Vec3{0, 0, 0}, body.Options{})
	sleeper.Sleep()
	ball := newSphere(t, 2, mgl64.Vec3{0, 0.999, 0}, body.Options{LinearVelocity: mgl64.Vec3{0, -0.5, 0}})
	c := NewContact(sleeper, ball, singlePoint(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0.5, 0}, 0.001))

	newSolver(t).Solve([]*Contact{c}, nil, 1.0/60.0)

	if v := sleeper.LinearVelocity(); v != (mgl64.Vec3{}) {
		t.Errorf("sleeping body moved: %v", v)
	}
	if !sleeper.IsSleeping() {
		t.Error("solver woke the sleeping body")
	}
	if got := ball.LinearVelocity()[1]; math.Abs(got) > 1e-9 {
		t.Errorf("expected ball stopped, got vy %v", got)
	}
}

func TestMixing(t *testing.T) {
	if got := MixRestitution(0.2, 0.8); got != 0.8 {
		t.Errorf("restitution: got %v", got)
	}
	if got := MixFriction(0.25, 1); got != 0.5 {
		t.Errorf("friction: got %v", got)
	}
	if got := MixFriction(0, 1); got != 0 {
		t.Errorf("frictionless side: got %v", got)
	}
}

func TestTangentBasis(t *testing.T) {
	normals := []mgl64.Vec3{
		{0, 1, 0}, {1, 0, 0}, {0, 0, -1},
		mgl64.Vec3{1, 2, 3}.Normalize(),
	}
	for _, n := range normals {
		tb := tangentBasis(n)
		if math.Abs(tb[0].Dot(n)) > 1e-12 || math.Abs(tb[1].Dot(n)) > 1e-12 || math.Abs(tb[0].Dot(tb[1])) > 1e-12 {
			t.Errorf("basis for %v not orthogonal: %v", n, tb)
		}
		if math.Abs(tb[0].Len()-1) > 1e-12 || math.Abs(tb[1].Len()-1) > 1e-12 {
			t.Errorf("basis for %v not unit: %v", n, tb)
		}
	}
}

func TestBallJoint_PinsAnchor(t *testing.T) {
	pivot := newSphere(t, 1, mgl64.Vec3{}, body.Options{Static: true})
	bob := newSphere(t, 2, mgl64.Vec3{1, 0, 0}, body.Options{LinearVelocity: mgl64.Vec3{1, -2, 0}})
	j := NewBallJoint(pivot, bob, mgl64.Vec3{})

	newSolver(t).Solve(nil, []Joint{j}, 1.0/60.0)

	r := j.B.Pose().Transform(j.LocalAnchorB).Sub(bob.CenterOfMass())
	if v := anchorVelocity(bob, r); v.Len() > 1e-9 {
		t.Errorf("anchor still moving: %v", v)
	}
	if j.Error().Len() > 1e-12 {
		t.Errorf("unexpected joint error %v", j.Error())
	}
}

func TestBallJoint_SingularCountedAsDegenerate(t *testing.T) {
	a := newSphere(t, 1, mgl64.Vec3{}, body.Options{Static: true})
	b := newSphere(t, 2, mgl64.Vec3{1, 0, 0}, body.Options{Static: true})
	ball := NewBallJoint(a, b, mgl64.Vec3{0.5, 0, 0})
	free := NewBallJoint(a, newSphere(t, 3, mgl64.Vec3{-1, 0, 0}, body.Options{}), mgl64.Vec3{-0.5, 0, 0})

	stats := newSolver(t).Solve(nil, []Joint{ball, free}, 1.0/60.0)
	if stats.Degenerate != 1 {
		t.Errorf("expected one degenerate joint, got %d", stats.Degenerate)
	}
	if ball.impulse != (mgl64.Vec3{}) {
		t.Errorf("singular joint accumulated impulse %v", ball.impulse)
	}
	if v := b.LinearVelocity(); v != (mgl64.Vec3{}) {
		t.Errorf("static body moved: %v", v)
	}
}

func TestDistanceJoint_HoldsLength(t *testing.T) {
	a := newSphere(t, 1, mgl64.Vec3{-1, 0, 0}, body.Options{LinearVelocity: mgl64.Vec3{-1, 0, 0}})
	b := newSphere(t, 2, mgl64.Vec3{1, 0, 0}, body.Options{LinearVelocity: mgl64.Vec3{1, 0.5, 0}})
	j := NewDistanceJoint(a, b, a.Pose().Position, b.Pose().Position)
	if math.Abs(j.Length-2) > 1e-12 {
		t.Fatalf("expected rest length 2, got %v", j.Length)
	}
	before := a.Momentum().Add(b.Momentum())

	newSolver(t).Solve(nil, []Joint{j}, 1.0/60.0)

	rel := b.LinearVelocity().Sub(a.LinearVelocity())
	if math.Abs(rel[0]) > 1e-9 {
		t.Errorf("bodies still separating: %v", rel)
	}
	if math.Abs(rel[1]-0.5) > 1e-9 {
		t.Errorf("perpendicular motion changed: %v", rel)
	}
	if after := a.Momentum().Add(b.Momentum()); after.Sub(before).Len() > 1e-9 {
		t.Errorf("momentum changed from %v to %v", before, after)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Iterations = 0
	cfg.Baumgarte = 2
	cfg.Slop = -1
	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 3 {
		t.Errorf("expected 3 errors, got %d: %v", got, err)
	}
}
