// Package solver resolves contacts and joints with sequential impulses.
//
// Each step the solver computes effective masses and velocity targets for
// every contact point, applies impulses remembered from the previous step,
// then iterates over all constraints clamping the accumulated normal
// impulse to be non-negative and the friction impulse to the Coulomb
// pyramid.
package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Stats summarizes one Solve call.
type Stats struct {
	Contacts    int
	Points      int
	Joints      int
	WarmStarted int
	Degenerate  int
	Pruned      int
	// MaxNormalImpulse is the largest accumulated normal impulse.
	MaxNormalImpulse float64
}

// ContactSolver owns the warm-start cache and runs the iterations.
type ContactSolver struct {
	cfg    Config
	cache  *Cache
	logger *zap.Logger
	step   uint64
}

func NewContactSolver(cfg Config, logger *zap.Logger) *ContactSolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	return &ContactSolver{
		cfg:    cfg,
		cache:  NewCache(),
		logger: logger.Named("solver"),
	}
}

func (s *ContactSolver) Config() Config { return s.cfg }
func (s *ContactSolver) Cache() *Cache { return s.cache }

// Solve applies contact and joint impulses to the bodies' velocities.
func (s *ContactSolver) Solve(contacts []*Contact, joints []Joint, dt float64) Stats {
	s.step++
	stats := Stats{Contacts: len(contacts), Joints: len(joints)}
	if dt <= 0 {
		return stats
	}

	for _, c := range contacts {
		stats.Points += len(c.Points)
		s.prepare(c, dt, &stats)
	}
	for _, j := range joints {
		if !j.PreStep(dt, s.cfg) {
			stats.Degenerate++
			continue
		}
		if s.cfg.WarmStarting {
			j.WarmStart()
		}
	}

	for it := 0; it < s.cfg.Iterations; it++ {
		for _, j := range joints {
			j.Solve()
		}
		for _, c := range contacts {
			solveContact(c)
		}
	}

	for _, c := range contacts {
		for i := range c.Points {
			p := &c.Points[i]
			p.TangentImpulse = c.tangents[0].Mul(p.tangentImpulse[0]).Add(c.tangents[1].Mul(p.tangentImpulse[1]))
			p.State = StateResolved
			stats.MaxNormalImpulse = math.Max(stats.MaxNormalImpulse, p.NormalImpulse)
			if !p.degenerate {
				s.cache.Store(c.Key(i), p.NormalImpulse, p.TangentImpulse, s.step)
			}
		}
	}
	stats.Pruned = s.cache.Prune(s.step, s.cfg.GracePeriod)

	if stats.Degenerate > 0 {
		s.logger.Debug("skipped degenerate rows",
			zap.Int("rows", stats.Degenerate),
			zap.Uint64("step", s.step),
		)
	}
	return stats
}

func (s *ContactSolver) prepare(c *Contact, dt float64, stats *Stats) {
	a, b := c.A, c.B
	c.tangents = tangentBasis(c.Normal)
	comA, comB := a.CenterOfMass(), b.CenterOfMass()
	// persistent contacts bounce only above the restitution threshold
	persistent := s.cache.Touching(a.ID(), b.ID())

	for i := range c.Points {
		p := &c.Points[i]
		p.rA = p.Position.Sub(comA)
		p.rB = p.Position.Sub(comB)
		p.State = StateNew
		p.NormalImpulse = 0
		p.tangentImpulse = [2]float64{}

		p.normalMass = effectiveMass(a, b, p.rA, p.rB, c.Normal, s.cfg.MinEffectiveMass)
		p.degenerate = p.normalMass == 0
		if p.degenerate {
			stats.Degenerate++
			continue
		}
		for k := 0; k < 2; k++ {
			p.tangentMass[k] = effectiveMass(a, b, p.rA, p.rB, c.tangents[k], s.cfg.MinEffectiveMass)
		}

		vn := relativeVelocity(a, b, p.rA, p.rB).Dot(c.Normal)
		bounce := 0.0
		if vn < 0 && (!persistent || vn < -s.cfg.RestitutionThreshold) {
			bounce = -c.Restitution * vn
		}
		bias := s.cfg.Baumgarte / dt * math.Max(0, p.Depth-s.cfg.Slop)
		p.velocityTarget = math.Max(bounce, bias)
	}

	if !s.cfg.WarmStarting {
		return
	}
	// targets above use the pre-warm-start velocities
	for i := range c.Points {
		p := &c.Points[i]
		if p.degenerate {
			continue
		}
		jn, jt, ok := s.cache.Lookup(c.Key(i))
		if !ok {
			continue
		}
		p.NormalImpulse = jn
		p.tangentImpulse[0] = jt.Dot(c.tangents[0])
		p.tangentImpulse[1] = jt.Dot(c.tangents[1])
		impulse := c.Normal.Mul(jn).
			Add(c.tangents[0].Mul(p.tangentImpulse[0])).
			Add(c.tangents[1].Mul(p.tangentImpulse[1]))
		applyPair(a, b, impulse, p.rA, p.rB)
		p.State = StateWarmStarted
		stats.WarmStarted++
	}
}

func solveContact(c *Contact) {
	a, b := c.A, c.B
	for i := range c.Points {
		p := &c.Points[i]
		if p.degenerate {
			continue
		}

		vn := relativeVelocity(a, b, p.rA, p.rB).Dot(c.Normal)
		lambda := p.normalMass * (p.velocityTarget - vn)
		acc := math.Max(p.NormalImpulse+lambda, 0)
		lambda = acc - p.NormalImpulse
		p.NormalImpulse = acc
		applyPair(a, b, c.Normal.Mul(lambda), p.rA, p.rB)

		limit := c.Friction * p.NormalImpulse
		for k, t := range c.tangents {
			if p.tangentMass[k] == 0 {
				continue
			}
			vt := relativeVelocity(a, b, p.rA, p.rB).Dot(t)
			lambda := -p.tangentMass[k] * vt
			acc := mgl64.Clamp(p.tangentImpulse[k]+lambda, -limit, limit)
			lambda = acc - p.tangentImpulse[k]
			p.tangentImpulse[k] = acc
			applyPair(a, b, t.Mul(lambda), p.rA, p.rB)
		}
	}
}
