package world

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/solver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type narrowResult struct {
	manifold narrowphase.Manifold
	hit      bool
}

// Step advances the world by one fixed time step. A dt different from the
// configured step is replaced by it.
func (w *World) Step(dt float64) {
	if dt != w.cfg.TimeStep {
		w.substituted++
		w.logger.Debug("substituting fixed time step",
			zap.Float64("requested", dt),
			zap.Float64("step", w.cfg.TimeStep),
		)
		dt = w.cfg.TimeStep
	}

	bodies := w.sortedBodies()
	for _, b := range bodies {
		w.integrator.IntegrateVelocity(b, w.cfg.Gravity, dt)
	}

	pairs := w.broad.Pairs(w.proxies(bodies, dt))
	results := w.collide(pairs)

	stats := Stats{Pairs: len(pairs), Substituted: w.substituted}
	contacts := make([]*solver.Contact, 0, len(pairs))
	for i, p := range pairs {
		r := results[i]
		stats.Narrow.Record(r.manifold, r.hit)
		if !r.hit || len(r.manifold.Points) == 0 {
			continue
		}
		a, b := w.bodies[p.A], w.bodies[p.B]
		w.wakeOnContact(a, b)
		if !a.Awake() && !b.Awake() {
			continue
		}
		stats.MaxPenetration = math.Max(stats.MaxPenetration, r.manifold.MaxDepth())
		contacts = append(contacts, solver.NewContact(a, b, r.manifold))
	}
	if stats.Narrow.Degenerate > 0 {
		w.logger.Debug("degenerate manifolds",
			zap.Int("count", stats.Narrow.Degenerate),
			zap.Uint64("step", w.steps+1),
		)
	}

	joints := w.activeJoints()
	stats.Solver = w.solver.Solve(contacts, joints, dt)

	for _, b := range bodies {
		w.integrator.IntegratePosition(b, dt)
	}
	if w.cfg.Sleeping {
		w.updateSleep(bodies, contacts)
	}

	w.contacts = contacts
	w.time += dt
	w.steps++

	stats.Step = w.steps
	stats.Bodies = len(bodies)
	for _, b := range bodies {
		switch {
		case b.IsSleeping():
			stats.Sleeping++
		case b.Awake():
			stats.Awake++
		}
	}
	w.stats = stats
	w.frames.Publish(w.Snapshot())
}

// proxies builds broad-phase boxes swept from the current pose to the pose
// predicted by the post-gravity velocity.
func (w *World) proxies(bodies []*body.RigidBody, dt float64) []broadphase.Proxy {
	out := make([]broadphase.Proxy, 0, len(bodies))
	for _, b := range bodies {
		if !b.Collidable() {
			continue
		}
		pose := b.Pose()
		bounds := b.Shape().WorldAABB(pose.Position, pose.Orientation)
		if b.Awake() {
			next := b.PredictPose(dt)
			bounds = bounds.Union(b.Shape().WorldAABB(next.Position, next.Orientation))
		}
		out = append(out, broadphase.Proxy{
			ID:       b.ID(),
			Bounds:   bounds.Expand(w.cfg.Margin),
			Static:   b.IsStatic(),
			Sleeping: b.IsSleeping(),
		})
	}
	return out
}

func collider(b *body.RigidBody) narrowphase.Collider {
	pose := b.Pose()
	return narrowphase.Collider{Shape: b.Shape(), Position: pose.Position, Rotation: pose.Orientation}
}

// collide runs the narrow phase over pairs. Workers write only their own
// slots, so the result order matches pairs.
func (w *World) collide(pairs []broadphase.Pair) []narrowResult {
	results := make([]narrowResult, len(pairs))
	run := func(start, end int) {
		for i := start; i < end; i++ {
			p := pairs[i]
			m, hit := narrowphase.Collide(collider(w.bodies[p.A]), collider(w.bodies[p.B]))
			results[i] = narrowResult{manifold: m, hit: hit}
		}
	}

	n := len(pairs)
	if n < w.cfg.ParallelThreshold || w.cfg.Workers <= 1 {
		run(0, n)
		return results
	}
	chunk := (n + w.cfg.Workers - 1) / w.cfg.Workers
	var g errgroup.Group
	g.SetLimit(w.cfg.Workers)
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		g.Go(func() error {
			run(start, end)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// wakeOnContact wakes the island of a sleeping body touched by an awake
// one that was moving at the end of the previous step. Velocity after this
// step's gravity does not count, so a body resting on a sleeper leaves it
// asleep and joins its island instead.
func (w *World) wakeOnContact(a, b *body.RigidBody) {
	wake := func(sleeper, other *body.RigidBody) {
		if sleeper.IsSleeping() && other.Awake() && other.CalmSteps() == 0 {
			w.logger.Debug("body woken by contact",
				zap.Uint64("id", uint64(sleeper.ID())),
				zap.Uint64("by", uint64(other.ID())),
			)
			w.wakeIsland(sleeper)
		}
	}
	wake(a, b)
	wake(b, a)
}

// activeJoints returns the joints with at least one awake body, waking the
// other side.
func (w *World) activeJoints() []solver.Joint {
	out := make([]solver.Joint, 0, len(w.jointOrder))
	for _, id := range w.jointOrder {
		j := w.joints[id]
		a, b := j.Bodies()
		if !a.Awake() && !b.Awake() {
			continue
		}
		if a.IsSleeping() {
			w.wakeIsland(a)
		}
		if b.IsSleeping() {
			w.wakeIsland(b)
		}
		out = append(out, j)
	}
	return out
}

