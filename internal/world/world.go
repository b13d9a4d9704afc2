// Package world owns a set of rigid bodies and joints and advances them in
// fixed time steps.
//
// A step integrates velocities, finds candidate pairs in the broad phase,
// computes contact manifolds in parallel, resolves contacts and joints with
// the impulse solver and finally integrates positions. After every step an
// immutable frame is published for renderers on other goroutines.
package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/solver"
	"go.uber.org/zap"
)

// JointID identifies a joint within a world.
type JointID uint64

// Stats describes the most recent step.
type Stats struct {
	Step           uint64
	Bodies         int
	Awake          int
	Sleeping       int
	Pairs          int
	Narrow         narrowphase.Stats
	Solver         solver.Stats
	MaxPenetration float64
	// Substituted counts Step calls whose dt differed from the fixed step.
	Substituted int
}

type World struct {
	cfg    Config
	logger *zap.Logger

	bodies map[body.ID]*body.RigidBody
	order  []body.ID
	nextID body.ID

	joints     map[JointID]solver.Joint
	jointOrder []JointID
	nextJoint  JointID

	integrator integrators.Integrator
	broad      broadphase.BroadPhase
	solver     *solver.ContactSolver
	frames     *frame.Buffer

	contacts []*solver.Contact
	// island each sleeping body fell asleep with
	sleepGroups map[body.ID][]body.ID

	time        float64
	steps       uint64
	substituted int
	stats       Stats
}

// New creates an empty world. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	broad, ok := broadphase.New(cfg.BroadPhase)
	if !ok {
		return nil, fmt.Errorf("%w: broad phase %q", ErrInvalidConfig, cfg.BroadPhase)
	}
	logger = logger.Named("world")
	return &World{
		cfg:         cfg,
		logger:      logger,
		bodies:      make(map[body.ID]*body.RigidBody),
		joints:      make(map[JointID]solver.Joint),
		sleepGroups: make(map[body.ID][]body.ID),
		integrator:  integrators.NewSymplecticEuler(),
		broad:       broad,
		solver:      solver.NewContactSolver(cfg.Solver, logger),
		frames:      frame.NewBuffer(),
	}, nil
}

func (w *World) Config() Config { return w.cfg }
func (w *World) Time() float64 { return w.time }
func (w *World) StepCount() uint64 { return w.steps }
func (w *World) Stats() Stats { return w.stats }
func (w *World) Frames() *frame.Buffer { return w.frames }

// AddBody creates a body and returns its id. Ids are never reused.
func (w *World) AddBody(s *shape.Shape, pose body.Pose, density float64, opts body.Options) (body.ID, error) {
	id := w.nextID + 1
	b, err := body.New(id, s, pose, density, opts)
	if err != nil {
		return 0, &ConstructionError{Op: "add body", Err: err}
	}
	w.nextID = id
	w.bodies[id] = b
	w.order = append(w.order, id)
	w.logger.Debug("body added",
		zap.Uint64("id", uint64(id)),
		zap.Stringer("shape", s.Kind()),
		zap.Bool("static", opts.Static),
	)
	return id, nil
}

// RemoveBody deletes the body together with its joints and cached
// contacts. Bodies that were touching it, its island and sleeping bodies
// overlapping its bounds are woken.
func (w *World) RemoveBody(id body.ID) error {
	removed, ok := w.bodies[id]
	if !ok {
		return bodyNotFound(id)
	}
	pose := removed.Pose()
	bounds := removed.Shape().WorldAABB(pose.Position, pose.Orientation).Expand(w.cfg.Margin)
	w.wakeIsland(removed)
	delete(w.bodies, id)
	w.order = lo.Without(w.order, id)

	for _, jid := range w.jointOrder {
		a, b := w.joints[jid].Bodies()
		if a.ID() == id || b.ID() == id {
			other := a
			if a.ID() == id {
				other = b
			}
			w.wakeIsland(other)
			delete(w.joints, jid)
		}
	}
	w.jointOrder = lo.Filter(w.jointOrder, func(jid JointID, _ int) bool {
		_, ok := w.joints[jid]
		return ok
	})

	w.contacts = lo.Filter(w.contacts, func(c *solver.Contact, _ int) bool {
		switch id {
		case c.A.ID():
			w.wakeIsland(c.B)
		case c.B.ID():
			w.wakeIsland(c.A)
		default:
			return true
		}
		return false
	})
	w.wakeOverlapping(bounds)
	w.solver.Cache().RemoveBody(id)
	w.logger.Debug("body removed", zap.Uint64("id", uint64(id)))
	return nil
}

// Body returns the live body. Callers must not mutate it while another
// goroutine is stepping the world.
func (w *World) Body(id body.ID) (*body.RigidBody, error) {
	b, ok := w.bodies[id]
	if !ok {
		return nil, bodyNotFound(id)
	}
	return b, nil
}

// Bodies lists the ids in ascending order.
func (w *World) Bodies() []body.ID {
	return append([]body.ID(nil), w.order...)
}

func (w *World) BodyPose(id body.ID) (body.Pose, error) {
	b, err := w.Body(id)
	if err != nil {
		return body.Pose{}, err
	}
	return b.Pose(), nil
}

// ApplyForce accumulates a force at a world point for the next step.
func (w *World) ApplyForce(id body.ID, force, point mgl64.Vec3) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	w.wakeIsland(b)
	b.ApplyForce(force, point)
	return nil
}

// ApplyImpulse changes the body's velocity immediately.
func (w *World) ApplyImpulse(id body.ID, impulse, point mgl64.Vec3) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	w.wakeIsland(b)
	b.ApplyImpulse(impulse, point)
	return nil
}

// AddBallJoint pins bodies a and b together at the world point anchor.
func (w *World) AddBallJoint(a, b body.ID, anchor mgl64.Vec3) (JointID, error) {
	ba, bb, err := w.jointBodies(a, b)
	if err != nil {
		return 0, err
	}
	return w.addJoint(solver.NewBallJoint(ba, bb, anchor)), nil
}

// AddDistanceJoint keeps the world points anchorA on a and anchorB on b at
// their current distance.
func (w *World) AddDistanceJoint(a, b body.ID, anchorA, anchorB mgl64.Vec3) (JointID, error) {
	ba, bb, err := w.jointBodies(a, b)
	if err != nil {
		return 0, err
	}
	if anchorB.Sub(anchorA).Len() < 1e-9 {
		return 0, fmt.Errorf("%w: coincident distance joint anchors", ErrInvalidJoint)
	}
	return w.addJoint(solver.NewDistanceJoint(ba, bb, anchorA, anchorB)), nil
}

func (w *World) RemoveJoint(id JointID) error {
	j, ok := w.joints[id]
	if !ok {
		return &LookupError{Kind: "joint", ID: uint64(id)}
	}
	a, b := j.Bodies()
	w.wakeIsland(a)
	w.wakeIsland(b)
	delete(w.joints, id)
	w.jointOrder = lo.Without(w.jointOrder, id)
	return nil
}

// Joints lists the joint ids in creation order.
func (w *World) Joints() []JointID {
	return append([]JointID(nil), w.jointOrder...)
}

func (w *World) jointBodies(a, b body.ID) (*body.RigidBody, *body.RigidBody, error) {
	if a == b {
		return nil, nil, fmt.Errorf("%w: body %d joined to itself", ErrInvalidJoint, a)
	}
	ba, err := w.Body(a)
	if err != nil {
		return nil, nil, err
	}
	bb, err := w.Body(b)
	if err != nil {
		return nil, nil, err
	}
	if ba.IsStatic() && bb.IsStatic() {
		return nil, nil, fmt.Errorf("%w: both bodies are static", ErrInvalidJoint)
	}
	return ba, bb, nil
}

func (w *World) addJoint(j solver.Joint) JointID {
	w.nextJoint++
	id := w.nextJoint
	w.joints[id] = j
	w.jointOrder = append(w.jointOrder, id)
	a, b := j.Bodies()
	a.Wake()
	b.Wake()
	return id
}

// Contacts returns a copy of the contacts resolved in the last step.
func (w *World) Contacts() []solver.Contact {
	out := make([]solver.Contact, len(w.contacts))
	for i, c := range w.contacts {
		out[i] = *c
		out[i].Points = append([]solver.ContactPoint(nil), c.Points...)
	}
	return out
}

// Snapshot captures the current state as a frame.
func (w *World) Snapshot() *frame.Frame {
	f := &frame.Frame{
		Step:           w.steps,
		Time:           w.time,
		Gravity:        w.cfg.Gravity,
		Bodies:         make([]frame.BodyState, 0, len(w.order)),
		Contacts:       len(w.contacts),
		MaxPenetration: w.stats.MaxPenetration,
	}
	for _, id := range w.order {
		b := w.bodies[id]
		f.Bodies = append(f.Bodies, frame.BodyState{
			ID:              id,
			Kind:            b.Shape().Kind(),
			Pose:            b.Pose(),
			Mass:            b.Mass(),
			LinearVelocity:  b.LinearVelocity(),
			AngularVelocity: b.AngularVelocity(),
			KineticEnergy:   b.KineticEnergy(),
			Static:          b.IsStatic(),
			Sleeping:        b.IsSleeping(),
		})
	}
	return f
}

// sortedBodies returns the bodies in id order.
func (w *World) sortedBodies() []*body.RigidBody {
	out := make([]*body.RigidBody, len(w.order))
	for i, id := range w.order {
		out[i] = w.bodies[id]
	}
	return out
}
