package world

import (
	"sort"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/solver"
	"go.uber.org/zap"
)

// islands is a union-find over dynamic bodies connected by contacts or
// joints. Static bodies never join an island, so two stacks on the same
// ground stay separate.
type islands struct {
	parent map[body.ID]body.ID
}

func newIslands() *islands {
	return &islands{parent: make(map[body.ID]body.ID)}
}

func (is *islands) find(id body.ID) body.ID {
	p, ok := is.parent[id]
	if !ok {
		is.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := is.find(p)
	is.parent[id] = root
	return root
}

func (is *islands) union(a, b *body.RigidBody) {
	if a.IsStatic() || b.IsStatic() {
		return
	}
	ra, rb := is.find(a.ID()), is.find(b.ID())
	if ra == rb {
		return
	}
	// smaller id wins so groups come out the same on every run
	if rb < ra {
		ra, rb = rb, ra
	}
	is.parent[rb] = ra
}

// groups returns the members of every island, each sorted by id.
func (is *islands) groups() map[body.ID][]body.ID {
	out := make(map[body.ID][]body.ID)
	for id := range is.parent {
		root := is.find(id)
		out[root] = append(out[root], id)
	}
	for _, g := range out {
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
	}
	return out
}

// updateSleep puts whole islands to sleep once every member has been calm
// for SleepSteps steps. Members already asleep count as calm and bring
// their old island along.
func (w *World) updateSleep(bodies []*body.RigidBody, contacts []*solver.Contact) {
	is := newIslands()
	for _, b := range bodies {
		if b.Awake() {
			is.find(b.ID())
			b.UpdateCalm(w.cfg.SleepThreshold)
		}
	}
	for _, c := range contacts {
		is.union(c.A, c.B)
	}
	for _, j := range w.joints {
		a, b := j.Bodies()
		is.union(a, b)
	}

	roots := make([]body.ID, 0)
	groups := is.groups()
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, root := range roots {
		members := groups[root]
		if !w.islandCalm(members) {
			continue
		}
		all := w.expandSleeping(members)
		for _, id := range all {
			w.bodies[id].Sleep()
			w.sleepGroups[id] = all
		}
		w.logger.Debug("island asleep",
			zap.Uint64("root", uint64(root)),
			zap.Int("bodies", len(all)),
		)
	}
}

func (w *World) islandCalm(members []body.ID) bool {
	awake := false
	for _, id := range members {
		b := w.bodies[id]
		if b.IsSleeping() {
			continue
		}
		awake = true
		if b.CalmSteps() < w.cfg.SleepSteps {
			return false
		}
	}
	return awake
}

// expandSleeping adds the islands of members that are already asleep.
func (w *World) expandSleeping(members []body.ID) []body.ID {
	seen := make(map[body.ID]bool, len(members))
	out := make([]body.ID, 0, len(members))
	add := func(id body.ID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range members {
		add(id)
		for _, other := range w.sleepGroups[id] {
			if b, ok := w.bodies[other]; ok && b.IsSleeping() {
				add(other)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// wakeIsland wakes b together with every body it fell asleep with.
func (w *World) wakeIsland(b *body.RigidBody) {
	group, ok := w.sleepGroups[b.ID()]
	if !ok {
		if b.IsSleeping() {
			b.Wake()
		}
		return
	}
	for _, id := range group {
		delete(w.sleepGroups, id)
		if other, ok := w.bodies[id]; ok && other.IsSleeping() {
			other.Wake()
		}
	}
	if b.IsSleeping() {
		b.Wake()
	}
	w.logger.Debug("island woken",
		zap.Uint64("id", uint64(b.ID())),
		zap.Int("bodies", len(group)),
	)
}

// wakeOverlapping wakes the islands of sleeping bodies whose bounds
// overlap box.
func (w *World) wakeOverlapping(box shape.AABB) {
	for _, id := range w.order {
		b := w.bodies[id]
		if !b.IsSleeping() {
			continue
		}
		pose := b.Pose()
		if b.Shape().WorldAABB(pose.Position, pose.Orientation).Overlaps(box) {
			w.wakeIsland(b)
		}
	}
}
