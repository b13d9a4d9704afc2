// Package frame holds immutable per-step snapshots of a world and a
// double buffer that hands them to a reader without locks.
package frame

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/shape"
	"go.uber.org/atomic"
)

// BodyState is the renderable state of one body at a step boundary.
type BodyState struct {
	ID              body.ID
	Kind            shape.Kind
	Pose            body.Pose
	Mass            float64
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	KineticEnergy   float64
	Static          bool
	Sleeping        bool
}

// Frame is a snapshot taken after a step. Bodies are sorted by ID.
type Frame struct {
	Step     uint64
	Time     float64
	Gravity  mgl64.Vec3
	Bodies   []BodyState
	Contacts int

	// deepest contact penetration seen in the step
	MaxPenetration float64
}

// Body finds the state of id.
func (f *Frame) Body(id body.ID) (BodyState, bool) {
	i := sort.Search(len(f.Bodies), func(i int) bool { return f.Bodies[i].ID >= id })
	if i < len(f.Bodies) && f.Bodies[i].ID == id {
		return f.Bodies[i], true
	}
	return BodyState{}, false
}

// Matrices returns the model matrix of every body keyed by ID.
func (f *Frame) Matrices() map[body.ID]mgl64.Mat4 {
	out := make(map[body.ID]mgl64.Mat4, len(f.Bodies))
	for _, b := range f.Bodies {
		out[b.ID] = b.Pose.Matrix()
	}
	return out
}

// Buffer publishes frames from the simulation goroutine to any number of
// readers. A published frame is never modified again.
type Buffer struct {
	front     atomic.Pointer[Frame]
	back      atomic.Pointer[Frame]
	published atomic.Uint64
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Publish makes f the latest frame; the previous one becomes Previous.
func (b *Buffer) Publish(f *Frame) {
	old := b.front.Swap(f)
	b.back.Store(old)
	b.published.Inc()
}

// Latest returns the newest frame or nil before the first Publish.
func (b *Buffer) Latest() *Frame {
	return b.front.Load()
}

// Previous returns the frame before Latest, for interpolation.
func (b *Buffer) Previous() *Frame {
	return b.back.Load()
}

func (b *Buffer) Published() uint64 {
	return b.published.Load()
}

// Interpolate blends the pose of id between Previous and Latest. alpha is
// clamped to [0,1]; without a previous frame the latest pose is returned.
func (b *Buffer) Interpolate(id body.ID, alpha float64) (body.Pose, bool) {
	cur := b.Latest()
	if cur == nil {
		return body.Pose{}, false
	}
	to, ok := cur.Body(id)
	if !ok {
		return body.Pose{}, false
	}
	prev := b.Previous()
	if prev == nil {
		return to.Pose, true
	}
	from, ok := prev.Body(id)
	if !ok {
		return to.Pose, true
	}
	alpha = mgl64.Clamp(alpha, 0, 1)
	return body.Pose{
		Position:    from.Pose.Position.Add(to.Pose.Position.Sub(from.Pose.Position).Mul(alpha)),
		Orientation: mgl64.QuatNlerp(from.Pose.Orientation, to.Pose.Orientation, alpha),
	}, true
}
