package analysis

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/storage"
)

// Trajectory is the sampled motion of one body.
type Trajectory struct {
	ID         body.ID
	Name       string
	Times      []float64
	Positions  []mgl64.Vec3
	Velocities []mgl64.Vec3
}

func (t *Trajectory) Len() int { return len(t.Times) }

func (t *Trajectory) add(time float64, p, v mgl64.Vec3) {
	t.Times = append(t.Times, time)
	t.Positions = append(t.Positions, p)
	t.Velocities = append(t.Velocities, v)
}

// Component returns one coordinate of every position.
func (t *Trajectory) Component(axis int) []float64 {
	out := make([]float64, len(t.Positions))
	for i, p := range t.Positions {
		out[i] = p[axis]
	}
	return out
}

// FromFrames splits frames into per-body trajectories, ordered by ID.
// Static bodies are left out.
func FromFrames(frames []*frame.Frame, names map[body.ID]string) []Trajectory {
	byID := make(map[body.ID]*Trajectory)
	for _, f := range frames {
		for _, b := range f.Bodies {
			if b.Static {
				continue
			}
			tr, ok := byID[b.ID]
			if !ok {
				tr = &Trajectory{ID: b.ID, Name: names[b.ID]}
				byID[b.ID] = tr
			}
			tr.add(f.Time, b.Pose.Position, b.LinearVelocity)
		}
	}
	return collect(byID)
}

// FromSamples groups stored samples into trajectories, ordered by ID.
// Bodies that never move are left out.
func FromSamples(samples []storage.Sample) []Trajectory {
	byID := make(map[body.ID]*Trajectory)
	moved := make(map[body.ID]bool)
	for _, s := range samples {
		tr, ok := byID[s.ID]
		if !ok {
			tr = &Trajectory{ID: s.ID, Name: s.Name}
			byID[s.ID] = tr
		} else if s.Pose.Position != tr.Positions[0] {
			moved[s.ID] = true
		}
		tr.add(s.Time, s.Pose.Position, s.LinearVelocity)
	}
	for id := range byID {
		if !moved[id] {
			delete(byID, id)
		}
	}
	return collect(byID)
}

func collect(byID map[body.ID]*Trajectory) []Trajectory {
	out := make([]Trajectory, 0, len(byID))
	for _, tr := range byID {
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the first trajectory named name.
func Find(trs []Trajectory, name string) (Trajectory, bool) {
	for _, tr := range trs {
		if tr.Name == name {
			return tr, true
		}
	}
	return Trajectory{}, false
}
