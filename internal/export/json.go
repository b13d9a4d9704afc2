package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
)

type BodyData struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Kind            string     `json:"kind"`
	Position        [3]float64 `json:"position"`
	Orientation     [4]float64 `json:"orientation"`
	LinearVelocity  [3]float64 `json:"linear_velocity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
	Static          bool       `json:"static,omitempty"`
	Sleeping        bool       `json:"sleeping,omitempty"`
}

type FrameData struct {
	Step     uint64     `json:"step"`
	Time     float64    `json:"time"`
	Contacts int        `json:"contacts"`
	Bodies   []BodyData `json:"bodies"`
}

// ExportData is the JSON document of one run. Orientations are w, x, y, z.
type ExportData struct {
	Scene      string             `json:"scene"`
	TimeStep   float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	BroadPhase string             `json:"broad_phase"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
	Frames     []FrameData        `json:"frames"`
}

func NewExportData(cfg *config.Config, result *experiment.Result) ExportData {
	data := ExportData{
		Scene:      cfg.Name,
		TimeStep:   cfg.World.TimeStep,
		Duration:   cfg.Duration,
		BroadPhase: cfg.World.BroadPhase,
		Steps:      result.Steps,
		Metrics:    result.Metrics,
		Frames:     make([]FrameData, len(result.Frames)),
	}
	for i, f := range result.Frames {
		fd := FrameData{Step: f.Step, Time: f.Time, Contacts: f.Contacts, Bodies: make([]BodyData, len(f.Bodies))}
		for j, b := range f.Bodies {
			q := b.Pose.Orientation
			fd.Bodies[j] = BodyData{
				ID:              uint64(b.ID),
				Name:            result.Names[b.ID],
				Kind:            b.Kind.String(),
				Position:        b.Pose.Position,
				Orientation:     [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
				LinearVelocity:  b.LinearVelocity,
				AngularVelocity: b.AngularVelocity,
				Static:          b.Static,
				Sleeping:        b.Sleeping,
			}
		}
		data.Frames[i] = fd
	}
	return data
}

// ExportJSON writes the indented JSON document of the run to w.
func ExportJSON(w io.Writer, cfg *config.Config, result *experiment.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(cfg, result))
}
