package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	posesFile    = "poses.csv"
	sceneFile    = "scene.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

var poseHeader = []string{
	"time", "step", "id", "name",
	"px", "py", "pz",
	"qw", "qx", "qy", "qz",
	"vx", "vy", "vz",
	"wx", "wy", "wz",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	TimeStep   float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	BroadPhase string             `json:"broad_phase"`
	Iterations int                `json:"iterations"`
	Bodies     int                `json:"bodies"`
	Steps      int                `json:"steps"`
	Frames     int                `json:"frames"`
	WallTime   time.Duration      `json:"wall_time"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Sample is one body's state in one recorded frame.
type Sample struct {
	Time            float64
	Step            uint64
	ID              body.ID
	Name            string
	Pose            body.Pose
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// Save writes the run's metadata and every sampled pose, returning the
// new run id.
func (s *Store) Save(cfg *config.Config, result *experiment.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	bodies := 0
	if len(result.Frames) > 0 {
		bodies = len(result.Frames[0].Bodies)
	}
	meta := RunMetadata{
		ID:         runID,
		Scene:      cfg.Name,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		TimeStep:   cfg.World.TimeStep,
		Duration:   cfg.Duration,
		BroadPhase: cfg.World.BroadPhase,
		Iterations: cfg.World.Solver.Iterations,
		Bodies:     bodies,
		Steps:      result.Steps,
		Frames:     len(result.Frames),
		WallTime:   result.Wall,
		Metrics:    result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, sceneFile), cfg); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, posesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WritePoses(f, result); err != nil {
		return "", err
	}
	return runID, nil
}

// WritePoses writes one CSV row per body per recorded frame.
func WritePoses(out io.Writer, result *experiment.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write(poseHeader); err != nil {
		return err
	}
	for _, f := range result.Frames {
		for _, b := range f.Bodies {
			p, q := b.Pose.Position, b.Pose.Orientation
			row := []string{
				formatFloat(f.Time),
				strconv.FormatUint(f.Step, 10),
				strconv.FormatUint(uint64(b.ID), 10),
				result.Names[b.ID],
			}
			for _, v := range []float64{
				p[0], p[1], p[2],
				q.W, q.V[0], q.V[1], q.V[2],
				b.LinearVelocity[0], b.LinearVelocity[1], b.LinearVelocity[2],
				b.AngularVelocity[0], b.AngularVelocity[1], b.AngularVelocity[2],
			} {
				row = append(row, formatFloat(v))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadConfig returns the scene a run was made from. Runs are
// deterministic, so running it again reproduces the stored poses.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	path := filepath.Join(s.baseDir, runID, sceneFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return config.Load(path)
}

// PosesPath is the CSV file holding the run's samples.
func (s *Store) PosesPath(runID string) string {
	return filepath.Join(s.baseDir, runID, posesFile)
}

// LoadPoses reads back the samples written by Save.
func (s *Store) LoadPoses(runID string) ([]Sample, error) {
	f, err := os.Open(s.PosesPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadPoses(f)
}

func ReadPoses(in io.Reader) ([]Sample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(poseHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		s, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("storage: poses line %d: %w", i+2, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseSample(rec []string) (Sample, error) {
	var s Sample
	var err error
	if s.Time, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return s, err
	}
	if s.Step, err = strconv.ParseUint(rec[1], 10, 64); err != nil {
		return s, err
	}
	id, err := strconv.ParseUint(rec[2], 10, 64)
	if err != nil {
		return s, err
	}
	s.ID = body.ID(id)
	s.Name = rec[3]

	vals := make([]float64, len(rec)-4)
	for i, field := range rec[4:] {
		if vals[i], err = strconv.ParseFloat(field, 64); err != nil {
			return s, fmt.Errorf("column %s: %w", poseHeader[i+4], err)
		}
	}
	s.Pose = body.Pose{
		Position:    mgl64.Vec3{vals[0], vals[1], vals[2]},
		Orientation: mgl64.Quat{W: vals[3], V: mgl64.Vec3{vals[4], vals[5], vals[6]}},
	}
	s.LinearVelocity = mgl64.Vec3{vals[7], vals[8], vals[9]}
	s.AngularVelocity = mgl64.Vec3{vals[10], vals[11], vals[12]}
	return s, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
