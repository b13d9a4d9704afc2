package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/world"
	"go.uber.org/zap"
)

var (
	ErrNotSetup = errors.New("experiment: not set up")
	// ErrUnstable means a body left the finite range.
	ErrUnstable = errors.New("experiment: simulation unstable")
)

// StepError places a run failure at a step.
type StepError struct {
	Step int
	Time float64
	Body body.ID
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) body %d: %v", e.Step, e.Time, e.Body, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// diverged returns the first body whose state is not finite.
func diverged(f *frame.Frame) (body.ID, bool) {
	for _, b := range f.Bodies {
		p, q, v := b.Pose.Position, b.Pose.Orientation, b.LinearVelocity
		for _, x := range []float64{p[0], p[1], p[2], q.W, q.V[0], q.V[1], q.V[2], v[0], v[1], v[2]} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return b.ID, true
			}
		}
	}
	return 0, false
}

// Result is the recorded outcome of one run.
type Result struct {
	Scene   string
	Frames  []*frame.Frame
	Names   map[body.ID]string
	Metrics map[string]float64
	Steps   int
	Wall    time.Duration
	Final   world.Stats
}

// Experiment runs a scene for its configured duration.
type Experiment struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics []metrics.Metric
	scene   *config.Scene
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{cfg: cfg, logger: logger.Named("experiment")}
}

func (e *Experiment) AddMetric(m metrics.Metric) { e.metrics = append(e.metrics, m) }

// Setup builds the world. It must be called before Run.
func (e *Experiment) Setup() error {
	w, err := world.New(e.cfg.World, e.logger)
	if err != nil {
		return err
	}
	scene, err := e.cfg.Build(w)
	if err != nil {
		return err
	}
	e.scene = scene
	return nil
}

// World returns the world built by Setup, or nil.
func (e *Experiment) World() *world.World {
	if e.scene == nil {
		return nil
	}
	return e.scene.World
}

// Steps is the number of fixed steps covering the configured duration.
func (e *Experiment) Steps() int {
	return int(math.Round(e.cfg.Duration / e.cfg.World.TimeStep))
}

// Run steps the world, sampling a frame every SampleEvery steps. On
// cancellation the partial result is returned with the context error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.scene == nil {
		return nil, ErrNotSetup
	}
	w := e.scene.World
	steps := e.Steps()
	every := max(e.cfg.SampleEvery, 1)

	result := &Result{
		Scene:   e.cfg.Name,
		Frames:  make([]*frame.Frame, 0, steps/every+2),
		Names:   e.scene.Names,
		Metrics: make(map[string]float64),
	}
	for _, m := range e.metrics {
		m.Reset()
	}
	result.Frames = append(result.Frames, w.Snapshot())

	e.logger.Info("run started",
		zap.String("scene", e.cfg.Name),
		zap.Int("bodies", len(w.Bodies())),
		zap.Int("steps", steps),
	)
	start := time.Now()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Wall = time.Since(start)
			return result, ctx.Err()
		default:
		}

		w.Step(e.cfg.World.TimeStep)
		f := w.Frames().Latest()
		if id, bad := diverged(f); bad {
			result.Wall = time.Since(start)
			result.Final = w.Stats()
			e.logger.Warn("run diverged", zap.Int("step", i+1), zap.Uint64("body", uint64(id)))
			return result, &StepError{Step: i + 1, Time: f.Time, Body: id, Err: ErrUnstable}
		}
		for _, m := range e.metrics {
			m.Observe(f, w.Stats())
		}
		if (i+1)%every == 0 || i == steps-1 {
			result.Frames = append(result.Frames, f)
		}
		result.Steps++
	}
	result.Wall = time.Since(start)
	result.Final = w.Stats()
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	e.logger.Info("run finished",
		zap.String("scene", e.cfg.Name),
		zap.Duration("wall", result.Wall),
		zap.Int("frames", len(result.Frames)),
	)
	return result, nil
}

// Run sets up and runs cfg with the default metrics.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	e := New(cfg, logger)
	if err := e.Setup(); err != nil {
		return nil, fmt.Errorf("experiment: setup %s: %w", cfg.Name, err)
	}
	for _, m := range metrics.Default() {
		e.AddMetric(m)
	}
	return e.Run(ctx)
}
