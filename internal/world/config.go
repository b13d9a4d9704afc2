package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/solver"
	"go.uber.org/multierr"
)

const (
	DefaultTimeStep       = 1.0 / 60.0
	DefaultWorkers        = 4
	DefaultSleepThreshold = 0.005
	DefaultSleepSteps     = 60
	DefaultMargin         = 0.02
	// below this many pairs the narrow phase runs on the calling goroutine
	DefaultParallelThreshold = 32
)

// Config holds the fixed parameters of a world.
type Config struct {
	Gravity           mgl64.Vec3    `yaml:"gravity"`
	TimeStep          float64       `yaml:"time_step"`
	BroadPhase        string        `yaml:"broad_phase"`
	Workers           int           `yaml:"workers"`
	ParallelThreshold int           `yaml:"parallel_threshold"`
	Margin            float64       `yaml:"margin"`
	Sleeping          bool          `yaml:"sleeping"`
	SleepThreshold    float64       `yaml:"sleep_threshold"`
	SleepSteps        int           `yaml:"sleep_steps"`
	Solver            solver.Config `yaml:"solver"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:           mgl64.Vec3{0, -9.81, 0},
		TimeStep:          DefaultTimeStep,
		BroadPhase:        "sap",
		Workers:           DefaultWorkers,
		ParallelThreshold: DefaultParallelThreshold,
		Margin:            DefaultMargin,
		Sleeping:          true,
		SleepThreshold:    DefaultSleepThreshold,
		SleepSteps:        DefaultSleepSteps,
		Solver:            solver.DefaultConfig(),
	}
}

// Validate collects every problem with the config.
func (c Config) Validate() error {
	var err error
	if !(c.TimeStep > 0) || c.TimeStep > 1 {
		err = multierr.Append(err, fmt.Errorf("time step must be in (0,1], got %v", c.TimeStep))
	}
	if !lo.Contains(broadphase.Names(), c.BroadPhase) && c.BroadPhase != "" {
		err = multierr.Append(err, fmt.Errorf("unknown broad phase %q (want one of %v)", c.BroadPhase, broadphase.Names()))
	}
	if c.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Margin < 0 {
		err = multierr.Append(err, fmt.Errorf("margin must be non-negative, got %v", c.Margin))
	}
	if c.Sleeping && (c.SleepThreshold < 0 || c.SleepSteps < 1) {
		err = multierr.Append(err, fmt.Errorf("sleeping needs threshold >= 0 and steps >= 1, got %v/%d", c.SleepThreshold, c.SleepSteps))
	}
	err = multierr.Append(err, c.Solver.Validate())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
