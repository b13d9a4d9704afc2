// Package loop paces a fixed-step simulation against a clock.
package loop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultMaxStepsPerAdvance bounds catch-up work after a slow frame.
const DefaultMaxStepsPerAdvance = 5

// Stepper advances a simulation by exactly one step of dt seconds.
type Stepper interface {
	Step(dt float64)
}

// Runner accumulates elapsed wall time and spends it in fixed steps.
type Runner struct {
	stepper  Stepper
	clock    clock.Clock
	logger   *zap.Logger
	dt       float64
	step     time.Duration
	maxSteps int

	started     bool
	last        time.Time
	accumulator time.Duration
	dropped     time.Duration
	steps       uint64
}

type Option func(*Runner)

func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner paces s at dt seconds per step.
func NewRunner(s Stepper, dt float64, opts ...Option) *Runner {
	r := &Runner{
		stepper:  s,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		dt:       dt,
		step:     time.Duration(dt * float64(time.Second)),
		maxSteps: DefaultMaxStepsPerAdvance,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.step <= 0 {
		r.step = time.Nanosecond
	}
	return r
}

// Advance runs as many steps as the time since the previous call allows,
// at most the configured maximum. Time beyond that is dropped. The first
// call only starts the clock.
func (r *Runner) Advance() int {
	now := r.clock.Now()
	if !r.started {
		r.started = true
		r.last = now
		return 0
	}
	r.accumulator += now.Sub(r.last)
	r.last = now

	n := 0
	for r.accumulator >= r.step && n < r.maxSteps {
		r.stepper.Step(r.dt)
		r.accumulator -= r.step
		n++
	}
	if r.accumulator >= r.step {
		excess := r.accumulator - r.accumulator%r.step
		r.dropped += excess
		r.accumulator -= excess
		r.logger.Debug("dropping simulation time", zap.Duration("excess", excess))
	}
	r.steps += uint64(n)
	return n
}

// Reset forgets the time since the last Advance, so a paused simulation
// resumes without catching up. The next Advance restarts the clock.
func (r *Runner) Reset() {
	r.started = false
	r.accumulator = 0
}

// Alpha is the fraction of a step left in the accumulator, used to
// interpolate between the last two frames.
func (r *Runner) Alpha() float64 {
	return float64(r.accumulator) / float64(r.step)
}

func (r *Runner) Steps() uint64 { return r.steps }
func (r *Runner) Dropped() time.Duration { return r.dropped }

// Run calls Advance every interval until ctx is done. onFrame, if set,
// receives the number of steps taken on each tick.
func (r *Runner) Run(ctx context.Context, interval time.Duration, onFrame func(steps int)) error {
	ticker := r.clock.Ticker(interval)
	defer ticker.Stop()
	r.Advance()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := r.Advance()
			if onFrame != nil {
				onFrame(n)
			}
		}
	}
}
