package solver

import (
	"fmt"

	"go.uber.org/multierr"
)

const (
	DefaultIterations           = 10
	DefaultBaumgarte            = 0.2
	DefaultSlop                 = 0.005
	// approach speed a persistent contact needs before it bounces
	DefaultRestitutionThreshold = 1.0
	DefaultGracePeriod          = 3
	// effective masses below this are treated as degenerate
	DefaultMinEffectiveMass = 1e-12
)

// Config tunes the sequential impulse solver.
type Config struct {
	Iterations           int     `yaml:"iterations"`
	Baumgarte            float64 `yaml:"baumgarte"`
	Slop                 float64 `yaml:"slop"`
	RestitutionThreshold float64 `yaml:"restitution_threshold"`
	WarmStarting         bool    `yaml:"warm_starting"`
	GracePeriod          int     `yaml:"grace_period"`
	MinEffectiveMass     float64 `yaml:"min_effective_mass"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:           DefaultIterations,
		Baumgarte:            DefaultBaumgarte,
		Slop:                 DefaultSlop,
		RestitutionThreshold: DefaultRestitutionThreshold,
		WarmStarting:         true,
		GracePeriod:          DefaultGracePeriod,
		MinEffectiveMass:     DefaultMinEffectiveMass,
	}
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var err error
	if c.Iterations < 1 {
		err = multierr.Append(err, fmt.Errorf("solver: iterations must be at least 1, got %d", c.Iterations))
	}
	if c.Baumgarte < 0 || c.Baumgarte > 1 {
		err = multierr.Append(err, fmt.Errorf("solver: baumgarte must be in [0,1], got %v", c.Baumgarte))
	}
	if c.Slop < 0 {
		err = multierr.Append(err, fmt.Errorf("solver: slop must be non-negative, got %v", c.Slop))
	}
	if c.RestitutionThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("solver: restitution threshold must be non-negative, got %v", c.RestitutionThreshold))
	}
	if c.GracePeriod < 0 {
		err = multierr.Append(err, fmt.Errorf("solver: grace period must be non-negative, got %d", c.GracePeriod))
	}
	return err
}
