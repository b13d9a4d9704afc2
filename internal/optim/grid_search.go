// Package optim tunes scene parameters by exhaustive search.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoResult = errors.New("optim: no grid point completed")

// Setters maps the tunable parameter names to the config fields they set.
var Setters = map[string]func(*config.Config, float64){
	"iterations":            func(c *config.Config, v float64) { c.World.Solver.Iterations = int(math.Round(v)) },
	"baumgarte":             func(c *config.Config, v float64) { c.World.Solver.Baumgarte = v },
	"slop":                  func(c *config.Config, v float64) { c.World.Solver.Slop = v },
	"restitution_threshold": func(c *config.Config, v float64) { c.World.Solver.RestitutionThreshold = v },
	"margin":                func(c *config.Config, v float64) { c.World.Margin = v },
	"dt":                    func(c *config.Config, v float64) { c.World.TimeStep = v },
}

func ParamNames() []string {
	names := lo.Keys(Setters)
	sort.Strings(names)
	return names
}

// Param is one axis of the grid.
type Param struct {
	Name   string
	Values []float64
}

// Point is an evaluated grid point.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	params  []Param
	workers int
	logger  *zap.Logger
}

func NewGridSearch(params []Param, workers int, logger *zap.Logger) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, errors.New("optim: no parameters")
	}
	for _, p := range params {
		if _, ok := Setters[p.Name]; !ok {
			return nil, fmt.Errorf("optim: unknown parameter %q (want one of %v)", p.Name, ParamNames())
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("optim: parameter %q has no values", p.Name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridSearch{params: params, workers: max(workers, 1), logger: logger.Named("optim")}, nil
}

// Points enumerates the grid, last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for _, p := range g.params {
		next := make([]map[string]float64, 0, len(points)*len(p.Values))
		for _, base := range points {
			for _, v := range p.Values {
				m := lo.Assign(base, map[string]float64{p.Name: v})
				next = append(next, m)
			}
		}
		points = next
	}
	return points
}

// Apply returns a copy of base with params set.
func Apply(base *config.Config, params map[string]float64) *config.Config {
	cfg := *base
	for name, v := range params {
		Setters[name](&cfg, v)
	}
	return &cfg
}

// Search runs base at every grid point and returns all points ordered by
// metric, lowest first. Points whose run fails sort last with a +Inf value
// and their error; only cancellation aborts the search.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metric string) ([]Point, error) {
	grid := g.Points()
	out := make([]Point, len(grid))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range grid {
		i, params := i, params
		eg.Go(func() error {
			out[i] = g.evaluate(ctx, base, params, metric)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	if out[0].Err != nil {
		return out, ErrNoResult
	}
	return out, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, metric string) Point {
	p := Point{Params: params, Value: math.Inf(1)}
	cfg := Apply(base, params)
	if err := cfg.Validate(); err != nil {
		p.Err = err
		return p
	}
	result, err := experiment.Run(ctx, cfg, g.logger)
	if err != nil {
		p.Err = err
		g.logger.Debug("grid point failed", zap.Any("params", params), zap.Error(err))
		return p
	}
	v, ok := result.Metrics[metric]
	if !ok {
		p.Err = fmt.Errorf("optim: run has no metric %q", metric)
		return p
	}
	p.Value = v
	return p
}
