package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/rigidsim/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNondeterministic = errors.New("experiment: runs diverged")

// Ensemble runs independent scenes concurrently. Each run owns its world,
// so nothing is shared between goroutines.
type Ensemble struct {
	configs []*config.Config
	workers int
	logger  *zap.Logger
}

func NewEnsemble(configs []*config.Config, workers int, logger *zap.Logger) *Ensemble {
	return &Ensemble{configs: configs, workers: max(workers, 1), logger: logger}
}

// Run returns the results in the order of the configs. The first failure
// cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.configs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cfg := range e.configs {
		i, cfg := i, cfg
		g.Go(func() error {
			r, err := Run(ctx, cfg, e.logger)
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i, cfg.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Verify runs cfg twice concurrently and checks that every sampled frame
// matches exactly.
func Verify(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	copyCfg := *cfg
	results, err := NewEnsemble([]*config.Config{cfg, &copyCfg}, 2, logger).Run(ctx)
	if err != nil {
		return err
	}
	a, b := results[0], results[1]
	if len(a.Frames) != len(b.Frames) {
		return fmt.Errorf("%w: %d vs %d frames", ErrNondeterministic, len(a.Frames), len(b.Frames))
	}
	for i := range a.Frames {
		fa, fb := a.Frames[i], b.Frames[i]
		for k := range fa.Bodies {
			if fa.Bodies[k].Pose != fb.Bodies[k].Pose {
				return fmt.Errorf("%w: body %d at step %d", ErrNondeterministic, fa.Bodies[k].ID, fa.Step)
			}
		}
	}
	return nil
}
