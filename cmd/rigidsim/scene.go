package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s...\n", cfg.Name)
	result, err := experiment.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Wall.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d, frames: %d\n", result.Steps, len(result.Frames))
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	// the terminal belongs to the view unless logs go to a file
	logger := zap.NewNop()
	if logFile != "" {
		if logger, err = newLogger(); err != nil {
			return err
		}
		defer logger.Sync()
	}
	return viz.RunLive(cfg, logger)
}

func verifyScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := experiment.Verify(cmd.Context(), cfg, logger); err != nil {
		return err
	}
	fmt.Printf("%s: deterministic over %.1fs\n", cfg.Name, cfg.Duration)
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	base, err := loadScene(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%.1fs)\n\n", base.Name, base.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BROADPHASE\tSTEPS\tTIME\tSTEPS/SEC\tPAIRS\tCONTACTS")

	for _, name := range broadphase.Names() {
		cfg := *base
		cfg.World.BroadPhase = name
		e := experiment.New(&cfg, nil)
		if err := e.Setup(); err != nil {
			return err
		}
		result, err := e.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%d\t%d\n",
			name,
			result.Steps,
			result.Wall.Round(time.Microsecond),
			float64(result.Steps)/result.Wall.Seconds(),
			result.Final.Pairs,
			result.Final.Solver.Points,
		)
	}
	return w.Flush()
}
