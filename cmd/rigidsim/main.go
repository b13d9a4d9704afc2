package main

import (
	"fmt"
	"os"

	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir  string
	logLevel string
	logFile  string

	// scene selection and overrides
	preset     string
	configFile string
	dt         float64
	duration   float64
	seed       int64
	broadPhase string
	iterations int
	workers    int
	noSleep    bool

	// run inspection
	bodyName string
	axis     int
	plane    string
	outFile  string
	width    int
	height   int
	snapshot bool
	perturb  float64

	// tuning
	tuneParams []string
	tuneMetric string
	tuneTop    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "real-time rigid body simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// no subcommand: pick a preset interactively
			return viz.RunPicker(zap.NewNop())
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and store the result",
		RunE:  runScene,
	}
	sceneFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with live terminal visualization",
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "check that a scene runs deterministically",
		RunE:  verifyScene,
	}
	sceneFlags(verifyCmd)

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time a scene with every broad phase",
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)

	tuneCmd := &cobra.Command{
		Use:     "tune",
		Short:   "grid search solver parameters against a metric",
		Example: "  rigidsim tune --preset stack --param iterations=4,8,16 --param baumgarte=0.1,0.2",
		RunE:    tuneScene,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, fmt.Sprintf("name=v1,v2,... (names: %v)", optim.ParamNames()))
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "max_penetration", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 5, "number of grid points to print")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-10s %d entries, %.1fs\n", name, len(cfg.Bodies), cfg.Duration)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot body coordinates of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&bodyName, "body", "", "only plot bodies with this name")
	plotCmd.Flags().IntVar(&axis, "axis", 1, "coordinate to plot (0=x, 1=y, 2=z)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "bounce, period and divergence analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&bodyName, "body", "", "only analyze bodies with this name")
	analyzeCmd.Flags().IntVar(&axis, "axis", 1, "axis of motion (0=x, 1=y, 2=z)")
	analyzeCmd.Flags().Float64Var(&perturb, "perturb", 0, "rerun with the first body moved by this distance and report divergence")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "replay a run and export every frame to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export stored poses as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "export body trajectories, or the final state, as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")
	svgCmd.Flags().StringVar(&plane, "plane", "xy", "projection plane: xy, xz or zy")
	svgCmd.Flags().IntVar(&width, "width", 800, "image width")
	svgCmd.Flags().IntVar(&height, "height", 600, "image height")
	svgCmd.Flags().BoolVar(&snapshot, "snapshot", false, "draw the final state as a wireframe instead")

	rootCmd.AddCommand(runCmd, liveCmd, verifyCmd, benchCmd, tuneCmd, presetsCmd, listCmd, plotCmd, analyzeCmd, exportJSONCmd, exportCSVCmd, svgCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "drop", "built-in scene")
	cmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml), overrides --preset")
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60.0, "fixed time step")
	cmd.Flags().Float64Var(&duration, "time", 5, "duration in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for instance jitter in the scene")
	cmd.Flags().StringVar(&broadPhase, "broadphase", "sap", fmt.Sprintf("broad phase %v", broadphase.Names()))
	cmd.Flags().IntVar(&iterations, "iterations", 10, "solver iterations")
	cmd.Flags().IntVar(&workers, "workers", 4, "narrow phase workers")
	cmd.Flags().BoolVar(&noSleep, "no-sleep", false, "disable sleeping")
}

// loadScene resolves the scene from --config or --preset and applies the
// flags the user set explicitly.
func loadScene(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	} else if cfg = config.GetPreset(preset); cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.World.TimeStep = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("broadphase") {
		cfg.World.BroadPhase = broadPhase
	}
	if flags.Changed("iterations") {
		cfg.World.Solver.Iterations = iterations
	}
	if flags.Changed("workers") {
		cfg.World.Workers = workers
	}
	if noSleep {
		cfg.World.Sleeping = false
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = level
	zc.DisableStacktrace = true
	if logFile != "" {
		zc.OutputPaths = []string{logFile}
		zc.ErrorOutputPaths = []string{logFile}
	}
	return zc.Build()
}
