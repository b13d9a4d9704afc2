package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/export"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/san-kum/rigidsim/internal/world"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

const maxPlots = 6

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tBODIES\tBROADPHASE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.TimeStep,
			run.Bodies,
			run.BroadPhase,
		)
	}
	return w.Flush()
}

// trajectories loads the moving bodies of a run, filtered by --body.
func trajectories(st *storage.Store, runID string) ([]analysis.Trajectory, error) {
	samples, err := st.LoadPoses(runID)
	if err != nil {
		return nil, err
	}
	trs := analysis.FromSamples(samples)
	if bodyName != "" {
		kept := trs[:0]
		for _, tr := range trs {
			if tr.Name == bodyName {
				kept = append(kept, tr)
			}
		}
		trs = kept
	}
	if len(trs) == 0 {
		return nil, fmt.Errorf("no moving bodies in run %s", runID)
	}
	return trs, nil
}

func checkAxis() error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("axis must be 0, 1 or 2, got %d", axis)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	if err := checkAxis(); err != nil {
		return err
	}
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trs, err := trajectories(st, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("bodies: %d moving\n\n", len(trs))

	coord := "xyz"[axis : axis+1]
	for i, tr := range trs {
		if i == maxPlots {
			fmt.Printf("(%d more bodies not shown)\n", len(trs)-maxPlots)
			break
		}
		graph := asciigraph.Plot(tr.Component(axis),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s #%d: %s vs time", tr.Name, tr.ID, coord)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	if err := checkAxis(); err != nil {
		return err
	}
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trs, err := trajectories(st, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tNAME\tBOUNCES\tRESTITUTION\tFIRST APEX\tMAX IMPACT\tPERIOD")
	for _, tr := range trs {
		s := analysis.Summarize(analysis.Bounces(tr, axis, 0.1), analysis.Apexes(tr, axis))
		period := "-"
		mid := stat.Mean(tr.Component(axis), nil)
		if mean, std, ok := analysis.Period(analysis.Crossings(tr, axis, mid)); ok {
			period = fmt.Sprintf("%.3fs ± %.3f", mean, std)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.3f ± %.3f\t%.3f\t%.3f\t%s\n",
			tr.ID, tr.Name, s.Bounces, s.MeanRestitution, s.StdRestitution, s.FirstApex, s.MaxImpactSpeed, period)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nphase portrait of %s #%d (position vs velocity):\n", trs[0].Name, trs[0].ID)
	fmt.Print(analysis.PlotASCII(analysis.PhasePortrait(trs[0], axis), 72, 20))

	if perturb != 0 {
		return reportDivergence(cmd, st, args[0], trs)
	}
	return nil
}

// reportDivergence reruns the stored scene with its first dynamic entry
// displaced and fits how fast the two runs separate.
func reportDivergence(cmd *cobra.Command, st *storage.Store, runID string, base []analysis.Trajectory) error {
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	moved := false
	for i := range cfg.Bodies {
		if !cfg.Bodies[i].Static {
			cfg.Bodies[i].Position[0] += perturb
			moved = true
			break
		}
	}
	if !moved {
		return fmt.Errorf("scene %s has no dynamic bodies", cfg.Name)
	}
	result, err := experiment.Run(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	other := analysis.FromFrames(result.Frames, result.Names)
	if bodyName != "" {
		if tr, ok := analysis.Find(other, bodyName); ok {
			other = []analysis.Trajectory{tr}
		}
	}
	rate, ok := analysis.Divergence(base, other)
	if !ok {
		fmt.Println("\ndivergence: runs did not separate")
		return nil
	}
	fmt.Printf("\ndivergence rate: %.3f /s (perturbation %g)\n", rate, perturb)
	return nil
}

// output opens path for writing; "" and "-" mean stdout.
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	cfg, err := st.LoadConfig(args[0])
	if err != nil {
		return err
	}
	result, err := experiment.Run(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	out, err := output(outFile)
	if err != nil {
		return err
	}
	defer out.Close()
	return export.ExportJSON(out, cfg, result)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	in, err := os.Open(st.PosesPath(args[0]))
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	defer in.Close()

	out, err := output(outFile)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	var svg string
	var err error
	if snapshot {
		svg, err = snapshotSVG(st, args[0])
	} else {
		svg, err = trajectorySVG(st, args[0])
	}
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = args[0] + ".svg"
	}
	out, err := output(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.WriteString(out, svg); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}

func planeAxes() (int, int, error) {
	switch plane {
	case "xy":
		return 0, 1, nil
	case "xz":
		return 0, 2, nil
	case "zy":
		return 2, 1, nil
	default:
		return 0, 0, fmt.Errorf("unknown plane %q (xy, xz, zy)", plane)
	}
}

func trajectorySVG(st *storage.Store, runID string) (string, error) {
	h, v, err := planeAxes()
	if err != nil {
		return "", err
	}
	trs, err := trajectories(st, runID)
	if err != nil {
		return "", err
	}
	series := make([]export.Series, len(trs))
	for i, tr := range trs {
		series[i].Label = fmt.Sprintf("%s #%d", tr.Name, tr.ID)
		for _, p := range tr.Positions {
			series[i].Points = append(series[i].Points, export.Point{X: p[h], Y: p[v]})
		}
	}
	return export.TrajectoriesToSVG(series, width, height), nil
}

// snapshotSVG rebuilds the run's scene for its shapes and draws them at
// the last stored poses.
func snapshotSVG(st *storage.Store, runID string) (string, error) {
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return "", err
	}
	samples, err := st.LoadPoses(runID)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", fmt.Errorf("run %s has no samples", runID)
	}
	w, err := world.New(cfg.World, nil)
	if err != nil {
		return "", err
	}
	if _, err := cfg.Build(w); err != nil {
		return "", err
	}

	last := samples[len(samples)-1].Step
	poses := make(map[body.ID]body.Pose)
	for _, s := range samples {
		if s.Step == last {
			poses[s.ID] = s.Pose
		}
	}
	shapes := make(map[body.ID]*shape.Shape)
	for _, id := range w.Bodies() {
		b, err := w.Body(id)
		if err != nil {
			return "", err
		}
		shapes[id] = b.Shape()
	}

	canvas := viz.NewCanvas(width/8, height/16)
	viz.DrawBodies(canvas, viz.NewCamera(), shapes, poses)
	return export.CanvasToSVG(canvas, 4), nil
}
