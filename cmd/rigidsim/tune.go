package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/spf13/cobra"
)

// parseParam reads "name=v1,v2,...".
func parseParam(s string) (optim.Param, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return optim.Param{}, fmt.Errorf("bad --param %q, want name=v1,v2", s)
	}
	p := optim.Param{Name: strings.TrimSpace(name)}
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Param{}, fmt.Errorf("bad value in --param %q: %w", s, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

func tuneScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required (names: %v)", optim.ParamNames())
	}
	params := make([]optim.Param, 0, len(tuneParams))
	for _, s := range tuneParams {
		p, err := parseParam(s)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	g, err := optim.NewGridSearch(params, workers, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %s over %d grid points...\n", cfg.Name, len(g.Points()))
	points, err := g.Search(ctx, cfg, tuneMetric)
	if err != nil && err != optim.ErrNoResult {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(params)+1)
	for _, p := range params {
		header = append(header, p.Name)
	}
	fmt.Fprintln(tw, strings.Join(append(header, tuneMetric), "\t"))
	for _, pt := range points[:max(0, min(tuneTop, len(points)))] {
		row := make([]string, 0, len(params)+1)
		for _, p := range params {
			row = append(row, strconv.FormatFloat(pt.Params[p.Name], 'g', -1, 64))
		}
		if pt.Err != nil {
			row = append(row, "failed: "+pt.Err.Error())
		} else {
			row = append(row, fmt.Sprintf("%.6g", pt.Value))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return err
}
