package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/e2sfca/internal/config"
	"github.com/sells-group/e2sfca/internal/optimize"
	"github.com/sells-group/e2sfca/internal/scenario"
	"github.com/sells-group/e2sfca/internal/solver"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Reallocate facility capacity to improve accessibility",
	Long: `Solve a linear program that moves facility capacity within per-facility
growth and decrease limits and a total budget.

Strategies:
  average  maximize population-weighted average accessibility
  maxmin   maximize the minimum accessibility over all locations
  all      run both strategies concurrently

Examples:
  # Raise the floor of accessibility with 50 extra beds
  optimize --scenario clinics.yaml --strategy maxmin --budget 50

  # Compare both strategies with a 10% cut allowance
  optimize --scenario clinics.yaml --strategy all --max-decrease 0.1

  # Export the new capacities to CSV
  optimize --scenario clinics.yaml --format csv --output capacity.csv`,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.String("scenario", "", "scenario YAML file")
	f.String("strategy", "", "average, maxmin or all (overrides config)")
	f.Float64("budget", 0, "change in total capacity, may be negative (overrides config)")
	f.Float64("max-growth", 0, "maximum fractional increase per facility (overrides config)")
	f.Float64("max-decrease", 0, "maximum fractional decrease per facility (overrides config)")
	f.Bool("colocated", false, "weight zero-distance pairs with the first tier (overrides config)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	_ = optimizeCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(optimizeCmd)
}

// strategyOutcome is the result of one optimization strategy.
type strategyOutcome struct {
	Strategy string
	Old      []float64
	New      []float64
	Before   accessSummary
	After    accessSummary
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	if err := checkFormat(format); err != nil {
		return eris.Wrap(err, "optimize")
	}

	params := applyOptimizeOverrides(cmd, cfg.Optimize)
	strategies, err := parseStrategies(params.Strategy)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("command", "optimize"), zap.String("run_id", runID))

	sc, setup, err := loadScenario(cmd)
	if err != nil {
		return eris.Wrap(err, "optimize")
	}
	supply, population := sc.Supply(), sc.Population()

	before, err := setup.evaluate(supply, population)
	if err != nil {
		return eris.Wrap(err, "optimize: evaluate")
	}

	slv := solver.NewSimplexSolver(
		solver.WithTolerance(cfg.Solver.Tolerance),
		solver.WithTimeout(time.Duration(cfg.Solver.TimeoutSecs)*time.Second),
	)
	input := optimize.Input{
		Supply:      supply,
		Population:  population,
		Weights:     before.Weights,
		Budget:      params.Budget,
		MaxGrowth:   params.MaxGrowth,
		MaxDecrease: params.MaxDecrease,
	}

	log.Info("starting optimization",
		zap.String("scenario", sc.Name),
		zap.Stringers("strategies", strategies),
		zap.Float64("budget", params.Budget),
		zap.Float64("max_growth", params.MaxGrowth),
		zap.Float64("max_decrease", params.MaxDecrease),
	)

	outcomes := make([]strategyOutcome, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		i, strategy := i, strategy
		g.Go(func() error {
			opt, err := optimize.New(strategy, slv)
			if err != nil {
				return err
			}
			start := time.Now()
			capacity, err := opt.Run(gctx, input)
			if err != nil {
				return eris.Wrapf(err, "optimize: %s", strategy)
			}
			after, err := setup.evaluate(capacity, population)
			if err != nil {
				return eris.Wrapf(err, "optimize: %s: evaluate", strategy)
			}

			outcomes[i] = strategyOutcome{
				Strategy: opt.Name(),
				Old:      supply,
				New:      capacity,
				Before:   summarize(before.Accessibility),
				After:    summarize(after.Accessibility),
			}
			log.Info("strategy complete",
				zap.String("strategy", opt.Name()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Float64("min_access_before", outcomes[i].Before.Min),
				zap.Float64("min_access_after", outcomes[i].After.Min),
				zap.Float64("mean_access_before", outcomes[i].Before.Mean),
				zap.Float64("mean_access_after", outcomes[i].After.Mean),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("optimization failed", zap.Error(err))
		return err
	}

	w, closeOut, err := openOutput(outputPath)
	if err != nil {
		return eris.Wrap(err, "optimize")
	}
	defer closeOut()

	if format == "csv" {
		if err := writeOptimizeCSV(w, sc, outcomes); err != nil {
			return err
		}
		printOptimizeSummary(os.Stderr, outcomes)
		return nil
	}
	if err := writeOptimizeTable(w, sc, outcomes); err != nil {
		return err
	}
	printOptimizeSummary(w, outcomes)
	return nil
}

// applyOptimizeOverrides returns a copy of the base config with CLI flag
// overrides applied. Numeric flags override only when set, since zero and
// negative values are meaningful.
func applyOptimizeOverrides(cmd *cobra.Command, base config.OptimizeConfig) config.OptimizeConfig {
	c := base
	flags := cmd.Flags()

	if v, _ := flags.GetString("strategy"); v != "" {
		c.Strategy = v
	}
	if flags.Changed("budget") {
		c.Budget, _ = flags.GetFloat64("budget")
	}
	if flags.Changed("max-growth") {
		c.MaxGrowth, _ = flags.GetFloat64("max-growth")
	}
	if flags.Changed("max-decrease") {
		c.MaxDecrease, _ = flags.GetFloat64("max-decrease")
	}
	return c
}

// parseStrategies expands "all" and comma-separated names into strategies.
func parseStrategies(name string) ([]optimize.Strategy, error) {
	if strings.EqualFold(strings.TrimSpace(name), "all") {
		return []optimize.Strategy{optimize.StrategyAverage, optimize.StrategyMaxMin}, nil
	}

	var out []optimize.Strategy
	seen := make(map[optimize.Strategy]bool)
	for _, part := range splitAndTrim(name) {
		s, err := optimize.ParseStrategy(part)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("optimize: --strategy is required")
	}
	return out, nil
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func writeOptimizeCSV(w io.Writer, sc *scenario.Scenario, outcomes []strategyOutcome) error {
	cw := csv.NewWriter(w)
	header := []string{"strategy", "facility", "old_capacity", "new_capacity", "change"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "optimize: write CSV header")
	}
	for _, o := range outcomes {
		for j, f := range sc.Facilities {
			row := []string{
				o.Strategy,
				f.ID,
				formatFloat(o.Old[j]),
				formatFloat(o.New[j]),
				formatFloat(o.New[j] - o.Old[j]),
			}
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "optimize: write CSV row")
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "optimize: flush CSV")
	}
	return nil
}

func writeOptimizeTable(w io.Writer, sc *scenario.Scenario, outcomes []strategyOutcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STRATEGY\tFACILITY\tOLD\tNEW\tCHANGE")
	for _, o := range outcomes {
		for j, f := range sc.Facilities {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%+.2f\n",
				o.Strategy, f.ID, o.Old[j], o.New[j], o.New[j]-o.Old[j])
		}
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "optimize: write table")
	}
	return nil
}

func printOptimizeSummary(w io.Writer, outcomes []strategyOutcome) {
	_, _ = fmt.Fprintf(w, "\n--- Summary ---\n")
	for _, o := range outcomes {
		_, _ = fmt.Fprintf(w, "%s:\n", o.Strategy)
		_, _ = fmt.Fprintf(w, "  Min accessibility:  %.6f -> %.6f\n", o.Before.Min, o.After.Min)
		_, _ = fmt.Fprintf(w, "  Mean accessibility: %.6f -> %.6f\n", o.Before.Mean, o.After.Mean)
	}
}
