package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/scenario"
)

// accessSummary describes the spread of accessibility scores.
type accessSummary struct {
	Min  float64
	Mean float64
	Max  float64
}

func summarize(scores []float64) accessSummary {
	if len(scores) == 0 {
		return accessSummary{}
	}
	return accessSummary{
		Min:  floats.Min(scores),
		Mean: stat.Mean(scores, nil),
		Max:  floats.Max(scores),
	}
}

func checkFormat(format string) error {
	if format != "table" && format != "csv" {
		return eris.Errorf("--format must be table or csv (got %q)", format)
	}
	return nil
}

// openOutput returns stdout or a created file, plus a close func.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

// loadScenario reads the --scenario file and builds its distance matrix,
// weight tiers and model options from the global config.
func loadScenario(cmd *cobra.Command) (*scenario.Scenario, *modelSetup, error) {
	path, _ := cmd.Flags().GetString("scenario")
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if sc.Metric == "" {
		sc.Metric = cfg.Model.Metric
	}

	d, err := sc.DistanceMatrix()
	if err != nil {
		return nil, nil, err
	}

	setup := &modelSetup{
		distances: d,
		tiers:     sc.WeightTiers(cfg.Model.Tiers),
	}
	colocated := cfg.Model.ColocatedWeight
	if cmd.Flags().Lookup("colocated") != nil {
		if v, _ := cmd.Flags().GetBool("colocated"); v {
			colocated = true
		}
	}
	if colocated {
		setup.opts = append(setup.opts, fca.WithColocatedWeight())
	}
	return sc, setup, nil
}

// modelSetup holds everything needed to evaluate a capacity vector.
type modelSetup struct {
	distances mat.Matrix
	tiers     fca.Tiers
	opts      []fca.Option
}

// evaluate scores the scenario population against the given capacities.
func (m *modelSetup) evaluate(supply, population []float64) (*fca.Result, error) {
	model, err := fca.NewModel(supply, population, m.distances, m.opts...)
	if err != nil {
		return nil, err
	}
	return model.Evaluate(m.tiers)
}
