package optimize

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/solver"
)

// AverageOptimizer maximizes a linear proxy for the population-weighted
// average accessibility gain: Σ_j c_j S_j with c_j = (Σ_i W_ij) / P_j.
type AverageOptimizer struct {
	solver solver.Solver
}

// NewAverageOptimizer creates an AverageOptimizer.
func NewAverageOptimizer(s solver.Solver) *AverageOptimizer {
	return &AverageOptimizer{solver: s}
}

// Name implements Optimizer.
func (o *AverageOptimizer) Name() string {
	return StrategyAverage.String()
}

// Run implements Optimizer.
func (o *AverageOptimizer) Run(ctx context.Context, in Input) ([]float64, error) {
	p, err := o.Formulate(in)
	if err != nil {
		return nil, err
	}
	return solve(ctx, o.solver, o.Name(), p)
}

// Formulate builds the linear program without solving it.
func (o *AverageOptimizer) Formulate(in Input) (*solver.Problem, error) {
	_, m, err := in.validate()
	if err != nil {
		return nil, err
	}

	demand, err := fca.WeightedDemand(in.Population, in.Weights)
	if err != nil {
		return nil, err
	}

	// minimize -c · S
	c := make([]float64, m)
	for j := range c {
		c[j] = -fca.SafeRatio(floats.Sum(mat.Col(nil, j, in.Weights)), demand[j])
	}

	ones := make([]float64, m)
	floats.AddConst(1, ones)

	return &solver.Problem{
		Objective: c,
		Ineq:      mat.NewDense(1, m, ones),
		IneqRHS:   []float64{in.budgetLimit()},
		Bounds:    in.capacityBounds(),
	}, nil
}
