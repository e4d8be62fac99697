package optimize

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/solver"
)

// MaxMinOptimizer maximizes the smallest accessibility score across
// population locations. The minimum is an auxiliary variable z placed first
// in the decision vector [z, S_1..S_m].
type MaxMinOptimizer struct {
	solver solver.Solver
}

// NewMaxMinOptimizer creates a MaxMinOptimizer.
func NewMaxMinOptimizer(s solver.Solver) *MaxMinOptimizer {
	return &MaxMinOptimizer{solver: s}
}

// Name implements Optimizer.
func (o *MaxMinOptimizer) Name() string {
	return StrategyMaxMin.String()
}

// Run implements Optimizer.
func (o *MaxMinOptimizer) Run(ctx context.Context, in Input) ([]float64, error) {
	p, err := o.Formulate(in)
	if err != nil {
		return nil, err
	}
	x, err := solve(ctx, o.solver, o.Name(), p)
	if err != nil {
		return nil, err
	}
	return x[1:], nil
}

// Formulate builds the linear program without solving it.
//
// Location rows are z - Σ_j (W_ij/P_j) S_new_j <= Σ_j W_ij S_old_j / P_j.
// The last row is the budget, with a zero coefficient on z.
func (o *MaxMinOptimizer) Formulate(in Input) (*solver.Problem, error) {
	n, m, err := in.validate()
	if err != nil {
		return nil, err
	}

	demand, err := fca.WeightedDemand(in.Population, in.Weights)
	if err != nil {
		return nil, err
	}

	// minimize -z
	c := make([]float64, m+1)
	c[0] = -1

	a := mat.NewDense(n+1, m+1, nil)
	b := make([]float64, n+1)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < m; j++ {
			r := fca.SafeRatio(in.Weights.At(i, j), demand[j])
			a.Set(i, j+1, -r)
			b[i] += r * in.Supply[j]
		}
	}
	for j := 0; j < m; j++ {
		a.Set(n, j+1, 1)
	}
	b[n] = in.budgetLimit()

	bounds := append([]solver.Bound{solver.Free()}, in.capacityBounds()...)

	return &solver.Problem{
		Objective: c,
		Ineq:      a,
		IneqRHS:   b,
		Bounds:    bounds,
	}, nil
}
