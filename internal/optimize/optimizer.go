// Package optimize reallocates facility capacity under a budget to improve
// E2SFCA accessibility. Each strategy formulates a linear program and hands
// it to a solver.Solver.
package optimize

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/e2sfca/internal/fca"
	"github.com/sells-group/e2sfca/internal/solver"
)

var (
	// ErrInfeasible is returned when no allocation satisfies the budget and
	// growth bounds.
	ErrInfeasible = eris.New("optimization is infeasible")

	// ErrUnbounded is returned when the formulation has no finite optimum.
	ErrUnbounded = eris.New("optimization is unbounded")

	// ErrSolverFailure is returned when the solver fails numerically.
	ErrSolverFailure = eris.New("solver failure")
)

// Input is the data shared by every strategy.
type Input struct {
	Supply     []float64  // current capacity S_j, length m
	Population []float64  // P_i, length n
	Weights    mat.Matrix // weighted distances W_ij, n x m
	Budget     float64    // allowed change in total capacity, may be negative
	MaxGrowth  float64    // fraction in [0, 1]
	// MaxDecrease is a fraction in [0, 1]; the zero value forbids cuts.
	MaxDecrease float64
}

// Optimizer produces a new capacity vector from an Input.
type Optimizer interface {
	Name() string
	Run(ctx context.Context, in Input) ([]float64, error)
}

// Strategy selects an Optimizer implementation.
type Strategy int

// enumeration of Strategy
const (
	StrategyAverage Strategy = iota
	StrategyMaxMin
)

func (s Strategy) String() string {
	switch s {
	case StrategyAverage:
		return "average"
	case StrategyMaxMin:
		return "maxmin"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a name such as "average" or "maxmin" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "average", "avg", "regular":
		return StrategyAverage, nil
	case "maxmin", "max-min", "maximin":
		return StrategyMaxMin, nil
	default:
		return 0, eris.Errorf("optimize: unknown strategy %q", name)
	}
}

// New is a factory that creates an Optimizer for the given strategy.
func New(strategy Strategy, s solver.Solver) (Optimizer, error) {
	if s == nil {
		return nil, eris.New("optimize: solver cannot be nil")
	}
	switch strategy {
	case StrategyAverage:
		return NewAverageOptimizer(s), nil
	case StrategyMaxMin:
		return NewMaxMinOptimizer(s), nil
	default:
		return nil, eris.Errorf("optimize: unsupported strategy: %v", strategy)
	}
}

// validate checks shapes and fractions and returns n and m.
func (in Input) validate() (int, int, error) {
	if in.Weights == nil {
		return 0, 0, eris.Wrap(fca.ErrShapeMismatch, "optimize: weights are required")
	}
	n, m := in.Weights.Dims()
	if n == 0 || n != len(in.Population) || m != len(in.Supply) {
		return 0, 0, eris.Wrapf(fca.ErrShapeMismatch, "optimize: weights are %dx%d, want %dx%d",
			n, m, len(in.Population), len(in.Supply))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"max_growth", in.MaxGrowth}, {"max_decrease", in.MaxDecrease}} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return 0, 0, eris.Wrapf(fca.ErrInvalidInput, "optimize: %s %g must be in [0, 1]", f.name, f.v)
		}
	}
	if err := fca.CheckNonNegative("supply", in.Supply); err != nil {
		return 0, 0, eris.Wrap(err, "optimize")
	}
	if err := fca.CheckNonNegative("population", in.Population); err != nil {
		return 0, 0, eris.Wrap(err, "optimize")
	}
	if math.IsNaN(in.Budget) || math.IsInf(in.Budget, 0) {
		return 0, 0, eris.Wrap(fca.ErrInvalidInput, "optimize: budget must be finite")
	}
	return n, m, nil
}

// capacityBounds returns [S_j(1-max_decrease), S_j(1+max_growth)] per facility.
func (in Input) capacityBounds() []solver.Bound {
	bounds := make([]solver.Bound, len(in.Supply))
	for j, s := range in.Supply {
		bounds[j] = solver.Between(s*(1-in.MaxDecrease), s*(1+in.MaxGrowth))
	}
	return bounds
}

// budgetLimit is the right-hand side of Σ S_new <= Σ S_old + budget.
func (in Input) budgetLimit() float64 {
	return floats.Sum(in.Supply) + in.Budget
}

// clamp pulls solver round-off back inside the variable bounds and
// normalizes negative zero.
func clamp(x []float64, bounds []solver.Bound) []float64 {
	out := make([]float64, len(x))
	for k, v := range x {
		b := bounds[k]
		if b.Lower.Set && v < b.Lower.Value {
			v = b.Lower.Value
		}
		if b.Upper.Set && v > b.Upper.Value {
			v = b.Upper.Value
		}
		if v == 0 {
			v = 0
		}
		out[k] = v
	}
	return out
}

// solve runs the solver and converts non-optimal outcomes to errors.
func solve(ctx context.Context, s solver.Solver, name string, p *solver.Problem) ([]float64, error) {
	sol, err := s.Solve(ctx, p)
	if err != nil {
		return nil, eris.Wrapf(err, "optimize: %s", name)
	}

	zap.L().Debug("optimize: solve complete",
		zap.String("strategy", name),
		zap.Int("vars", p.NumVars()),
		zap.Stringer("status", sol.Status),
	)

	switch sol.Status {
	case solver.StatusOptimal:
		return clamp(sol.X, p.Bounds), nil
	case solver.StatusInfeasible:
		return nil, eris.Wrapf(ErrInfeasible, "optimize: %s", name)
	case solver.StatusUnbounded:
		return nil, eris.Wrapf(ErrUnbounded, "optimize: %s", name)
	default:
		if sol.Cause != nil {
			return nil, eris.Wrapf(ErrSolverFailure, "optimize: %s: %v", name, sol.Cause)
		}
		return nil, eris.Wrapf(ErrSolverFailure, "optimize: %s", name)
	}
}
