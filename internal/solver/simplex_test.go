package solver

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSimplexSolver_Optimal(t *testing.T) {
	// minimize -2x - y  s.t. x + y <= 4, 0 <= x <= 3, 0 <= y <= 2
	p := &Problem{
		Objective: []float64{-2, -1},
		Ineq:      mat.NewDense(1, 2, []float64{1, 1}),
		IneqRHS:   []float64{4},
		Bounds:    []Bound{Between(0, 3), Between(0, 2)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDeltaSlice(t, []float64{3, 1}, sol.X, 1e-8)
	assert.InDelta(t, -7, sol.Objective, 1e-8)
}

func TestSimplexSolver_FreeVariable(t *testing.T) {
	// minimize x  s.t. -x <= 3
	p := &Problem{
		Objective: []float64{1},
		Ineq:      mat.NewDense(1, 1, []float64{-1}),
		IneqRHS:   []float64{3},
		Bounds:    []Bound{Free()},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -3, sol.X[0], 1e-8)
}

func TestSimplexSolver_BoundsOnly(t *testing.T) {
	// maximize x + y over the box [1, 2] x [-4, -1]
	p := &Problem{
		Objective: []float64{-1, -1},
		Bounds:    []Bound{Between(1, 2), Between(-4, -1)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDeltaSlice(t, []float64{2, -1}, sol.X, 1e-8)
}

func TestSimplexSolver_Infeasible(t *testing.T) {
	// x <= 1 with x >= 2
	p := &Problem{
		Objective: []float64{1},
		Ineq:      mat.NewDense(1, 1, []float64{1}),
		IneqRHS:   []float64{1},
		Bounds:    []Bound{Between(2, 5)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Error(t, sol.Cause)
	assert.Nil(t, sol.X)
}

func TestSimplexSolver_Unbounded(t *testing.T) {
	// minimize -x  s.t. x >= 0
	p := &Problem{
		Objective: []float64{-1},
		Ineq:      mat.NewDense(1, 1, []float64{-1}),
		IneqRHS:   []float64{0},
		Bounds:    []Bound{Free()},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestSimplexSolver_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Problem{Objective: []float64{1}, Bounds: []Bound{Between(0, 1)}}
	_, err := NewSimplexSolver(WithTimeout(time.Second)).Solve(ctx, p)
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled), "got %v", err)
}

func TestSimplexSolver_InvalidProblem(t *testing.T) {
	tests := []struct {
		name string
		p    *Problem
	}{
		{"empty objective", &Problem{}},
		{"bounds length", &Problem{Objective: []float64{1, 1}, Bounds: []Bound{Between(0, 1)}}},
		{"column mismatch", &Problem{
			Objective: []float64{1},
			Ineq:      mat.NewDense(1, 2, []float64{1, 1}),
			IneqRHS:   []float64{1},
			Bounds:    []Bound{Free()},
		}},
		{"rhs mismatch", &Problem{
			Objective: []float64{1},
			Ineq:      mat.NewDense(1, 1, []float64{1}),
			IneqRHS:   []float64{1, 2},
			Bounds:    []Bound{Free()},
		}},
		{"no constraints", &Problem{Objective: []float64{1}, Bounds: []Bound{Free()}}},
		{"infinite bound", &Problem{Objective: []float64{1}, Bounds: []Bound{{Upper: At(math.Inf(1))}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimplexSolver().Solve(context.Background(), tt.p)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidProblem), "got %v", err)
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "optimal", StatusOptimal.String())
	assert.Equal(t, "infeasible", StatusInfeasible.String())
	assert.Equal(t, "unbounded", StatusUnbounded.String())
	assert.Equal(t, "numerical", StatusNumerical.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestLimitHelpers(t *testing.T) {
	assert.Equal(t, Limit{Value: 2, Set: true}, At(2))
	assert.Equal(t, Bound{}, Free())
	assert.Equal(t, Bound{Lower: At(1), Upper: At(3)}, Between(1, 3))
}

func TestSimplexSolver_FixedVariables(t *testing.T) {
	// Zero-width bounds next to a budget row: maximize x + 2y + z with
	// x fixed at 0, z fixed at 1, x + y + z <= 3, 0 <= y <= 5.
	p := &Problem{
		Objective: []float64{-1, -2, -1},
		Ineq:      mat.NewDense(1, 3, []float64{1, 1, 1}),
		IneqRHS:   []float64{3},
		Bounds:    []Bound{Between(0, 0), Between(0, 5), Between(1, 1)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDeltaSlice(t, []float64{0, 2, 1}, sol.X, 1e-8)
	assert.InDelta(t, -5, sol.Objective, 1e-8)
}

func TestSimplexSolver_AllFixed(t *testing.T) {
	p := &Problem{
		Objective: []float64{2, 3},
		Ineq:      mat.NewDense(1, 2, []float64{1, 1}),
		IneqRHS:   []float64{4},
		Bounds:    []Bound{Between(1, 1), Between(3, 3)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 3}, sol.X)
	assert.InDelta(t, 11, sol.Objective, 1e-12)
}

func TestSimplexSolver_BudgetAtLowerBounds(t *testing.T) {
	// The budget equals the sum of the lower bounds up to round-off.
	lo := []float64{0.1, 0.2, 0.3}
	p := &Problem{
		Objective: []float64{-1, -1, -1},
		Ineq:      mat.NewDense(1, 3, []float64{1, 1, 1}),
		IneqRHS:   []float64{0.6},
		Bounds:    []Bound{Between(lo[0], 1), Between(lo[1], 1), Between(lo[2], 1)},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDeltaSlice(t, lo, sol.X, 1e-8)
}

func TestSimplexSolver_UpperOnly(t *testing.T) {
	// maximize x with x <= 7 and no lower limit
	p := &Problem{
		Objective: []float64{-1},
		Bounds:    []Bound{{Upper: At(7)}},
	}

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 7, sol.X[0], 1e-8)
}

func TestSimplexSolver_Reductions(t *testing.T) {
	tests := []struct {
		name string
		p    *Problem
		want Status
	}{
		{"reversed bounds", &Problem{
			Objective: []float64{1},
			Bounds:    []Bound{Between(2, 1)},
		}, StatusInfeasible},
		{"fixed variables violate row", &Problem{
			Objective: []float64{1, 1},
			Ineq:      mat.NewDense(1, 2, []float64{1, 1}),
			IneqRHS:   []float64{1},
			Bounds:    []Bound{Between(1, 1), Between(1, 1)},
		}, StatusInfeasible},
		{"unconstrained improving column", &Problem{
			Objective: []float64{-1, 1},
			Ineq:      mat.NewDense(1, 2, []float64{0, 1}),
			IneqRHS:   []float64{1},
			Bounds:    []Bound{{Lower: At(0)}, Between(0, 1)},
		}, StatusUnbounded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := NewSimplexSolver().Solve(context.Background(), tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sol.Status)
			assert.Error(t, sol.Cause)
		})
	}
}

func TestStandardize_ShiftsOntoLowerBounds(t *testing.T) {
	// z free, two bounded variables, one fixed at 0.
	p := &Problem{
		Objective: []float64{-1, 0, 0, 0},
		Ineq: mat.NewDense(2, 4, []float64{
			1, -0.5, -0.5, -0.5,
			0, 1, 1, 1,
		}),
		IneqRHS: []float64{1, 6},
		Bounds:  []Bound{Free(), Between(1, 3), Between(0, 0), Between(2, 4)},
	}

	sf, outcome := p.standardize(DefaultTolerance)
	require.Equal(t, reduceSolve, outcome)

	// z+, z-, y1, y3 plus 2 inequality rows and 2 upper rows of slack.
	r, c := sf.a.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 8, c)
	assert.Equal(t, []float64{2.5, 3, 2, 2}, sf.b)
	for _, v := range sf.b {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	x := sf.point([]float64{0.5, 0, 1, 2, 0, 0, 0, 0})
	assert.Equal(t, []float64{0.5, 2, 0, 4}, x)
}
