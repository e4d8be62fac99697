package solver

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is the reduced-cost tolerance used when none is set.
const DefaultTolerance = 1e-10

// Status is the outcome of a solve.
type Status int

const (
	// StatusOptimal means X holds an optimal solution.
	StatusOptimal Status = iota
	// StatusInfeasible means no point satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective decreases without limit.
	StatusUnbounded
	// StatusNumerical means the solver failed for numerical reasons.
	StatusNumerical
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNumerical:
		return "numerical"
	default:
		return "unknown"
	}
}

// Solution is the result of solving a Problem. X and Objective are only
// meaningful when Status is StatusOptimal.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	// Cause is the underlying solver error for non-optimal outcomes.
	Cause error
}

// Solver solves linear programs. The error return is reserved for malformed
// problems and context cancellation; solve outcomes are reported in
// Solution.Status.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// SimplexOption configures a SimplexSolver.
type SimplexOption func(*SimplexSolver)

// WithTolerance sets the simplex optimality tolerance.
func WithTolerance(tol float64) SimplexOption {
	return func(s *SimplexSolver) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithTimeout bounds every solve. Zero disables the timeout. A solve that
// times out is abandoned, not stopped: the simplex keeps running in the
// background until it finishes and its result is discarded.
func WithTimeout(d time.Duration) SimplexOption {
	return func(s *SimplexSolver) {
		s.timeout = d
	}
}

// SimplexSolver solves problems with gonum's simplex after rewriting them in
// standard form. Fixed variables are substituted, bounded variables are
// shifted onto a limit and only free variables are split.
type SimplexSolver struct {
	tol     float64
	timeout time.Duration
}

// NewSimplexSolver creates a SimplexSolver.
func NewSimplexSolver(opts ...SimplexOption) *SimplexSolver {
	s := &SimplexSolver{tol: DefaultTolerance}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve implements Solver.
func (s *SimplexSolver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "solver: solve")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan *Solution, 1)
	go func() {
		done <- s.simplex(p)
	}()

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "solver: solve")
	case sol := <-done:
		zap.L().Debug("solver: simplex finished",
			zap.Int("vars", p.NumVars()),
			zap.Int("rows", len(p.IneqRHS)),
			zap.Stringer("status", sol.Status),
			zap.Float64("objective", sol.Objective),
		)
		return sol, nil
	}
}

func (s *SimplexSolver) simplex(p *Problem) *Solution {
	sf, outcome := p.standardize(s.tol)
	switch outcome {
	case reduceInfeasible:
		return &Solution{Status: StatusInfeasible, Cause: lp.ErrInfeasible}
	case reduceUnbounded:
		return &Solution{Status: StatusUnbounded, Cause: lp.ErrUnbounded}
	case reduceTrivial:
		return &Solution{Status: StatusOptimal, X: sf.point(nil), Objective: sf.offset}
	}

	optF, optX, err := lp.Simplex(sf.c, sf.a, sf.b, s.tol, nil)
	if err != nil {
		return &Solution{Status: statusOf(err), Cause: err}
	}
	return &Solution{Status: StatusOptimal, X: sf.point(optX), Objective: optF + sf.offset}
}

func statusOf(err error) Status {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return StatusInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return StatusUnbounded
	default:
		return StatusNumerical
	}
}
