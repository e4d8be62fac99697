// Package solver defines the linear-programming capability used by the
// capacity optimizers and a simplex implementation backed by gonum.
package solver

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidProblem is returned when a Problem is malformed.
var ErrInvalidProblem = eris.New("invalid linear program")

// Limit is one side of a variable bound. The zero value means no limit.
type Limit struct {
	Value float64
	Set   bool
}

// At returns a finite limit.
func At(v float64) Limit {
	return Limit{Value: v, Set: true}
}

// Bound constrains a single variable to [Lower, Upper].
type Bound struct {
	Lower Limit
	Upper Limit
}

// Between returns a bound with both sides set.
func Between(lo, hi float64) Bound {
	return Bound{Lower: At(lo), Upper: At(hi)}
}

// Free returns a bound with neither side set.
func Free() Bound {
	return Bound{}
}

// Problem is a linear program in inequality form:
//
//	minimize    Objective · x
//	subject to  Ineq · x <= IneqRHS
//	            Bounds[k].Lower <= x[k] <= Bounds[k].Upper
//
// Variables without a limit are unconstrained on that side.
type Problem struct {
	Objective []float64
	Ineq      mat.Matrix
	IneqRHS   []float64
	Bounds    []Bound
}

// NumVars returns the number of decision variables.
func (p *Problem) NumVars() int {
	return len(p.Objective)
}

// Validate checks dimensions and finiteness.
func (p *Problem) Validate() error {
	n := len(p.Objective)
	if n == 0 {
		return eris.Wrap(ErrInvalidProblem, "solver: objective is empty")
	}
	if len(p.Bounds) != n {
		return eris.Wrapf(ErrInvalidProblem, "solver: %d bounds for %d variables", len(p.Bounds), n)
	}
	if err := checkFinite("objective", p.Objective); err != nil {
		return err
	}
	if err := checkFinite("rhs", p.IneqRHS); err != nil {
		return err
	}

	rows := 0
	if p.Ineq != nil {
		r, c := p.Ineq.Dims()
		if c != n {
			return eris.Wrapf(ErrInvalidProblem, "solver: constraint matrix has %d columns, want %d", c, n)
		}
		rows = r
	}
	if rows != len(p.IneqRHS) {
		return eris.Wrapf(ErrInvalidProblem, "solver: %d constraint rows but %d right-hand sides", rows, len(p.IneqRHS))
	}

	for k, b := range p.Bounds {
		for _, l := range []Limit{b.Lower, b.Upper} {
			if l.Set && (math.IsNaN(l.Value) || math.IsInf(l.Value, 0)) {
				return eris.Wrapf(ErrInvalidProblem, "solver: bound on variable %d is not finite", k)
			}
		}
		if b.Lower.Set {
			rows++
		}
		if b.Upper.Set {
			rows++
		}
	}
	if rows == 0 {
		return eris.Wrap(ErrInvalidProblem, "solver: problem has no constraints")
	}
	return nil
}

func checkFinite(name string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return eris.Wrapf(ErrInvalidProblem, "solver: %s[%d] is not finite", name, i)
		}
	}
	return nil
}
