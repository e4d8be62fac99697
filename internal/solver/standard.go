package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// varKind describes how an original variable is recovered from the
// non-negative standard-form columns.
type varKind int

const (
	varFixed    varKind = iota // x = base
	varShifted                 // x = base + v[col]
	varMirrored                // x = base - v[col]
	varSplit                   // x = v[col] - v[neg]
)

type varMap struct {
	kind varKind
	base float64
	col  int
	neg  int
}

// standardForm is a Problem rewritten as
//
//	minimize    c · v + offset
//	subject to  a · v = b,  v >= 0
//
// where the last len(b) columns of a are slacks. Fixed variables are
// removed, bounded variables are shifted onto their lower (or upper) limit
// and only free variables are split in two. Every row has a non-zero
// coefficient and every column appears in some row.
type standardForm struct {
	c      []float64
	a      *mat.Dense
	b      []float64
	offset float64
	vars   []varMap
	// cols maps compacted structural columns back to the expanded ones.
	cols []int
	// width is the number of expanded structural columns.
	width int
}

// reduction outcomes that are decided without running simplex.
type reduceOutcome int

const (
	reduceSolve reduceOutcome = iota
	reduceInfeasible
	reduceUnbounded
	reduceTrivial // no rows remain; every structural column is 0
)

// standardize rewrites p. tol is used to absorb round-off in right-hand
// sides that are zero up to float noise.
func (p *Problem) standardize(tol float64) (*standardForm, reduceOutcome) {
	n := p.NumVars()
	sf := &standardForm{vars: make([]varMap, n)}

	// Expanded structural columns.
	var cost []float64
	type upperRow struct {
		col   int
		limit float64
	}
	var upperRows []upperRow
	for k, bd := range p.Bounds {
		lo, hi := bd.Lower, bd.Upper
		switch {
		case lo.Set && hi.Set && lo.Value > hi.Value:
			return nil, reduceInfeasible
		case lo.Set && hi.Set && lo.Value == hi.Value:
			sf.vars[k] = varMap{kind: varFixed, base: lo.Value}
			sf.offset += p.Objective[k] * lo.Value
		case lo.Set:
			col := len(cost)
			sf.vars[k] = varMap{kind: varShifted, base: lo.Value, col: col}
			sf.offset += p.Objective[k] * lo.Value
			cost = append(cost, p.Objective[k])
			if hi.Set {
				upperRows = append(upperRows, upperRow{col: col, limit: hi.Value - lo.Value})
			}
		case hi.Set:
			col := len(cost)
			sf.vars[k] = varMap{kind: varMirrored, base: hi.Value, col: col}
			sf.offset += p.Objective[k] * hi.Value
			cost = append(cost, -p.Objective[k])
		default:
			col := len(cost)
			sf.vars[k] = varMap{kind: varSplit, col: col, neg: col + 1}
			cost = append(cost, p.Objective[k], -p.Objective[k])
		}
	}
	sf.width = len(cost)

	// Rows over the expanded columns.
	var rows [][]float64
	var rhs []float64
	if p.Ineq != nil {
		r, _ := p.Ineq.Dims()
		for i := 0; i < r; i++ {
			row := make([]float64, sf.width)
			h := p.IneqRHS[i]
			scale := 1 + math.Abs(h)
			for k, vm := range sf.vars {
				g := p.Ineq.At(i, k)
				if g == 0 {
					continue
				}
				switch vm.kind {
				case varFixed, varShifted, varMirrored:
					h -= g * vm.base
					scale += math.Abs(g * vm.base)
				}
				switch vm.kind {
				case varShifted:
					row[vm.col] += g
				case varMirrored:
					row[vm.col] -= g
				case varSplit:
					row[vm.col] += g
					row[vm.neg] -= g
				}
			}
			if h < 0 && h >= -tol*scale {
				h = 0
			}
			rows = append(rows, row)
			rhs = append(rhs, h)
		}
	}
	for _, ur := range upperRows {
		row := make([]float64, sf.width)
		row[ur.col] = 1
		rows = append(rows, row)
		rhs = append(rhs, ur.limit)
	}

	// Drop rows without coefficients; they only constrain the constant.
	keptRows := rows[:0]
	keptRHS := rhs[:0]
	for i, row := range rows {
		if isZero(row) {
			if rhs[i] < 0 {
				return nil, reduceInfeasible
			}
			continue
		}
		keptRows = append(keptRows, row)
		keptRHS = append(keptRHS, rhs[i])
	}

	// Columns absent from every row sit at 0 unless they improve the
	// objective without limit.
	for j := 0; j < sf.width; j++ {
		used := false
		for _, row := range keptRows {
			if row[j] != 0 {
				used = true
				break
			}
		}
		if used {
			sf.cols = append(sf.cols, j)
		} else if cost[j] < 0 {
			return nil, reduceUnbounded
		}
	}
	if len(keptRows) == 0 {
		return sf, reduceTrivial
	}

	m, w := len(keptRows), len(sf.cols)
	sf.a = mat.NewDense(m, w+m, nil)
	sf.c = make([]float64, w+m)
	for jj, j := range sf.cols {
		sf.c[jj] = cost[j]
		for i, row := range keptRows {
			sf.a.Set(i, jj, row[j])
		}
	}
	for i := 0; i < m; i++ {
		sf.a.Set(i, w+i, 1)
	}
	sf.b = keptRHS
	return sf, reduceSolve
}

// point maps a standard-form point back to the original variables. v may
// be nil when every structural column is 0.
func (sf *standardForm) point(v []float64) []float64 {
	expanded := make([]float64, sf.width)
	for jj, j := range sf.cols {
		if v != nil {
			expanded[j] = v[jj]
		}
	}

	x := make([]float64, len(sf.vars))
	for k, vm := range sf.vars {
		switch vm.kind {
		case varFixed:
			x[k] = vm.base
		case varShifted:
			x[k] = vm.base + expanded[vm.col]
		case varMirrored:
			x[k] = vm.base - expanded[vm.col]
		case varSplit:
			x[k] = expanded[vm.col] - expanded[vm.neg]
		}
	}
	return x
}

func isZero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}
