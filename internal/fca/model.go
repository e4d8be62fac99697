package fca

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Result holds the intermediate and final values of one accessibility run.
type Result struct {
	Weights       *mat.Dense // W_ij, n x m
	Demand        []float64  // population-weighted demand per facility
	Ratios        []float64  // supply-to-demand ratio per facility
	Accessibility []float64  // score per population location
}

// Option configures a Model.
type Option func(*Model)

// WithColocatedWeight assigns the first tier weight to population/facility
// pairs at distance 0 instead of excluding them.
func WithColocatedWeight() Option {
	return func(m *Model) {
		m.colocated = true
	}
}

// Model scores accessibility of population locations to facilities.
// Inputs are held read-only and must not be mutated while in use.
type Model struct {
	supply     []float64
	population []float64
	distances  mat.Matrix
	colocated  bool
}

// NewModel validates the inputs and returns a Model. distances must be
// len(population) x len(supply).
func NewModel(supply, population []float64, distances mat.Matrix, opts ...Option) (*Model, error) {
	if distances == nil {
		return nil, eris.Wrap(ErrShapeMismatch, "fca: distance matrix is required")
	}
	if len(supply) == 0 || len(population) == 0 {
		return nil, eris.Wrap(ErrInvalidInput, "fca: at least one facility and one population location are required")
	}
	r, c := distances.Dims()
	if r != len(population) || c != len(supply) {
		return nil, eris.Wrapf(ErrShapeMismatch, "fca: distance matrix is %dx%d, want %dx%d",
			r, c, len(population), len(supply))
	}
	if err := CheckNonNegative("supply", supply); err != nil {
		return nil, err
	}
	if err := CheckNonNegative("population", population); err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d := distances.At(i, j); d < 0 || math.IsNaN(d) {
				return nil, eris.Wrapf(ErrInvalidInput, "fca: distance[%d][%d] = %g", i, j, d)
			}
		}
	}

	m := &Model{supply: supply, population: population, distances: distances}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// WeightedDistances replaces every distance with its tier weight.
func (m *Model) WeightedDistances(tiers Tiers) (*mat.Dense, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}

	var colocated int
	w := mat.DenseCopyOf(m.distances)
	w.Apply(func(_, _ int, d float64) float64 {
		if d == 0 {
			colocated++
			if m.colocated {
				return tiers[0].Weight
			}
			return 0
		}
		return tiers.Weight(d)
	}, w)

	if colocated > 0 && !m.colocated {
		zap.L().Debug("fca: co-located pairs excluded from catchment",
			zap.Int("pairs", colocated),
		)
	}
	return w, nil
}

// AccessibilityScores returns one score per population location.
func (m *Model) AccessibilityScores(tiers Tiers) ([]float64, error) {
	res, err := m.Evaluate(tiers)
	if err != nil {
		return nil, err
	}
	return res.Accessibility, nil
}

// Evaluate runs both catchment steps and returns every intermediate.
func (m *Model) Evaluate(tiers Tiers) (*Result, error) {
	w, err := m.WeightedDistances(tiers)
	if err != nil {
		return nil, err
	}

	demand, err := WeightedDemand(m.population, w)
	if err != nil {
		return nil, err
	}

	ratios := make([]float64, len(m.supply))
	for j, s := range m.supply {
		ratios[j] = SafeRatio(s, demand[j])
	}

	var a mat.VecDense
	a.MulVec(w, mat.NewVecDense(len(ratios), ratios))

	return &Result{
		Weights:       w,
		Demand:        demand,
		Ratios:        ratios,
		Accessibility: mat.Col(nil, 0, &a),
	}, nil
}

// WeightedDemand returns P·W: the decay-weighted population reaching each
// facility.
func WeightedDemand(population []float64, w mat.Matrix) ([]float64, error) {
	r, _ := w.Dims()
	if r == 0 || r != len(population) {
		return nil, eris.Wrapf(ErrShapeMismatch, "fca: weights have %d rows, population has %d entries",
			r, len(population))
	}
	var d mat.VecDense
	d.MulVec(w.T(), mat.NewVecDense(len(population), population))
	return mat.Col(nil, 0, &d), nil
}

// SafeRatio divides num by den and returns 0 when the quotient is not a
// finite number.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

// CheckNonNegative returns ErrInvalidInput if any element of v is negative
// or not finite.
func CheckNonNegative(name string, v []float64) error {
	for i, x := range v {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return eris.Wrapf(ErrInvalidInput, "fca: %s[%d] = %g", name, i, x)
		}
	}
	return nil
}
