// Package fca implements the Enhanced Two-Step Floating Catchment Area
// (E2SFCA) accessibility model.
package fca

import (
	"math"

	"github.com/rotisserie/eris"
)

// WeightTier is one step of the distance-decay function: distances in
// (previous Upper, Upper] receive Weight.
type WeightTier struct {
	Upper  float64 `yaml:"upper" mapstructure:"upper"`
	Weight float64 `yaml:"weight" mapstructure:"weight"`
}

// Tiers is an ordered step function, strictly ascending in Upper.
type Tiers []WeightTier

// Validate checks that the tiers are non-empty, strictly ascending and carry
// finite non-negative weights.
func (t Tiers) Validate() error {
	if len(t) == 0 {
		return eris.Wrap(ErrInvalidTiers, "fca: at least one weight tier is required")
	}
	lower := 0.0
	for i, tier := range t {
		if math.IsNaN(tier.Upper) || math.IsInf(tier.Upper, 0) {
			return eris.Wrapf(ErrInvalidTiers, "fca: tier %d upper distance is not finite", i)
		}
		if tier.Upper <= lower {
			return eris.Wrapf(ErrInvalidTiers, "fca: tier %d upper distance %g must exceed %g", i, tier.Upper, lower)
		}
		if math.IsNaN(tier.Weight) || math.IsInf(tier.Weight, 0) || tier.Weight < 0 {
			return eris.Wrapf(ErrInvalidTiers, "fca: tier %d weight %g must be finite and non-negative", i, tier.Weight)
		}
		lower = tier.Upper
	}
	return nil
}

// CatchmentRadius returns the largest upper distance. Distances beyond it
// are unreachable.
func (t Tiers) CatchmentRadius() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Upper
}

// Weight maps a distance to its decay weight. Zero distances and distances
// beyond the catchment radius map to 0. Tiers must be valid.
func (t Tiers) Weight(d float64) float64 {
	if d <= 0 || d > t.CatchmentRadius() {
		return 0
	}
	for _, tier := range t {
		if d <= tier.Upper {
			return tier.Weight
		}
	}
	return 0
}

// Values returns the distinct weights a weighted distance matrix may hold,
// including the 0 assigned outside the catchment.
func (t Tiers) Values() []float64 {
	seen := map[float64]bool{0: true}
	out := []float64{0}
	for _, tier := range t {
		if !seen[tier.Weight] {
			seen[tier.Weight] = true
			out = append(out, tier.Weight)
		}
	}
	return out
}
