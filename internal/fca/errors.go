package fca

import "github.com/rotisserie/eris"

var (
	// ErrShapeMismatch is returned when population, supply and matrix
	// dimensions disagree.
	ErrShapeMismatch = eris.New("shape mismatch")

	// ErrInvalidInput is returned for negative or non-finite inputs.
	ErrInvalidInput = eris.New("invalid input")

	// ErrInvalidTiers is returned for empty or unordered weight tiers.
	ErrInvalidTiers = eris.New("invalid weight tiers")
)
