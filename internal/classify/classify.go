package classify

import (
	"errors"
	"fmt"
	"math"
)

// #region category

// Category is the match-confidence bucket for a scored candidate pair.
type Category string

const (
	CategoryExact         Category = "EXACT"
	CategoryVeryClose     Category = "VERY_CLOSE"
	CategorySomewhatClose Category = "SOMEWHAT_CLOSE"
	CategoryNotClose      Category = "NOT_CLOSE"
)

// Categories lists all categories from highest to lowest confidence.
var Categories = []Category{
	CategoryExact,
	CategoryVeryClose,
	CategorySomewhatClose,
	CategoryNotClose,
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// #endregion category

// #region thresholds

// ErrInvalidThresholds is returned when the threshold ordering invariant
// Exact >= VeryClose >= SomewhatClose >= 0 is violated.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds holds the three similarity cut points. Each is a cosine
// similarity in [0, 1].
type Thresholds struct {
	Exact         float64 `json:"exact" toml:"exact"`
	VeryClose     float64 `json:"very_close" toml:"very_close"`
	SomewhatClose float64 `json:"somewhat_close" toml:"somewhat_close"`
}

// DefaultThresholds returns the standard cut points used for the
// snowflake-arctic-embed-m score distribution. Treat these as tuning
// configuration, not a contract.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:         0.995,
		VeryClose:     0.980,
		SomewhatClose: 0.920,
	}
}

// Validate checks the ordering invariant and the [0, 1] range.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Exact) || math.IsNaN(t.VeryClose) || math.IsNaN(t.SomewhatClose) {
		return fmt.Errorf("%w: NaN cut point", ErrInvalidThresholds)
	}
	if t.Exact < t.VeryClose || t.VeryClose < t.SomewhatClose || t.SomewhatClose < 0 {
		return fmt.Errorf("%w: need exact >= very_close >= somewhat_close >= 0, got %.3f/%.3f/%.3f",
			ErrInvalidThresholds, t.Exact, t.VeryClose, t.SomewhatClose)
	}
	if t.Exact > 1 {
		return fmt.Errorf("%w: exact %.3f above 1", ErrInvalidThresholds, t.Exact)
	}
	return nil
}

// #endregion thresholds

// #region classify

// Classify maps a similarity score to a category under the given
// thresholds. Evaluated top-down, first match wins; a score exactly on
// a cut point classifies into the higher category. Total over all real
// inputs.
func Classify(score float64, t Thresholds) Category {
	switch {
	case score >= t.Exact:
		return CategoryExact
	case score >= t.VeryClose:
		return CategoryVeryClose
	case score >= t.SomewhatClose:
		return CategorySomewhatClose
	default:
		return CategoryNotClose
	}
}

// #endregion classify
