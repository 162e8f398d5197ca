package engine

import (
	"errors"

	"github.com/mdmtools/matchengine/internal/classify"
)

// ErrInvalidRecord is returned when a submitted record is missing
// required fields.
var ErrInvalidRecord = errors.New("invalid record")

// #region summary

// CategorySummary is one dashboard tile: how many incoming records
// currently land in a category, and what fraction of all incoming
// records that is.
type CategorySummary struct {
	Category classify.Category `json:"category"`
	Count    int               `json:"count"`
	Fraction float64           `json:"fraction"`
}

// Summary is the dashboard overview: totals plus per-category counts.
type Summary struct {
	TotalValid int               `json:"total_valid"`
	TotalTest  int               `json:"total_test"`
	Categories []CategorySummary `json:"categories"`
}

// #endregion summary
