package store

import (
	"errors"
	"strings"
	"time"

	"github.com/mdmtools/matchengine/internal/classify"
)

// ErrNotFound is returned when a referenced record identifier is absent.
var ErrNotFound = errors.New("record not found")

// #region customer

// Customer is one customer record, either from the reference (valid)
// set or from an incoming source feed. The embedding is owned by the
// similarity provider; this engine only stores and compares it.
type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceSystem string    `json:"source_system"`
	AddressLine1 string    `json:"address_line_1"`
	AddressLine2 string    `json:"address_line_2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	FullDetail   string    `json:"full_detail"`
	Embedding    []float32 `json:"-"`
}

// BuildFullDetail derives the concatenated textual representation used
// for embedding and display. The rule is deterministic and shared by
// reference and incoming records: labeled non-empty fields joined by
// " | ".
func (c Customer) BuildFullDetail() string {
	parts := make([]string, 0, 8)
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Name", c.Name)
	add("Source", c.SourceSystem)
	add("Address1", c.AddressLine1)
	add("Address2", c.AddressLine2)
	add("City", c.City)
	add("State", c.State)
	add("Postal", c.PostalCode)
	add("Country", c.Country)
	return strings.Join(parts, " | ")
}

// #endregion customer

// #region match-result

// MatchResult is the single best-candidate row for one incoming record.
type MatchResult struct {
	TestID      string            `json:"test_id"`
	ValidID     string            `json:"valid_id"`
	TestDetail  string            `json:"test_full_detail"`
	ValidDetail string            `json:"valid_full_detail"`
	Score       float64           `json:"similarity_score"`
	Category    classify.Category `json:"match_category"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// #endregion match-result
