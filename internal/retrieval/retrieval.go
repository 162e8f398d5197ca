// Package retrieval selects candidate reference records for an
// incoming record. The default strategy is a brute-force scan of the
// full reference set; the Scanner interface keeps it replaceable by an
// approximate nearest-neighbor index without touching the match index
// or classifier contracts.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mdmtools/matchengine/internal/provider"
	"github.com/mdmtools/matchengine/internal/store"
)

// ErrNoCandidates is returned when no reference record carries an
// embedding to score against.
var ErrNoCandidates = errors.New("no reference candidates")

// DefaultTopK is the number of candidates returned for interactive
// inspection.
const DefaultTopK = 5

// #region types

// Candidate is one scored reference record.
type Candidate struct {
	ValidID string  `json:"valid_id"`
	Detail  string  `json:"valid_full_detail"`
	Score   float64 `json:"similarity_score"`
}

// Scanner scores an incoming record against the reference set.
type Scanner interface {
	// BestMatch returns the highest-scoring reference record, ties
	// broken by lowest reference id.
	BestMatch(ctx context.Context, rec store.Customer) (Candidate, error)
	// TopK returns the k highest-scoring reference records, ordered by
	// score descending then reference id ascending.
	TopK(ctx context.Context, rec store.Customer, k int) ([]Candidate, error)
}

// #endregion types

// #region brute-force

// BruteForce scans every reference record. O(reference set) per call;
// fine at reference-set sizes in the low thousands.
type BruteForce struct {
	store    *store.Store
	embedder provider.Embedder
}

// NewBruteForce creates the default scan strategy. The embedder is
// used only when the incoming record has no stored embedding yet.
func NewBruteForce(s *store.Store, embedder provider.Embedder) *BruteForce {
	return &BruteForce{store: s, embedder: embedder}
}

// BestMatch implements Scanner.
func (b *BruteForce) BestMatch(ctx context.Context, rec store.Customer) (Candidate, error) {
	candidates, err := b.scan(ctx, rec)
	if err != nil {
		return Candidate{}, err
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		// Strict > keeps the lowest reference id on score ties (the
		// scan iterates in ascending id order).
		if c.Score > best.Score {
			best = c
		}
	}
	return best, nil
}

// TopK implements Scanner.
func (b *BruteForce) TopK(ctx context.Context, rec store.Customer, k int) ([]Candidate, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	candidates, err := b.scan(ctx, rec)
	if err != nil {
		return nil, err
	}

	// Stable sort preserves ascending id order within equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// scan scores rec against every reference record with an embedding,
// in ascending reference-id order.
func (b *BruteForce) scan(ctx context.Context, rec store.Customer) ([]Candidate, error) {
	vec := rec.Embedding
	if len(vec) == 0 {
		var err error
		vec, err = b.embedder.EmbedText(ctx, rec.FullDetail)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", rec.ID, err)
		}
	}

	refs, err := b.store.ListValid()
	if err != nil {
		return nil, fmt.Errorf("scan references: %w", err)
	}

	var candidates []Candidate
	for _, ref := range refs {
		if len(ref.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			ValidID: ref.ID,
			Detail:  ref.FullDetail,
			Score:   provider.Cosine01(vec, ref.Embedding),
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// #endregion brute-force

var _ Scanner = (*BruteForce)(nil)
