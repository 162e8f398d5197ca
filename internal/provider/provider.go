// Package provider talks to the external similarity provider: a remote
// embedding service plus local cosine scoring over its vectors. The
// engine never computes embeddings itself.
package provider

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the similarity provider cannot be
// reached or rejects a request. Callers abort the in-flight
// recomputation and leave prior state untouched.
var ErrUnavailable = errors.New("similarity provider unavailable")

// #region interfaces

// Embedder produces an embedding vector for one text representation.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Similarity scores two text representations in [0, 1], 1 = identical.
type Similarity interface {
	Similarity(ctx context.Context, textA, textB string) (float64, error)
}

// #endregion interfaces

// #region scorer

// Scorer adapts any Embedder to the Similarity contract by embedding
// both texts and taking cosine similarity.
type Scorer struct {
	Embedder Embedder
}

// Similarity embeds both texts and returns their clamped cosine score.
func (s Scorer) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	va, err := s.Embedder.EmbedText(ctx, textA)
	if err != nil {
		return 0, err
	}
	vb, err := s.Embedder.EmbedText(ctx, textB)
	if err != nil {
		return 0, err
	}
	return Cosine01(va, vb), nil
}

// #endregion scorer
