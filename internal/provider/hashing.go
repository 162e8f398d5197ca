package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// #region hashing-embedder

// Hashing is a deterministic local embedder that hashes character
// trigrams into a fixed-dimension bag. It exists for offline runs and
// tests; real deployments embed through the remote provider. Identical
// texts always score 1.0, and near-identical customer details score
// high without any service call.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder. dim must be positive.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

// Dim returns the embedding dimension.
func (h *Hashing) Dim() int { return h.dim }

// EmbedText hashes lower-cased character trigrams into dim buckets and
// L2-normalizes the result. Never fails.
func (h *Hashing) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	t := strings.ToLower(strings.TrimSpace(text))
	runes := []rune(t)
	if len(runes) == 0 {
		return vec, nil
	}

	// Pad so very short texts still produce trigrams.
	for len(runes) < 3 {
		runes = append(runes, ' ')
	}

	for i := 0; i+3 <= len(runes); i++ {
		f := fnv.New32a()
		_, _ = f.Write([]byte(string(runes[i : i+3])))
		idx := int(f.Sum32()) % h.dim
		if idx < 0 {
			idx = -idx
		}
		vec[idx] += 1.0
	}

	var sumSq float32
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq > 0 {
		norm := float32(1.0 / math.Sqrt(float64(sumSq)))
		for i, v := range vec {
			vec[i] = v * norm
		}
	}
	return vec, nil
}

// #endregion hashing-embedder

var _ Embedder = (*Hashing)(nil)
