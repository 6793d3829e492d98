package embedder

import (
	"context"
	"fmt"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// HybridEmbedder produces the dense+sparse pair HybridSearcher queries with,
// combining a dense Embedder (semantic similarity) and a SparseEmbedder
// (lexical matching). SparseTopK, when positive, keeps only the top-K sparse
// entries by magnitude before returning.
type HybridEmbedder struct {
	Dense      Embedder
	Sparse     SparseEmbedder
	SparseTopK int
}

// NewHybridEmbedder pairs a dense embedder with a sparse one.
func NewHybridEmbedder(dense Embedder, sparse SparseEmbedder) *HybridEmbedder {
	return &HybridEmbedder{Dense: dense, Sparse: sparse}
}

// Embed runs both legs for one piece of text. The sparse leg never fails the
// call: a sparse error degrades to an empty sparse vector, since
// HybridSearcher already tolerates a missing sparse leg.
func (h *HybridEmbedder) Embed(ctx context.Context, text string) (retrieval.DenseVector, retrieval.SparseVector, error) {
	dense, err := h.Dense.Embed(ctx, text)
	if err != nil {
		return nil, retrieval.SparseVector{}, fmt.Errorf("dense embed: %w", err)
	}

	if h.Sparse == nil {
		return dense, retrieval.SparseVector{}, nil
	}
	sparse, err := h.Sparse.EmbedSparse(ctx, text)
	if err != nil {
		return dense, retrieval.SparseVector{}, nil
	}
	return dense, sparse.TopK(h.SparseTopK), nil
}

// EmbedBatch runs the dense leg in a single batched call and the sparse leg
// per-text (hashing has no batching benefit).
func (h *HybridEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]retrieval.DenseVector, []retrieval.SparseVector, error) {
	denseBatch, err := h.Dense.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("dense embed batch: %w", err)
	}

	dense := make([]retrieval.DenseVector, len(denseBatch))
	for i, v := range denseBatch {
		dense[i] = v
	}

	sparse := make([]retrieval.SparseVector, len(texts))
	if h.Sparse != nil {
		for i, text := range texts {
			sv, err := h.Sparse.EmbedSparse(ctx, text)
			if err == nil {
				sparse[i] = sv.TopK(h.SparseTopK)
			}
		}
	}
	return dense, sparse, nil
}
