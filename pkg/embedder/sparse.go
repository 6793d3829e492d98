package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// SparseEmbedder produces the sparse half of a chunk's embedding pair: a
// token-id to weight mapping compared by dot product against the index.
//
// No example repo in this corpus ships a learned sparse model (e.g. SPLADE):
// none depend on a sparse-embedding client library. HashingSparseEmbedder is
// therefore a standard-library term-hashing scheme (the "hashing trick"),
// weighted by log-scaled term frequency — deterministic and dependency-free,
// in place of a third-party sparse encoder that doesn't appear anywhere in
// the pack.
type SparseEmbedder interface {
	EmbedSparse(ctx context.Context, text string) (retrieval.SparseVector, error)
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// HashingSparseEmbedder hashes terms into a fixed-size bucket space and
// weights each bucket by 1+log(term frequency), approximating a sparse
// lexical vector without a learned model.
type HashingSparseEmbedder struct {
	buckets uint32
}

// NewHashingSparseEmbedder constructs a hashing sparse embedder with the
// given bucket count (vocabulary size of the sparse space).
func NewHashingSparseEmbedder(buckets uint32) *HashingSparseEmbedder {
	if buckets == 0 {
		buckets = 1 << 18
	}
	return &HashingSparseEmbedder{buckets: buckets}
}

// EmbedSparse implements SparseEmbedder.
func (h *HashingSparseEmbedder) EmbedSparse(ctx context.Context, text string) (retrieval.SparseVector, error) {
	terms := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(terms) == 0 {
		return retrieval.SparseVector{}, nil
	}

	counts := make(map[uint32]int, len(terms))
	for _, term := range terms {
		counts[h.bucket(term)]++
	}

	indices := make([]uint32, 0, len(counts))
	values := make([]float32, 0, len(counts))
	for idx, count := range counts {
		indices = append(indices, idx)
		values = append(values, float32(1+math.Log(float64(count))))
	}
	return retrieval.SparseVector{Indices: indices, Values: values}, nil
}

func (h *HashingSparseEmbedder) bucket(term string) uint32 {
	sum := fnv.New32a()
	_, _ = sum.Write([]byte(term))
	return sum.Sum32() % h.buckets
}

var _ SparseEmbedder = (*HashingSparseEmbedder)(nil)
