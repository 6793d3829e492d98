// Package retrieval implements hybrid dense+sparse document search: RRF fusion
// of two retrieval legs against a vector index, followed by deterministic
// metadata boosting.
package retrieval

import "context"

// DenseVector is a fixed-dimension embedding compared by cosine similarity.
type DenseVector []float32

// SparseVector is an unordered token-id to weight mapping compared by dot product.
// Indices and Values are parallel arrays, matching the wire shape most vector
// index protocols expect.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Empty reports whether the sparse vector carries no non-zero entries.
func (v SparseVector) Empty() bool {
	for _, val := range v.Values {
		if val != 0 {
			return false
		}
	}
	return true
}

// TopK keeps only the k entries with the largest magnitude, in place of the
// full vector. A non-positive k is a no-op. Used as an optional pre-filter on
// embedder output (off by default).
func (v SparseVector) TopK(k int) SparseVector {
	if k <= 0 || len(v.Indices) <= k {
		return v
	}
	type pair struct {
		idx uint32
		val float32
	}
	pairs := make([]pair, len(v.Indices))
	for i := range v.Indices {
		pairs[i] = pair{v.Indices[i], v.Values[i]}
	}
	// Partial selection sort is fine here: k is small (hundreds) relative to
	// typical sparse dictionaries.
	for i := 0; i < k; i++ {
		maxIdx := i
		for j := i + 1; j < len(pairs); j++ {
			if abs32(pairs[j].val) > abs32(pairs[maxIdx].val) {
				maxIdx = j
			}
		}
		pairs[i], pairs[maxIdx] = pairs[maxIdx], pairs[i]
	}
	pairs = pairs[:k]
	out := SparseVector{Indices: make([]uint32, k), Values: make([]float32, k)}
	for i, p := range pairs {
		out.Indices[i] = p.idx
		out.Values[i] = p.val
	}
	return out
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// ChunkPayload is the metadata attached to every indexed chunk record.
type ChunkPayload struct {
	DocID      string `json:"doc_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`

	Title         string   `json:"title,omitempty"`
	URL           string   `json:"url,omitempty"`
	CanonicalURL  string   `json:"canonical_url,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Section       string   `json:"section,omitempty"`
	Platform      string   `json:"platform,omitempty"`
	Role          string   `json:"role,omitempty"`
	PageType      string   `json:"page_type,omitempty"`
	GroupsPath    []string `json:"groups_path,omitempty"`
	Source        string   `json:"source,omitempty"`
	ContentLength int      `json:"content_length,omitempty"`
	ChunkID       string   `json:"chunk_id,omitempty"`

	// Fields set by AutoMerger.
	AutoMerged        bool   `json:"auto_merged,omitempty"`
	MergedChunkIndices []int  `json:"merged_chunk_indices,omitempty"`
	MergedChunkCount   int    `json:"merged_chunk_count,omitempty"`
	ChunkSpan          *Span  `json:"chunk_span,omitempty"`
	MergedChunkIDs     []string `json:"merged_chunk_ids,omitempty"`

	// Fields set by ContextOptimizer.
	OriginalLength  int  `json:"original_length,omitempty"`
	OptimizedLength int  `json:"optimized_length,omitempty"`
	ListMode        bool `json:"list_mode,omitempty"`

	// ThemeLabel is attached by the orchestrator from the theme table.
	ThemeLabel string `json:"theme_label,omitempty"`

	// Extra carries any payload field not recognized above, untouched.
	Extra map[string]any `json:"-"`
}

// Canonical returns CanonicalURL when set, else URL.
func (p ChunkPayload) Canonical() string {
	if p.CanonicalURL != "" {
		return p.CanonicalURL
	}
	return p.URL
}

// Clone returns a deep-enough copy safe to mutate independently.
func (p ChunkPayload) Clone() ChunkPayload {
	clone := p
	if p.GroupsPath != nil {
		clone.GroupsPath = append([]string(nil), p.GroupsPath...)
	}
	if p.MergedChunkIndices != nil {
		clone.MergedChunkIndices = append([]int(nil), p.MergedChunkIndices...)
	}
	if p.MergedChunkIDs != nil {
		clone.MergedChunkIDs = append([]string(nil), p.MergedChunkIDs...)
	}
	if p.ChunkSpan != nil {
		span := *p.ChunkSpan
		clone.ChunkSpan = &span
	}
	if p.Extra != nil {
		clone.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			clone.Extra[k] = v
		}
	}
	return clone
}

// Span is an inclusive chunk-index range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Hit is one search result flowing through the pipeline.
type Hit struct {
	ID           string
	Score        float32
	Payload      ChunkPayload
	RRFScore     float64
	BoostedScore float64
}

// BoostContext carries the per-request signals used by HybridSearcher's
// boosting phase: per-page-type multipliers and group-key multipliers. The
// source reliability allow-list lives in Config.ReliableSources. The
// orchestrator fills PageTypeBoosts from query normalization and leaves
// GroupBoosts unset.
type BoostContext struct {
	PageTypeBoosts map[string]float64
	GroupBoosts    map[string]float64
}

// MetadataFilter is a conjunction of equality predicates over payload fields.
// It is opaque to the core: VectorIndex implementations translate it to their
// native filter protocol.
type MetadataFilter struct {
	Equals map[string]string
}

// IndexHit is one raw result returned by a VectorIndex leg, before fusion.
type IndexHit struct {
	ID      string
	Score   float32
	Payload ChunkPayload
}

// Cursor is an opaque scroll continuation token.
type Cursor struct {
	Offset string
}

// VectorIndex is the external vector store consumed by HybridSearcher and
// ChunkCache. Implementations live in pkg/vector.
type VectorIndex interface {
	// SearchDense returns up to limit hits ranked by cosine similarity on the
	// dense named vector.
	SearchDense(ctx context.Context, collection string, vector DenseVector, limit int, filter *MetadataFilter, accuracy int) ([]IndexHit, error)

	// SearchSparse returns up to limit hits ranked by dot product on the
	// sparse named vector.
	SearchSparse(ctx context.Context, collection string, vector SparseVector, limit int, filter *MetadataFilter, accuracy int) ([]IndexHit, error)

	// Scroll fetches records matching filter, limit at a time, resuming from
	// cursor (nil to start). Returns the next cursor, or nil when exhausted.
	Scroll(ctx context.Context, collection string, filter *MetadataFilter, limit int, cursor *Cursor) ([]IndexHit, *Cursor, error)
}

// DocFilter builds the doc_id equality filter ChunkCache uses to scroll one
// document's chunks.
func DocFilter(docID string) *MetadataFilter {
	return &MetadataFilter{Equals: map[string]string{"doc_id": docID}}
}
