package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparseVector_Empty(t *testing.T) {
	assert.True(t, SparseVector{}.Empty())
	assert.False(t, SparseVector{Indices: []uint32{1}, Values: []float32{0.5}}.Empty())
}

func TestSparseVector_TopK(t *testing.T) {
	v := SparseVector{
		Indices: []uint32{1, 2, 3, 4, 5},
		Values:  []float32{0.1, 0.9, -0.8, 0.05, 0.3},
	}

	t.Run("non-positive k is a no-op", func(t *testing.T) {
		assert.Equal(t, v, v.TopK(0))
		assert.Equal(t, v, v.TopK(-1))
	})

	t.Run("k larger than length is a no-op", func(t *testing.T) {
		assert.Equal(t, v, v.TopK(10))
	})

	t.Run("keeps the k largest-magnitude entries", func(t *testing.T) {
		out := v.TopK(2)
		assert.Len(t, out.Indices, 2)
		assert.Len(t, out.Values, 2)

		kept := map[uint32]float32{}
		for i, idx := range out.Indices {
			kept[idx] = out.Values[i]
		}
		assert.Contains(t, kept, uint32(2))
		assert.Contains(t, kept, uint32(3))
	})
}

func TestChunkPayload_Canonical(t *testing.T) {
	t.Run("prefers canonical url", func(t *testing.T) {
		p := ChunkPayload{URL: "https://example.com/a", CanonicalURL: "https://example.com/canonical"}
		assert.Equal(t, "https://example.com/canonical", p.Canonical())
	})

	t.Run("falls back to url", func(t *testing.T) {
		p := ChunkPayload{URL: "https://example.com/a"}
		assert.Equal(t, "https://example.com/a", p.Canonical())
	})
}

func TestChunkPayload_Clone(t *testing.T) {
	original := ChunkPayload{
		DocID:              "doc-1",
		GroupsPath:         []string{"a", "b"},
		MergedChunkIndices: []int{1, 2},
		MergedChunkIDs:     []string{"c1", "c2"},
		ChunkSpan:          &Span{Start: 1, End: 2},
		Extra:              map[string]any{"k": "v"},
	}

	clone := original.Clone()
	clone.GroupsPath[0] = "mutated"
	clone.MergedChunkIndices[0] = 99
	clone.MergedChunkIDs[0] = "mutated"
	clone.ChunkSpan.Start = 99
	clone.Extra["k"] = "mutated"

	assert.Equal(t, "a", original.GroupsPath[0])
	assert.Equal(t, 1, original.MergedChunkIndices[0])
	assert.Equal(t, "c1", original.MergedChunkIDs[0])
	assert.Equal(t, 1, original.ChunkSpan.Start)
	assert.Equal(t, "v", original.Extra["k"])
}

func TestDocFilter(t *testing.T) {
	f := DocFilter("doc-42")
	assert.Equal(t, "doc-42", f.Equals["doc_id"])
}
