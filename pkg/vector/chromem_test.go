package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

func TestChromemIndex_UpsertAndSearchDense(t *testing.T) {
	idx, err := NewChromemIndex(ChromemConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "docs", "a", retrieval.DenseVector{1, 0, 0}, retrieval.ChunkPayload{DocID: "doc-a", Text: "alpha"}))
	require.NoError(t, idx.Upsert(ctx, "docs", "b", retrieval.DenseVector{0, 1, 0}, retrieval.ChunkPayload{DocID: "doc-b", Text: "beta"}))

	hits, err := idx.SearchDense(ctx, "docs", retrieval.DenseVector{1, 0, 0}, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "alpha", hits[0].Payload.Text)
}

func TestChromemIndex_SearchSparseAlwaysEmpty(t *testing.T) {
	idx, err := NewChromemIndex(ChromemConfig{})
	require.NoError(t, err)

	hits, err := idx.SearchSparse(context.Background(), "docs", retrieval.SparseVector{Indices: []uint32{1}, Values: []float32{0.5}}, 5, nil, 0)
	assert.NoError(t, err)
	assert.Nil(t, hits)
}

func TestChromemIndex_ScrollReturnsAllDocuments(t *testing.T) {
	idx, err := NewChromemIndex(ChromemConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "docs", "a", retrieval.DenseVector{1, 0}, retrieval.ChunkPayload{DocID: "doc-a", Text: "alpha"}))
	require.NoError(t, idx.Upsert(ctx, "docs", "b", retrieval.DenseVector{0, 1}, retrieval.ChunkPayload{DocID: "doc-b", Text: "beta"}))

	hits, cursor, err := idx.Scroll(ctx, "docs", nil, 10, nil)
	require.NoError(t, err)
	assert.Nil(t, cursor)
	assert.Len(t, hits, 2)
}

func TestChromemIndex_ScrollEmptyCollection(t *testing.T) {
	idx, err := NewChromemIndex(ChromemConfig{})
	require.NoError(t, err)

	hits, cursor, err := idx.Scroll(context.Background(), "docs", nil, 10, nil)
	require.NoError(t, err)
	assert.Nil(t, cursor)
	assert.Nil(t, hits)
}

func TestChromemIndex_DeleteAndClose(t *testing.T) {
	idx, err := NewChromemIndex(ChromemConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "docs", "a", retrieval.DenseVector{1, 0}, retrieval.ChunkPayload{DocID: "doc-a", Text: "alpha"}))
	require.NoError(t, idx.Delete(ctx, "docs", "a"))

	hits, _, err := idx.Scroll(ctx, "docs", nil, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.NoError(t, idx.Close())
}
