package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

type fakeDense struct {
	vec []float32
	err error
}

func (f *fakeDense) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }
func (f *fakeDense) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeDense) Dimension() int  { return len(f.vec) }
func (f *fakeDense) Model() string   { return "fake-dense" }
func (f *fakeDense) Close() error    { return nil }

type fakeSparse struct {
	vec retrieval.SparseVector
	err error
}

func (f *fakeSparse) EmbedSparse(context.Context, string) (retrieval.SparseVector, error) {
	return f.vec, f.err
}

func TestHybridEmbedder_Embed_CombinesLegs(t *testing.T) {
	dense := &fakeDense{vec: []float32{0.1, 0.2}}
	sparse := &fakeSparse{vec: retrieval.SparseVector{Indices: []uint32{1, 2}, Values: []float32{0.5, 0.9}}}
	h := NewHybridEmbedder(dense, sparse)

	d, s, err := h.Embed(context.Background(), "query text")

	require.NoError(t, err)
	assert.Equal(t, retrieval.DenseVector{0.1, 0.2}, d)
	assert.Equal(t, 2, len(s.Indices))
}

func TestHybridEmbedder_Embed_SparseTopKTruncates(t *testing.T) {
	dense := &fakeDense{vec: []float32{0.1}}
	sparse := &fakeSparse{vec: retrieval.SparseVector{
		Indices: []uint32{1, 2, 3},
		Values:  []float32{0.1, 0.9, 0.5},
	}}
	h := NewHybridEmbedder(dense, sparse)
	h.SparseTopK = 2

	_, s, err := h.Embed(context.Background(), "query text")

	require.NoError(t, err)
	assert.Len(t, s.Indices, 2)
}

func TestHybridEmbedder_Embed_DenseErrorFails(t *testing.T) {
	h := NewHybridEmbedder(&fakeDense{err: errors.New("dense down")}, &fakeSparse{})
	_, _, err := h.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestHybridEmbedder_Embed_SparseErrorDegrades(t *testing.T) {
	h := NewHybridEmbedder(&fakeDense{vec: []float32{0.1}}, &fakeSparse{err: errors.New("sparse down")})

	d, s, err := h.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, retrieval.DenseVector{0.1}, d)
	assert.True(t, s.Empty())
}

func TestHybridEmbedder_Embed_NilSparseEmbedder(t *testing.T) {
	h := NewHybridEmbedder(&fakeDense{vec: []float32{0.1}}, nil)
	_, s, err := h.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestHybridEmbedder_EmbedBatch(t *testing.T) {
	dense := &fakeDense{vec: []float32{0.3}}
	sparse := &fakeSparse{vec: retrieval.SparseVector{Indices: []uint32{1}, Values: []float32{1}}}
	h := NewHybridEmbedder(dense, sparse)

	d, s, err := h.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, d, 2)
	assert.Len(t, s, 2)
}
