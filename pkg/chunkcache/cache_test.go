package chunkcache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// countingIndex counts all Scroll calls and serves one fixed page.
type countingIndex struct {
	calls int32
	seq   []retrieval.IndexHit
	err   error
}

func (c *countingIndex) SearchDense(context.Context, string, retrieval.DenseVector, int, *retrieval.MetadataFilter, int) ([]retrieval.IndexHit, error) {
	return nil, nil
}

func (c *countingIndex) SearchSparse(context.Context, string, retrieval.SparseVector, int, *retrieval.MetadataFilter, int) ([]retrieval.IndexHit, error) {
	return nil, nil
}

func (c *countingIndex) Scroll(_ context.Context, _ string, _ *retrieval.MetadataFilter, _ int, cursor *retrieval.Cursor) ([]retrieval.IndexHit, *retrieval.Cursor, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return nil, nil, c.err
	}
	if cursor != nil {
		return nil, nil, nil
	}
	return c.seq, nil, nil
}

func newCache(t *testing.T, idx retrieval.VectorIndex, cfg Config) *Cache {
	t.Helper()
	cfg.SetDefaults()
	cache, err := New(idx, cfg, nil)
	require.NoError(t, err)
	return cache
}

func TestCache_Get_FetchesAndCaches(t *testing.T) {
	idx := &countingIndex{seq: []retrieval.IndexHit{
		{Payload: retrieval.ChunkPayload{DocID: "doc-1", ChunkIndex: 1, Text: "b"}},
		{Payload: retrieval.ChunkPayload{DocID: "doc-1", ChunkIndex: 0, Text: "a"}},
	}}
	cache := newCache(t, idx, Config{})

	seq := cache.Get(context.Background(), "doc-1")
	require.Len(t, seq, 2)
	assert.Equal(t, 0, seq[0].Payload.ChunkIndex, "cache sorts fetched sequence by chunk index")

	cache.Get(context.Background(), "doc-1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&idx.calls), "second call should hit cache, not the index")
}

func TestCache_Get_EmptyDocIDReturnsNil(t *testing.T) {
	cache := newCache(t, &countingIndex{}, Config{})
	assert.Nil(t, cache.Get(context.Background(), ""))
}

func TestCache_Get_ScrollFailureDegradesToEmpty(t *testing.T) {
	idx := &countingIndex{err: assert.AnError}
	cache := newCache(t, idx, Config{})

	seq := cache.Get(context.Background(), "doc-1")
	assert.Nil(t, seq)
}

func TestCache_Get_ExpiredEntryRefetches(t *testing.T) {
	idx := &countingIndex{seq: []retrieval.IndexHit{{Payload: retrieval.ChunkPayload{DocID: "doc-1", ChunkIndex: 0, Text: "a"}}}}
	cache := newCache(t, idx, Config{TTL: time.Millisecond})

	cache.Get(context.Background(), "doc-1")
	time.Sleep(5 * time.Millisecond)
	cache.Get(context.Background(), "doc-1")

	assert.Equal(t, int32(2), atomic.LoadInt32(&idx.calls))
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects non-positive maxsize", func(t *testing.T) {
		cfg := Config{MaxSize: 0, TTL: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		cfg := Config{MaxSize: 10, TTL: 0}
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts defaulted config", func(t *testing.T) {
		cfg := Config{}
		cfg.SetDefaults()
		assert.NoError(t, cfg.Validate())
	})
}
