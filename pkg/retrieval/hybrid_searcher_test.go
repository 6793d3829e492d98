package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex is a stub VectorIndex returning fixed or error results per leg.
type fakeIndex struct {
	dense     []IndexHit
	denseErr  error
	sparse    []IndexHit
	sparseErr error
}

func (f *fakeIndex) SearchDense(_ context.Context, _ string, _ DenseVector, _ int, _ *MetadataFilter, _ int) ([]IndexHit, error) {
	return f.dense, f.denseErr
}

func (f *fakeIndex) SearchSparse(_ context.Context, _ string, _ SparseVector, _ int, _ *MetadataFilter, _ int) ([]IndexHit, error) {
	return f.sparse, f.sparseErr
}

func (f *fakeIndex) Scroll(_ context.Context, _ string, _ *MetadataFilter, _ int, _ *Cursor) ([]IndexHit, *Cursor, error) {
	return nil, nil, nil
}

func testConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	cfg.UseSparse = true
	return cfg
}

func TestHybridSearcher_Search_FusesLegs(t *testing.T) {
	idx := &fakeIndex{
		dense:  []IndexHit{{ID: "a", Score: 0.9, Payload: ChunkPayload{Text: "dense only"}}},
		sparse: []IndexHit{{ID: "a", Score: 0.5, Payload: ChunkPayload{Text: "sparse side"}}, {ID: "b", Score: 0.4, Payload: ChunkPayload{Text: "sparse only"}}},
	}
	s := NewHybridSearcher(idx, testConfig(), nil)

	hits := s.Search(context.Background(), DenseVector{0.1}, SparseVector{Indices: []uint32{1}, Values: []float32{1}}, 10, BoostContext{}, nil)

	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID, "id present in both legs should outrank id present in one leg")
}

func TestHybridSearcher_Search_DegradesOnLegFailure(t *testing.T) {
	idx := &fakeIndex{
		dense:     nil,
		denseErr:  errors.New("dense backend down"),
		sparse:    []IndexHit{{ID: "a", Score: 0.5, Payload: ChunkPayload{Text: "still here"}}},
		sparseErr: nil,
	}
	s := NewHybridSearcher(idx, testConfig(), nil)

	hits := s.Search(context.Background(), DenseVector{0.1}, SparseVector{Indices: []uint32{1}, Values: []float32{1}}, 10, BoostContext{}, nil)

	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestHybridSearcher_Search_BothLegsFailReturnsEmpty(t *testing.T) {
	idx := &fakeIndex{denseErr: errors.New("down"), sparseErr: errors.New("down")}
	s := NewHybridSearcher(idx, testConfig(), nil)

	hits := s.Search(context.Background(), DenseVector{0.1}, SparseVector{Indices: []uint32{1}, Values: []float32{1}}, 10, BoostContext{}, nil)
	assert.Empty(t, hits)
}

func TestHybridSearcher_Search_EmptySparseSkipsSparseLeg(t *testing.T) {
	idx := &fakeIndex{dense: []IndexHit{{ID: "a", Score: 0.9, Payload: ChunkPayload{Text: "x"}}}}
	s := NewHybridSearcher(idx, testConfig(), nil)

	hits := s.Search(context.Background(), DenseVector{0.1}, SparseVector{}, 10, BoostContext{}, nil)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestHybridSearcher_Search_ZeroKReturnsNil(t *testing.T) {
	s := NewHybridSearcher(&fakeIndex{}, testConfig(), nil)
	assert.Nil(t, s.Search(context.Background(), nil, SparseVector{}, 0, BoostContext{}, nil))
}

func TestHybridSearcher_BoostScore_PageTypeAndGroup(t *testing.T) {
	cfg := testConfig()
	s := NewHybridSearcher(&fakeIndex{}, cfg, nil)

	hit := Hit{RRFScore: 1.0, Payload: ChunkPayload{PageType: "faq", GroupsPath: []string{"Android SDK"}}}
	boostCtx := BoostContext{
		PageTypeBoosts: map[string]float64{"faq": 1.2},
		GroupBoosts:    map[string]float64{"android": 1.3},
	}

	got := s.boostScore(hit, boostCtx)
	assert.Greater(t, got, 1.0)
}

func TestHybridSearcher_BoostScore_NonPositiveRRFGuardedPositive(t *testing.T) {
	cfg := testConfig()
	s := NewHybridSearcher(&fakeIndex{}, cfg, nil)

	hit := Hit{RRFScore: 0, Payload: ChunkPayload{}}
	got := s.boostScore(hit, BoostContext{})
	assert.Greater(t, got, 0.0)
}

func TestHybridSearcher_BoostScore_WellStructuredNumberedListMidText(t *testing.T) {
	cfg := testConfig()
	s := NewHybridSearcher(&fakeIndex{}, cfg, nil)

	// The numbered marker appears after a heading, not at the start of the
	// text, so detection must not be anchored to the beginning of the string.
	// "steps" also contains the example word "step", which adds the
	// technical-docs factor.
	hit := Hit{RRFScore: 1.0, Payload: ChunkPayload{Text: "Setup steps\n\n1. Install the SDK\n2. Configure the key"}}
	got := s.boostScore(hit, BoostContext{})
	assert.InDelta(t, cfg.BoostWellStructured*cfg.BoostTechnicalDocs, got, 0.001)
}

func TestMatchGroupBoost(t *testing.T) {
	ok, factor := matchGroupBoost([]string{"Android SDK", "FAQ"}, map[string]float64{"android": 1.3})
	assert.True(t, ok)
	assert.InDelta(t, 1.3, factor, 0.001)

	ok, _ = matchGroupBoost([]string{"iOS SDK"}, map[string]float64{"android": 1.3})
	assert.False(t, ok)
}
