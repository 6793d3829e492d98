package retrievalerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cause := errors.New("boom")
	err := New(EmbeddingUnavailable, "embedder", "embed", "failed to compute query embeddings", cause)

	require.NotNil(t, err)
	assert.Equal(t, EmbeddingUnavailable, err.Kind)
	assert.Equal(t, "embedder", err.Component)
	assert.Equal(t, "embed", err.Operation)
	assert.Same(t, cause, err.Err)
}

func TestError_ErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with underlying error",
			err:  New(NoResults, "searcher", "search", "no results for query", errors.New("empty index")),
			want: "[searcher] search: no results for query: empty index",
		},
		{
			name: "without underlying error",
			err:  New(Cancelled, "orchestrator", "retrieve", "request cancelled", nil),
			want: "[orchestrator] retrieve: request cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(SearchFailed, "searcher", "search", "both legs failed", cause)

	assert.Same(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestError_UserMessage(t *testing.T) {
	tests := []struct {
		name string
		kind Outcome
		want string
	}{
		{"query processing", QueryProcessingFailed, "We couldn't process that query. Try rephrasing it."},
		{"embedding unavailable", EmbeddingUnavailable, "Search is temporarily unavailable. Please try again shortly."},
		{"search failed", SearchFailed, "Search is temporarily unavailable. Please try again shortly."},
		{"no results", NoResults, "No results were found for that query."},
		{"llm unavailable", LLMUnavailable, "This feature is temporarily unavailable. Please try again shortly."},
		{"cancelled", Cancelled, "The request was cancelled."},
		{"internal error", InternalError, "Something went wrong. Please try again."},
		{"unknown kind falls back to internal error", Outcome("something_new"), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.kind, "component", "op", "message", nil)
			assert.Equal(t, tt.want, err.UserMessage())
		})
	}
}
