// Package reranker scores retrieved candidates for relevance beyond vector
// similarity, typically by asking an LLM to judge each one against the
// query.
package reranker

import (
	"context"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// Reranker scores candidates against query. Score is pure: ordering
// decisions belong to the caller.
type Reranker interface {
	// Score returns one float per candidate, same order as candidates.
	// Candidates beyond batchSize are not scored by the underlying model but
	// must still appear in the result (implementations pad with a neutral
	// score). Candidate text is truncated to maxLength before scoring.
	Score(ctx context.Context, query string, candidates []retrieval.Hit, batchSize, maxLength int) ([]float32, error)
}

// NoOpReranker returns a candidate's existing boosted score unchanged. Used
// when reranking is disabled or as a fallback after a reranker failure.
type NoOpReranker struct{}

// Score implements Reranker.
func (NoOpReranker) Score(_ context.Context, _ string, candidates []retrieval.Hit, _, _ int) ([]float32, error) {
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		scores[i] = float32(c.BoostedScore)
	}
	return scores, nil
}

var _ Reranker = NoOpReranker{}
var _ Reranker = (*LLMReranker)(nil)
