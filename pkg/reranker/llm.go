package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/llm"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// LLMReranker asks an llm.Provider to score candidates against a query in a
// single completion call, returning a strict JSON array of {id, score}.
type LLMReranker struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewLLMReranker constructs an LLMReranker.
func NewLLMReranker(provider llm.Provider, logger *slog.Logger) *LLMReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMReranker{provider: provider, logger: logger}
}

type llmRerankVote struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Score implements Reranker. On any LLM or parse failure it logs and falls
// back to each candidate's existing boosted score, never failing the call.
func (r *LLMReranker) Score(ctx context.Context, query string, candidates []retrieval.Hit, batchSize, maxLength int) ([]float32, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if batchSize <= 0 || batchSize > len(candidates) {
		batchSize = len(candidates)
	}
	batch := candidates[:batchSize]

	prompt := r.buildPrompt(query, batch, maxLength)
	systemPrompt := "You are a search result scoring system. Score how relevant each candidate " +
		"is to the query on a 0.0-1.0 scale. Return a strict JSON array of objects " +
		"{\"id\": \"...\", \"score\": 0.0-1.0}, one per candidate, in the input order."

	raw, err := r.provider.Complete(ctx, systemPrompt, prompt, 800, 0)
	if err != nil {
		r.logger.Warn("reranker LLM call failed, falling back to existing scores", "error", err)
		return NoOpReranker{}.Score(ctx, query, candidates, batchSize, maxLength)
	}

	votes, err := r.parseVotes(raw)
	if err != nil {
		r.logger.Warn("reranker LLM response unparsable, falling back to existing scores", "error", err)
		return NoOpReranker{}.Score(ctx, query, candidates, batchSize, maxLength)
	}

	byID := make(map[string]float64, len(votes))
	for _, v := range votes {
		byID[v.ID] = v.Score
	}

	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		if s, ok := byID[c.ID]; ok {
			scores[i] = float32(s)
		} else {
			scores[i] = float32(c.BoostedScore)
		}
	}
	return scores, nil
}

func (r *LLMReranker) buildPrompt(query string, candidates []retrieval.Hit, maxLength int) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(sanitize(query))
	sb.WriteString("\n\nCandidates:\n\n")

	for i, c := range candidates {
		text := c.Payload.Text
		if maxLength > 0 && len(text) > maxLength {
			text = text[:maxLength] + "..."
		}
		fmt.Fprintf(&sb, "Candidate %d (id: %s):\n%s\n\n", i+1, c.ID, sanitize(text))
	}

	sb.WriteString("Return a JSON array like [{\"id\": \"...\", \"score\": 0.0-1.0}, ...], one entry per candidate.\n")
	return sb.String()
}

func (r *LLMReranker) parseVotes(raw string) ([]llmRerankVote, error) {
	cleaned := strings.TrimSpace(raw)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("reranker: no JSON array found in LLM response")
	}
	var votes []llmRerankVote
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &votes); err != nil {
		return nil, fmt.Errorf("reranker: decode LLM response: %w", err)
	}
	return votes, nil
}

// sanitize strips role-indicator and delimiter patterns that could be used
// to inject instructions into the reranking prompt.
func sanitize(input string) string {
	replacer := strings.NewReplacer(
		"SYSTEM:", "", "System:", "", "system:", "",
		"ASSISTANT:", "", "Assistant:", "", "assistant:", "",
		"USER:", "", "User:", "", "user:", "",
		"```", "",
	)
	return strings.TrimSpace(replacer.Replace(input))
}
