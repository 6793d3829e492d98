// Package orchestrator drives one end-to-end retrieval request: query
// normalization, theme routing, hybrid search, reranking, auto-merge, and
// context optimization, returning a terminal *retrievalerr.Error (one of the
// retrievalerr outcome kinds) on failure and a *Result otherwise.
package orchestrator

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kestrelsearch/retrieval-core/pkg/automerge"
	"github.com/kestrelsearch/retrieval-core/pkg/contextopt"
	"github.com/kestrelsearch/retrieval-core/pkg/reranker"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
	"github.com/kestrelsearch/retrieval-core/pkg/retrievalerr"
	"github.com/kestrelsearch/retrieval-core/pkg/theme"
)

// QueryEmbedder produces the dense+sparse pair a query is searched with.
// Satisfied by *embedder.HybridEmbedder.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (retrieval.DenseVector, retrieval.SparseVector, error)
}

// Result is the Orchestrator's successful outcome.
type Result struct {
	Hits                   []retrieval.Hit `json:"hits"`
	PrimaryTheme           string           `json:"primary_theme,omitempty"`
	RequiresDisambiguation bool             `json:"requires_disambiguation"`
	MultiThemeInstruction  string           `json:"multi_theme_instruction,omitempty"`
}

// searchK is the fan-in width requested from HybridSearcher before reranking.
const searchK = 20

// rerankTopN is how many reranked hits survive into auto-merge.
const rerankTopN = 6

// rerankBatchSize and rerankMaxLength bound the reranker's input.
const (
	rerankBatchSize = 20
	rerankMaxLength = 384
)

const (
	themeBoostPrimary   = 0.08
	themeBoostSecondary = 0.04
)

// Orchestrator wires the retrieval components into a single request
// pipeline: normalize, route, embed, search, boost, rerank, merge, optimize.
type Orchestrator struct {
	embedder    QueryEmbedder
	searcher    *retrieval.HybridSearcher
	themeRouter *theme.Router
	themes      *theme.Provider
	reranker    reranker.Reranker
	merger      *automerge.Merger
	optimizer   *contextopt.Optimizer

	maxMergeTokens    int
	availableBudget   int
	logger            *slog.Logger
}

// Config bundles the few cross-cutting knobs the orchestrator itself owns,
// beyond what its constituent components already take.
type Config struct {
	MaxMergeTokens  int
	AvailableBudget int
}

// New constructs an Orchestrator from its already-configured components.
func New(
	embedder QueryEmbedder,
	searcher *retrieval.HybridSearcher,
	themeRouter *theme.Router,
	themes *theme.Provider,
	rr reranker.Reranker,
	merger *automerge.Merger,
	optimizer *contextopt.Optimizer,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if rr == nil {
		rr = reranker.NoOpReranker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		embedder:        embedder,
		searcher:        searcher,
		themeRouter:     themeRouter,
		themes:          themes,
		reranker:        rr,
		merger:          merger,
		optimizer:       optimizer,
		maxMergeTokens:  cfg.MaxMergeTokens,
		availableBudget: cfg.AvailableBudget,
		logger:          logger,
	}
}

// Retrieve drives one end-to-end request. ctx's deadline/cancellation is
// honored at every suspension point.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, meta *theme.UserMetadata) (*Result, *retrievalerr.Error) {
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "retrieve", "request cancelled", err)
	}

	// Step 1: normalize.
	norm := normalizeQuery(query)
	if norm.Text == "" {
		return nil, retrievalerr.New(retrievalerr.QueryProcessingFailed, "orchestrator", "normalize", "empty query", nil)
	}

	// Step 2: theme routing + optional filter.
	routing := o.themeRouter.Route(ctx, norm.Text, meta)
	var filter *retrieval.MetadataFilter
	if routing.FilterEligible() {
		filter = buildThemeFilter(routing)
	}

	// Step 3: embed.
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "embed", "request cancelled", err)
	}
	dense, sparse, err := o.embedder.Embed(ctx, norm.Text)
	if err != nil {
		return nil, retrievalerr.New(retrievalerr.EmbeddingUnavailable, "embedder", "embed", "failed to compute query embeddings", err)
	}

	// Step 4: search, with unfiltered retry on an empty filtered result.
	boostCtx := retrieval.BoostContext{PageTypeBoosts: norm.PageTypeBoosts}
	hits := o.searcher.Search(ctx, dense, sparse, searchK, boostCtx, filter)
	if filter != nil && len(hits) == 0 {
		o.logger.Info("filtered search empty, retrying without filter")
		hits = o.searcher.Search(ctx, dense, sparse, searchK, boostCtx, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "search", "request cancelled", err)
	}
	if len(hits) == 0 {
		return nil, retrievalerr.New(retrievalerr.NoResults, "searcher", "search", "no results for query", nil)
	}

	// Step 5: additive theme boost, then re-sort.
	applyThemeBoost(hits, o.themes, routing)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].BoostedScore > hits[j].BoostedScore
	})

	// Step 6: rerank.
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "rerank", "request cancelled", err)
	}
	reranked := o.rerank(ctx, norm.Text, hits)

	// Step 7: auto-merge.
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "merge", "request cancelled", err)
	}
	maxWindow := o.maxMergeTokens
	if o.availableBudget > 0 && o.availableBudget < maxWindow {
		maxWindow = o.availableBudget
	}
	merged := o.merger.Merge(ctx, reranked, maxWindow)
	if err := ctx.Err(); err != nil {
		return nil, retrievalerr.New(retrievalerr.Cancelled, "orchestrator", "merge", "request cancelled", err)
	}

	// Step 8: context optimization.
	optimized := o.optimizer.Optimize(norm.Text, merged)

	// Step 9: attach theme display-name labels.
	attachThemeLabels(optimized, o.themes)

	return &Result{
		Hits:                   optimized,
		PrimaryTheme:           routing.PrimaryTheme,
		RequiresDisambiguation: routing.RequiresDisambiguation,
		MultiThemeInstruction:  multiThemeInstruction(routing),
	}, nil
}

// rerank invokes the Reranker on the top rerankBatchSize hits and reorders
// by the returned scores, falling back to the fused+boosted order on any
// failure rather than failing the request.
func (o *Orchestrator) rerank(ctx context.Context, query string, hits []retrieval.Hit) []retrieval.Hit {
	scores, err := o.reranker.Score(ctx, query, hits, rerankBatchSize, rerankMaxLength)
	if err != nil {
		o.logger.Warn("reranker failed, keeping fused+boosted order", "error", err)
		return firstN(hits, rerankTopN)
	}

	type scored struct {
		hit   retrieval.Hit
		score float32
	}
	n := len(scores)
	if n > len(hits) {
		n = len(hits)
	}
	candidates := make([]scored, n)
	for i := 0; i < n; i++ {
		candidates[i] = scored{hit: hits[i], score: scores[i]}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]retrieval.Hit, 0, rerankTopN)
	for i := 0; i < len(candidates) && i < rerankTopN; i++ {
		out = append(out, candidates[i].hit)
	}
	return out
}

func firstN(hits []retrieval.Hit, n int) []retrieval.Hit {
	if len(hits) < n {
		n = len(hits)
	}
	out := make([]retrieval.Hit, n)
	copy(out, hits[:n])
	return out
}

func buildThemeFilter(routing theme.RoutingResult) *retrieval.MetadataFilter {
	equals := map[string]string{}
	if len(routing.PreferredDomains) > 0 {
		equals["domain"] = routing.PreferredDomains[0]
	}
	if len(routing.PreferredSections) > 0 {
		equals["section"] = routing.PreferredSections[0]
	}
	if len(routing.PreferredPlatforms) > 0 {
		equals["platform"] = routing.PreferredPlatforms[0]
	}
	if len(equals) == 0 {
		return nil
	}
	return &retrieval.MetadataFilter{Equals: equals}
}

// applyThemeBoost applies the additive theme-routing boost, kept
// deliberately separate from HybridSearcher's multiplicative boost table:
// +0.08 for the primary theme, +0.04 for any secondary theme.
func applyThemeBoost(hits []retrieval.Hit, themes *theme.Provider, routing theme.RoutingResult) {
	if routing.PrimaryTheme == "" || themes == nil {
		return
	}
	secondary := map[string]bool{}
	for _, id := range routing.Themes {
		if id != routing.PrimaryTheme {
			secondary[id] = true
		}
	}

	for i := range hits {
		label := theme.InferLabel(themes, hits[i].Payload.Domain, hits[i].Payload.Section, hits[i].Payload.Platform, hits[i].Payload.Role)
		if label == "" {
			continue
		}
		if primaryTheme, ok := themes.Get(routing.PrimaryTheme); ok && label == primaryTheme.DisplayName {
			hits[i].BoostedScore += themeBoostPrimary
			continue
		}
		for id := range secondary {
			if t, ok := themes.Get(id); ok && label == t.DisplayName {
				hits[i].BoostedScore += themeBoostSecondary
				break
			}
		}
	}
}

func attachThemeLabels(hits []retrieval.Hit, themes *theme.Provider) {
	if themes == nil {
		return
	}
	for i := range hits {
		p := hits[i].Payload
		label := theme.InferLabel(themes, p.Domain, p.Section, p.Platform, p.Role)
		if label == "" {
			continue
		}
		payload := p.Clone()
		payload.ThemeLabel = label
		hits[i].Payload = payload
	}
}

// multiThemeInstruction returns an answer-generation hint when ≥2 themes
// are plausible, or "" otherwise.
func multiThemeInstruction(routing theme.RoutingResult) string {
	plausible := 0
	for _, id := range routing.Themes {
		if routing.Scores[id] > 0 {
			plausible++
		}
	}
	if plausible < 2 {
		return ""
	}
	return "The query may span more than one topic area; consider noting which topic each part of the answer applies to."
}
