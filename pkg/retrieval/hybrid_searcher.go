package retrieval

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// HybridSearcher runs dense+sparse retrieval against a VectorIndex, fuses the
// two ranked lists with Reciprocal Rank Fusion, and applies a fixed-order
// chain of deterministic multiplicative boosts.
type HybridSearcher struct {
	index  VectorIndex
	cfg    Config
	logger *slog.Logger
}

// NewHybridSearcher constructs a searcher bound to index, using cfg (already
// defaulted and validated).
func NewHybridSearcher(index VectorIndex, cfg Config, logger *slog.Logger) *HybridSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridSearcher{index: index, cfg: cfg, logger: logger}
}

// legResult is the outcome of one retrieval leg, run concurrently with its
// sibling.
type legResult struct {
	hits []IndexHit
	err  error
}

// Search returns up to k hits ranked by boosted_score. Both legs are issued
// concurrently; a failing leg degrades to an empty result rather than failing
// the whole call.
func (s *HybridSearcher) Search(ctx context.Context, dense DenseVector, sparse SparseVector, k int, boostCtx BoostContext, filter *MetadataFilter) []Hit {
	if k <= 0 {
		return nil
	}

	kLeg := k * 2
	var wg sync.WaitGroup
	var denseRes, sparseRes legResult

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverLeg(&denseRes, s.logger, "dense")
		hits, err := s.index.SearchDense(ctx, s.cfg.Collection, dense, kLeg, filter, s.cfg.HNSWEfSearch)
		denseRes = legResult{hits: hits, err: err}
	}()

	runSparse := s.cfg.UseSparse && !sparse.Empty()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer recoverLeg(&sparseRes, s.logger, "sparse")
		if !runSparse {
			return
		}
		hits, err := s.index.SearchSparse(ctx, s.cfg.Collection, sparse, kLeg, filter, s.cfg.HNSWEfSearch)
		sparseRes = legResult{hits: hits, err: err}
	}()

	wg.Wait()

	if denseRes.err != nil {
		s.logger.Warn("dense search leg failed", "error", denseRes.err)
		denseRes.hits = nil
	}
	if sparseRes.err != nil {
		s.logger.Warn("sparse search leg failed", "error", sparseRes.err)
		sparseRes.hits = nil
	}

	fused := s.rrfFuse(denseRes.hits, sparseRes.hits)
	for i := range fused {
		fused[i].BoostedScore = s.boostScore(fused[i], boostCtx)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].BoostedScore > fused[j].BoostedScore
	})

	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

// rrfFuse computes rrf_score as the exact sum of the per-leg RRF terms for
// ids present in either leg.
func (s *HybridSearcher) rrfFuse(dense, sparse []IndexHit) []Hit {
	scores := make(map[string]float64)
	payloads := make(map[string]IndexHit)
	order := make([]string, 0, len(dense)+len(sparse))

	accumulate := func(hits []IndexHit, weight float64) {
		for rank, h := range hits {
			if _, ok := payloads[h.ID]; !ok {
				payloads[h.ID] = h
				order = append(order, h.ID)
			}
			scores[h.ID] += weight * (1.0 / float64(s.cfg.RRFK+rank+1))
		}
	}
	// Dense-side payload wins on collision: apply sparse first, dense second.
	accumulate(sparse, s.cfg.HybridSparseWeight)
	accumulate(dense, s.cfg.HybridDenseWeight)
	for _, h := range dense {
		payloads[h.ID] = h
	}

	out := make([]Hit, 0, len(order))
	for _, id := range order {
		out = append(out, Hit{
			ID:       id,
			Score:    payloads[id].Score,
			Payload:  payloads[id].Payload,
			RRFScore: scores[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RRFScore > out[j].RRFScore
	})
	return out
}

var (
	overviewPaths = []string{"/start/", "/overview", "/introduction", "/about", "/what-is"}
	faqPaths      = []string{"/faq", "/guide", "/manual", "/help"}
	technicalPaths = []string{"/admin/", "/api/", "/sdk/", "/integration"}
	releasePaths  = []string{"/blog", "/release", "/version", "/changelog"}

	overviewTitleWords  = []string{"обзор", "overview", "введение", "intro", "начало работы"}
	technicalTitleWords = []string{"настройка", "config", "конфигурация", "установка"}

	structureMarkers = regexp.MustCompile(`##|###|•|\d+\.`)
	exampleWords      = []string{"пример", "example", "шаг", "step"}
)

// boostScore applies the fixed-order multiplicative boost chain to a fused
// hit's rrf_score, producing boosted_score. The additive theme boost is a
// separate, later phase owned by the orchestrator, never unified with this
// table.
func (s *HybridSearcher) boostScore(hit Hit, boostCtx BoostContext) float64 {
	score := hit.RRFScore
	if score <= 0 {
		score = 1e-9 // guards boosted_score > 0 even for a zero-valued leg term
	}
	p := hit.Payload

	if factor, ok := boostCtx.PageTypeBoosts[strings.ToLower(p.PageType)]; ok {
		score *= factor
	}

	if matched, factor := matchGroupBoost(p.GroupsPath, boostCtx.GroupBoosts); matched {
		score *= factor
	}

	url := strings.ToLower(p.Canonical())
	title := strings.ToLower(p.Title)
	text := p.Text

	switch {
	case matchesAny(url, overviewPaths):
		score *= s.cfg.BoostOverviewDocs
	case matchesAny(url, faqPaths):
		score *= s.cfg.BoostFAQGuides
	case matchesAny(url, technicalPaths):
		score *= s.cfg.BoostTechnicalDocs
	case matchesAny(url, releasePaths):
		score *= s.cfg.BoostReleaseNotes
	}

	switch {
	case matchesAny(title, overviewTitleWords):
		score *= s.cfg.BoostOverviewDocs
	case matchesAny(title, technicalTitleWords):
		score *= s.cfg.BoostTechnicalDocs
	}

	contentLength := p.ContentLength
	if contentLength == 0 {
		contentLength = len(text)
	}
	if contentLength >= 1000 && contentLength <= 5000 {
		score *= s.cfg.BoostOptimalLength
	} else if contentLength > 5000 {
		score *= s.cfg.BoostTechnicalDocs
	}

	if text != "" {
		lower := strings.ToLower(text)
		if structureMarkers.MatchString(lower) || strings.Contains(lower, "- ") {
			score *= s.cfg.BoostWellStructured
		}
		if matchesAny(lower, exampleWords) {
			score *= s.cfg.BoostTechnicalDocs
		}
	}

	for _, reliable := range s.cfg.ReliableSources {
		if strings.EqualFold(p.Source, reliable) {
			score *= s.cfg.BoostReliableSource
			break
		}
	}

	if depth := strings.Count(strings.Trim(url, "/"), "/"); depth > 3 {
		score *= 0.95
	}

	return score
}

// matchGroupBoost finds the first group in groupsPath whose normalized key
// case-insensitively substring-matches a configured group boost key.
func matchGroupBoost(groupsPath []string, groupBoosts map[string]float64) (bool, float64) {
	if len(groupBoosts) == 0 {
		return false, 0
	}
	for _, group := range groupsPath {
		normalized := strings.ToLower(strings.TrimSpace(group))
		for key, factor := range groupBoosts {
			if key != "" && strings.Contains(normalized, key) {
				return true, factor
			}
		}
	}
	return false, 0
}

func matchesAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func recoverLeg(res *legResult, logger *slog.Logger, leg string) {
	if r := recover(); r != nil {
		logger.Error("search leg panicked, treating as empty", "leg", leg, "panic", r)
		*res = legResult{}
	}
}
