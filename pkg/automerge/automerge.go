// Package automerge expands retrieved chunks into contiguous, token-bounded
// neighbor windows from the same source document.
package automerge

import (
	"context"
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/chunkcache"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// TokenEstimator counts (or estimates) the number of tokens in text. Injected
// so AutoMerger can share a tiktoken-backed counter with ContextOptimizer.
type TokenEstimator interface {
	Estimate(text string) int
}

// FallbackEstimator estimates token count as max(1, len(text)/4), used when
// no tokenizer-backed estimator is configured.
type FallbackEstimator struct{}

// Estimate implements TokenEstimator.
func (FallbackEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// Config bounds AutoMerger's behavior.
type Config struct {
	Enabled       bool `koanf:"enabled" yaml:"enabled"`
	MaxTokens     int  `koanf:"max_tokens" yaml:"max_tokens"`
	UseTiktoken   bool `koanf:"use_tiktoken" yaml:"use_tiktoken"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 1200
	}
}

// Merger expands hits into token-bounded neighbor windows.
type Merger struct {
	cache     *chunkcache.Cache
	estimator TokenEstimator
}

// New constructs a Merger. estimator may be nil to use the fallback.
func New(cache *chunkcache.Cache, estimator TokenEstimator) *Merger {
	if estimator == nil {
		estimator = FallbackEstimator{}
	}
	return &Merger{cache: cache, estimator: estimator}
}

// windowKey identifies a merge window: (doc_id, ordered chunk indices).
type windowKey struct {
	docID   string
	indices string // joined chunk indices, used as a comparable map key
}

func newWindowKey(docID string, indices []int) windowKey {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = itoa(idx)
	}
	return windowKey{docID: docID, indices: strings.Join(parts, ",")}
}

// Merge expands each hit into the largest non-overlapping neighbor window
// that fits maxWindowTokens, preserving first-occurrence order.
func (m *Merger) Merge(ctx context.Context, hits []retrieval.Hit, maxWindowTokens int) []retrieval.Hit {
	if len(hits) == 0 {
		return nil
	}
	if maxWindowTokens <= 0 {
		return hits
	}

	type group struct {
		hits []retrieval.Hit
	}
	groups := make(map[string]*group)
	var groupOrder []string

	passthrough := make([]retrieval.Hit, 0)
	passthroughPos := make(map[int]bool)

	for i, h := range hits {
		if h.Payload.DocID == "" {
			passthrough = append(passthrough, h)
			passthroughPos[i] = true
			continue
		}
		g, ok := groups[h.Payload.DocID]
		if !ok {
			g = &group{}
			groups[h.Payload.DocID] = g
			groupOrder = append(groupOrder, h.Payload.DocID)
		}
		g.hits = append(g.hits, h)
	}

	// windowOf maps (docID, chunk_index) -> the Hit representing its window.
	windowOf := make(map[string]retrieval.Hit)
	keyOf := make(map[string]windowKey)

	for _, docID := range groupOrder {
		m.mergeDoc(ctx, docID, groups[docID].hits, maxWindowTokens, windowOf, keyOf)
	}

	out := make([]retrieval.Hit, 0, len(hits))
	emitted := make(map[windowKey]bool)
	ptIdx := 0
	for i, h := range hits {
		if passthroughPos[i] {
			out = append(out, passthrough[ptIdx])
			ptIdx++
			continue
		}
		posKey := docChunkKey(h.Payload.DocID, h.Payload.ChunkIndex)
		key, ok := keyOf[posKey]
		if !ok {
			out = append(out, h)
			continue
		}
		if emitted[key] {
			continue
		}
		emitted[key] = true
		out = append(out, windowOf[posKey])
	}
	return out
}

func docChunkKey(docID string, chunkIndex int) string {
	return docID + "#" + itoa(chunkIndex)
}

// mergeDoc runs the greedy bidirectional expansion for all hits of one
// document, recording each covered position's window in windowOf/keyOf.
func (m *Merger) mergeDoc(ctx context.Context, docID string, hits []retrieval.Hit, maxWindowTokens int, windowOf map[string]retrieval.Hit, keyOf map[string]windowKey) {
	sequence := m.cache.Get(ctx, docID)
	if len(sequence) == 0 {
		for _, h := range hits {
			k := newWindowKey(docID, []int{h.Payload.ChunkIndex})
			pk := docChunkKey(docID, h.Payload.ChunkIndex)
			windowOf[pk] = h
			keyOf[pk] = k
		}
		return
	}

	positions := make(map[int]int, len(sequence)) // chunk_index -> position in sequence
	for pos, ih := range sequence {
		positions[ih.Payload.ChunkIndex] = pos
	}

	covered := make(map[int]bool)

	sortedHits := append([]retrieval.Hit(nil), hits...)
	insertionSortByChunkIndex(sortedHits)

	for _, h := range sortedHits {
		pos, ok := positions[h.Payload.ChunkIndex]
		if !ok {
			k := newWindowKey(docID, []int{h.Payload.ChunkIndex})
			pk := docChunkKey(docID, h.Payload.ChunkIndex)
			if _, exists := windowOf[pk]; !exists {
				windowOf[pk] = h
				keyOf[pk] = k
			}
			continue
		}
		if covered[pos] {
			continue
		}

		start, end := pos, pos
		tokens := m.estimator.Estimate(sequence[pos].Payload.Text)

		for {
			expanded := false
			if start > 0 && !covered[start-1] {
				cand := m.estimator.Estimate(sequence[start-1].Payload.Text)
				if tokens+cand <= maxWindowTokens {
					start--
					tokens += cand
					expanded = true
				}
			}
			if end+1 < len(sequence) && !covered[end+1] {
				cand := m.estimator.Estimate(sequence[end+1].Payload.Text)
				if tokens+cand <= maxWindowTokens {
					end++
					tokens += cand
					expanded = true
				}
			}
			if !expanded {
				break
			}
		}

		indices := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			covered[i] = true
			indices = append(indices, sequence[i].Payload.ChunkIndex)
		}

		var merged retrieval.Hit
		if len(indices) > 1 {
			merged = buildMergedHit(h, sequence, start, end)
		} else {
			merged = h
		}

		key := newWindowKey(docID, indices)
		for _, idx := range indices {
			pk := docChunkKey(docID, idx)
			windowOf[pk] = merged
			keyOf[pk] = key
		}
	}
}

// buildMergedHit assembles a merged Hit's payload from its constituent span.
func buildMergedHit(base retrieval.Hit, sequence []retrieval.IndexHit, start, end int) retrieval.Hit {
	payload := base.Payload.Clone()

	var texts []string
	var indices []int
	var chunkIDs []string
	for i := start; i <= end; i++ {
		p := sequence[i].Payload
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
		indices = append(indices, p.ChunkIndex)
		if p.ChunkID != "" {
			chunkIDs = append(chunkIDs, p.ChunkID)
		}
	}

	mergedText := strings.TrimSpace(strings.Join(texts, "\n\n"))
	if mergedText != "" {
		payload.Text = mergedText
		payload.ContentLength = len(mergedText)
	}

	payload.AutoMerged = true
	payload.MergedChunkIndices = indices
	payload.MergedChunkCount = len(indices)
	payload.ChunkSpan = &retrieval.Span{Start: indices[0], End: indices[len(indices)-1]}
	if len(chunkIDs) > 0 {
		payload.MergedChunkIDs = chunkIDs
	}

	merged := base
	merged.Payload = payload
	return merged
}

func insertionSortByChunkIndex(hits []retrieval.Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].Payload.ChunkIndex > hits[j].Payload.ChunkIndex; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
