// Package contextopt trims and reorders retrieved chunks to fit the LLM's
// context budget: adaptive document-count selection by query complexity,
// per-document token budgeting, and Markdown-structure-aware truncation.
package contextopt

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// Estimator counts (or estimates) tokens in text.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator implements the reference fallback: len(text)/3.5.
type CharEstimator struct{}

// Estimate implements Estimator.
func (CharEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(text)) / 3.5)
	if n < 1 {
		return 1
	}
	return n
}

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+`)

// complexity classifies a query's expected answer length.
type complexity string

const (
	complexitySimple  complexity = "simple"
	complexityMedium  complexity = "medium"
	complexityComplex complexity = "complex"
)

var simpleIndicators = []string{
	"what is", "what's", "how is it called", "where is", "when",
	"which", "list", "enumerate", "what are",
}

var complexIndicators = []string{
	"how to configure", "step by step", "in detail", "examples",
}

// Optimizer trims and truncates hits to fit an answer-generation context
// budget, favoring documents proportional to query complexity.
type Optimizer struct {
	cfg       Config
	estimator Estimator
	logger    *slog.Logger
}

// New constructs an Optimizer. estimator may be nil to use CharEstimator.
func New(cfg Config, estimator Estimator, logger *slog.Logger) *Optimizer {
	if estimator == nil {
		estimator = CharEstimator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{cfg: cfg, estimator: estimator, logger: logger}
}

// Optimize trims hits (already reranked, highest-first) to the configured
// token and document-count budget.
func (o *Optimizer) Optimize(query string, hits []retrieval.Hit) []retrieval.Hit {
	if len(hits) == 0 {
		return nil
	}

	if o.isListIntent(query) {
		o.logger.Info("detected list intent, using extract mode")
		return o.handleListIntent(hits)
	}

	availableTokens := int(float64(o.cfg.MaxContextTokens) * (1 - o.cfg.ReserveForResponse))
	comp := o.analyzeComplexity(query)
	targetDocs := o.selectDocumentCount(len(hits), comp)

	optimized := o.optimizeChunkSizes(hits[:targetDocs], availableTokens)

	total := 0
	for _, h := range optimized {
		total += o.estimator.Estimate(h.Payload.Text)
	}
	o.logger.Info("context optimized", "documents", len(optimized), "tokens", total, "complexity", string(comp))

	return optimized
}

func (o *Optimizer) analyzeComplexity(query string) complexity {
	lower := strings.ToLower(query)
	for _, ind := range simpleIndicators {
		if strings.Contains(lower, ind) {
			return complexitySimple
		}
	}
	for _, ind := range complexIndicators {
		if strings.Contains(lower, ind) {
			return complexityComplex
		}
	}
	return complexityMedium
}

func (o *Optimizer) selectDocumentCount(available int, comp complexity) int {
	var want int
	switch comp {
	case complexitySimple:
		want = 2
	case complexityComplex:
		want = o.cfg.MaxDocuments
	default:
		want = o.cfg.MaxDocuments - 1
	}
	if want > available {
		want = available
	}
	if want < 1 {
		want = 1
	}
	return want
}

// optimizeChunkSizes distributes availableTokens across hits, giving the top
// two documents a larger share.
func (o *Optimizer) optimizeChunkSizes(hits []retrieval.Hit, availableTokens int) []retrieval.Hit {
	if len(hits) == 0 {
		return nil
	}
	tokensPerDoc := availableTokens / len(hits)

	out := make([]retrieval.Hit, len(hits))
	for i, h := range hits {
		var maxTokens int
		if i < 2 {
			maxTokens = minInt(int(float64(tokensPerDoc)*1.5), 600)
		} else {
			maxTokens = minInt(tokensPerDoc, o.cfg.TargetChunkTokens)
		}

		original := h.Payload.Text
		optimizedText := o.optimizeTextMarkdown(original, maxTokens)

		payload := h.Payload.Clone()
		payload.Text = optimizedText
		payload.OriginalLength = len(original)
		payload.OptimizedLength = len(optimizedText)

		merged := h
		merged.Payload = payload
		out[i] = merged
	}
	return out
}

// optimizeTextMarkdown truncates text to fit maxTokens, splitting on
// Markdown blocks rather than sentences so lists and fenced code stay intact.
func (o *Optimizer) optimizeTextMarkdown(text string, maxTokens int) string {
	if text == "" {
		return ""
	}
	if o.estimator.Estimate(text) <= maxTokens {
		return text
	}
	maxChars := maxTokens * 4
	return truncateByParagraphs(text, maxChars)
}

func splitMarkdownBlocks(text string) []string {
	var blocks []string
	var buffer []string
	inCodeBlock := false

	flush := func() {
		if len(buffer) > 0 {
			blocks = append(blocks, strings.Trim(strings.Join(buffer, "\n"), "\n"))
			buffer = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "```") {
			if inCodeBlock {
				buffer = append(buffer, line)
				flush()
				inCodeBlock = false
			} else {
				flush()
				inCodeBlock = true
				buffer = append(buffer, line)
			}
			continue
		}

		if inCodeBlock {
			buffer = append(buffer, line)
			continue
		}

		if stripped == "" {
			flush()
			continue
		}

		buffer = append(buffer, line)
	}
	flush()

	out := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

func truncateBlock(block string, maxChars int) string {
	if len(block) <= maxChars {
		return block
	}

	stripped := strings.TrimSpace(block)
	if strings.HasPrefix(stripped, "```") {
		cut := maxChars - 4
		if cut < 0 {
			cut = 0
		}
		if cut > len(block) {
			cut = len(block)
		}
		truncated := strings.TrimRight(block[:cut], " \t\n")
		if !strings.HasSuffix(truncated, "```") {
			truncated += "\n```"
		}
		return truncated
	}

	lines := strings.Split(block, "\n")
	var acc []string
	current := 0
	for _, line := range lines {
		lineLen := len(line)
		if current+lineLen <= maxChars {
			acc = append(acc, line)
			current += lineLen + 1
		} else {
			if len(acc) == 0 {
				cut := lineLen
				if cut > maxChars {
					cut = maxChars
				}
				acc = append(acc, line[:cut])
			}
			break
		}
	}
	return strings.TrimSpace(strings.Join(acc, "\n"))
}

func truncateByParagraphs(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	blocks := splitMarkdownBlocks(text)
	if len(blocks) == 0 {
		if maxChars > len(text) {
			maxChars = len(text)
		}
		return text[:maxChars]
	}

	var assembled string
	for _, block := range blocks {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		var candidate string
		if assembled != "" {
			candidate = assembled + "\n\n" + block
		} else {
			candidate = block
		}
		if len(candidate) <= maxChars {
			assembled = candidate
			continue
		}

		sep := 0
		if assembled != "" {
			sep = 2
		}
		remaining := maxChars - len(assembled) - sep
		if remaining > 0 {
			truncated := truncateBlock(block, remaining)
			if truncated != "" {
				if assembled != "" {
					assembled = assembled + "\n\n" + truncated
				} else {
					assembled = truncated
				}
			}
		}
		break
	}
	return strings.TrimSpace(assembled)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
