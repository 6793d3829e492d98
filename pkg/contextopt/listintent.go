package contextopt

import (
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// isListIntent reports whether query matches the configured list-intent
// pattern. Returns false when no pattern is configured, making the behavior
// opt-in per deployment.
func (o *Optimizer) isListIntent(query string) bool {
	if query == "" || o.cfg.listIntentRE == nil {
		return false
	}
	return o.cfg.listIntentRE.MatchString(query)
}

// handleListIntent implements the strict "extract mode" scenario: keep only
// the top document, try to pull the configured section heading out of it
// verbatim, and fall back to a paragraph-bounded truncation of the whole
// document when the heading isn't present.
func (o *Optimizer) handleListIntent(hits []retrieval.Hit) []retrieval.Hit {
	top := hits[0]
	original := top.Payload.Text

	var extracted string
	if o.cfg.listHeadingRE != nil {
		extracted = extractMarkdownSection(original, o.cfg.listHeadingRE, o.cfg.ListSectionMaxChars)
	}

	if strings.TrimSpace(extracted) == "" {
		o.logger.Info("list intent: configured section heading not found, falling back to full document")
		maxChars := int(float64(o.cfg.MaxContextTokens)*(1-o.cfg.ReserveForListResponse)) * 4
		extracted = truncateByParagraphs(original, maxChars)
	}

	payload := top.Payload.Clone()
	payload.Text = extracted
	payload.OriginalLength = len(original)
	payload.OptimizedLength = len(extracted)
	payload.ListMode = true

	merged := top
	merged.Payload = payload

	o.logger.Info("list intent result", "original_length", len(original), "optimized_length", len(extracted))
	return []retrieval.Hit{merged}
}
