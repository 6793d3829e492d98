package orchestrator

import "strings"

var entityCandidates = []string{
	"agent workplace", "supervisor workplace", "admin workplace",
	"api", "faq", "release notes", "chatbots",
}

var questionWords = []string{"how", "what", "why", "when", "where"}

// normalizedQuery is the result of step 1 of the orchestrator pipeline:
// trimming, a light synonym rewrite, entity-hint extraction, and a
// page-type boost hint derived from the query's surface shape.
type normalizedQuery struct {
	Text           string
	Entities       []string
	PageTypeBoosts map[string]float64
}

// normalizeQuery trims the raw query, rewrites known abbreviations,
// extracts entity-name hints, and derives a page-type boost hint from
// whether the query reads as a question.
func normalizeQuery(raw string) normalizedQuery {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "РН", "Release Notes")

	lower := strings.ToLower(text)
	var entities []string
	for _, c := range entityCandidates {
		if strings.Contains(lower, c) {
			entities = append(entities, c)
		}
	}

	faqBoost := 1.0
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			faqBoost = 1.2
			break
		}
	}

	return normalizedQuery{
		Text:           text,
		Entities:       entities,
		PageTypeBoosts: map[string]float64{"faq": faqBoost},
	}
}
