package theme

import "strings"

// UserMetadata carries optional per-request hints (e.g. from session state)
// that nudge theme scoring without constraining it.
type UserMetadata struct {
	Role     string
	Platform string
}

// scoreByKeywords sums keyword-map hits against a theme's platform/section
// facets, plus small domain-specific bonuses.
func scoreByKeywords(queryLower string, t Theme) float64 {
	var score float64
	if t.Platform != "" {
		if words, ok := keywordMap[t.Platform]; ok && containsAny(queryLower, words) {
			score += 1.0
		}
	}
	if t.Section != "" {
		if words, ok := keywordMap[t.Section]; ok && containsAny(queryLower, words) {
			score += 0.7
		}
	}
	if t.Domain == "sdk_docs" && strings.Contains(queryLower, "sdk") {
		score += 0.5
	}
	if t.Domain == "chatcenter_user_docs" && containsAny(queryLower, domainUserInterfaceWords) {
		score += 0.5
	}
	return score
}

// scoreByUserMetadata adds a small positive weight when the caller's
// role/platform hints match the theme's own facets.
func scoreByUserMetadata(meta *UserMetadata, t Theme) float64 {
	if meta == nil {
		return 0
	}
	var score float64
	role := strings.ToLower(meta.Role)
	platform := strings.ToLower(meta.Platform)
	if role != "" && t.Role != "" && role == strings.ToLower(t.Role) {
		score += 0.5
	}
	if platform != "" && t.Platform != "" && platform == strings.ToLower(t.Platform) {
		score += 0.5
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
