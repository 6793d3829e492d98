// Package theme classifies a query into one or more predefined themes,
// driving a downstream metadata filter and a post-search score boost.
package theme

// Theme is an immutable facet-constraint record loaded from configuration
// at startup.
type Theme struct {
	ID          string `yaml:"-"`
	DisplayName string `yaml:"display_name"`
	Domain      string `yaml:"domain"`
	Section     string `yaml:"section"`
	Platform    string `yaml:"platform"`
	Role        string `yaml:"role"`
	Description string `yaml:"description"`
}

// RouterKind identifies which path produced a RoutingResult.
type RouterKind string

const (
	RouterHeuristic RouterKind = "heuristic"
	RouterLLM       RouterKind = "llm"
)

// RoutingResult is ThemeRouter's output: an ordered theme list, the primary
// theme (if any), per-theme scores, and the hint sets the orchestrator uses
// for filtering and boosting.
//
// Invariant: if PrimaryTheme is non-empty, it equals Themes[0].
type RoutingResult struct {
	Themes                []string
	PrimaryTheme          string
	Scores                map[string]float64
	Kind                  RouterKind
	TopScore              float64
	SecondScore           float64
	RequiresDisambiguation bool
	PreferredSections     []string
	PreferredPlatforms    []string
	PreferredDomains      []string
}

// FilterEligible reports whether this result is confident enough to
// constrain search with a metadata filter: LLM routing needs top score
// ≥ 0.9; heuristic routing needs top score ≥ 0.85 and a ≥0.35 gap over the
// second-place theme.
func (r RoutingResult) FilterEligible() bool {
	if r.PrimaryTheme == "" {
		return false
	}
	switch r.Kind {
	case RouterLLM:
		return r.TopScore >= 0.9
	default:
		return r.TopScore >= 0.85 && (r.TopScore-r.SecondScore) >= 0.35
	}
}
