package theme

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/kestrelsearch/retrieval-core/pkg/llm"
)

// Config controls the optional LLM routing path. The heuristic path is
// always available and requires no configuration.
type Config struct {
	UseLLM        bool     `koanf:"use_llm" yaml:"use_llm"`
	ProviderOrder []string `koanf:"provider_order" yaml:"provider_order"`
	MaxTokens     int      `koanf:"max_tokens" yaml:"max_tokens"`
}

// SetDefaults applies documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 400
	}
}

// Router maps queries to themes. Route never fails the request: any LLM or
// configuration error falls back to the heuristic path.
type Router struct {
	cfg       Config
	provider  *Provider
	providers map[string]llm.Provider
	logger    *slog.Logger
}

// New constructs a Router. providers maps a configured provider name (as it
// appears in cfg.ProviderOrder) to an llm.Provider; it may be nil or empty
// to disable the LLM path regardless of cfg.UseLLM.
func New(cfg Config, provider *Provider, providers map[string]llm.Provider, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, provider: provider, providers: providers, logger: logger}
}

// Route classifies query into one or more themes, optionally weighted by
// user metadata. Always returns a result.
func (r *Router) Route(ctx context.Context, query string, meta *UserMetadata) RoutingResult {
	if r.cfg.UseLLM && len(r.providers) > 0 {
		if result, ok := r.tryLLMRouting(ctx, query, meta); ok {
			return result
		}
	}
	return r.heuristicRouting(query, meta)
}

func (r *Router) heuristicRouting(query string, meta *UserMetadata) RoutingResult {
	queryLower := strings.ToLower(query)
	themes := r.provider.List()

	scores := make(map[string]float64, len(themes))
	for _, t := range themes {
		scores[t.ID] = scoreByKeywords(queryLower, t) + scoreByUserMetadata(meta, t)
	}

	ordered := sortedThemeIDs(scores)
	var primary string
	var top, second float64
	if len(ordered) > 0 {
		primary = ordered[0]
		top = scores[ordered[0]]
	}
	if len(ordered) > 1 {
		second = scores[ordered[1]]
	}
	if top == 0 {
		primary = ""
	}

	result := RoutingResult{
		Themes:      ordered,
		PrimaryTheme: primary,
		Scores:      scores,
		Kind:        RouterHeuristic,
		TopScore:    top,
		SecondScore: second,
		RequiresDisambiguation: top == 0 || (second > 0 && (top-second) < 0.2),
	}
	r.fillHints(&result)
	return result
}

// llmThemeVote is one entry of the strict-JSON response the LLM path
// demands: at most three theme candidates with a confidence score.
type llmThemeVote struct {
	ThemeID string  `json:"theme_id" jsonschema:"required,description=Theme identifier from the provided list"`
	Score   float64 `json:"score" jsonschema:"required,minimum=0,maximum=1,description=Confidence in [0,1]"`
	Reason  string  `json:"reason,omitempty"`
}

func (r *Router) tryLLMRouting(ctx context.Context, query string, meta *UserMetadata) (RoutingResult, bool) {
	themes := r.provider.List()
	if len(themes) == 0 {
		return RoutingResult{}, false
	}

	systemPrompt := "You classify user queries against a predefined set of documentation themes. " +
		"Respond with a strict JSON array matching this schema: " + llmThemeVoteSchema() + ". " +
		"Return between 1 and 3 objects, ordered by descending confidence."

	var desc strings.Builder
	for _, t := range themes {
		desc.WriteString("- ")
		desc.WriteString(t.ID)
		desc.WriteString(": ")
		desc.WriteString(t.DisplayName)
		desc.WriteString(" (domain=")
		desc.WriteString(t.Domain)
		desc.WriteString(", section=")
		desc.WriteString(t.Section)
		desc.WriteString(", platform=")
		desc.WriteString(t.Platform)
		desc.WriteString(", role=")
		desc.WriteString(t.Role)
		desc.WriteString(")\n")
	}

	var metaDesc string
	if meta != nil {
		metaDesc = "User metadata: role=" + meta.Role + " platform=" + meta.Platform + "\n"
	}

	userPrompt := metaDesc + "Themes:\n" + desc.String() + "\nQuery: " + query +
		"\n\nRespond with a JSON array like [{\"theme_id\": \"...\", \"score\": 0.0-1.0, \"reason\": \"...\"}]."

	for _, name := range r.providerOrder() {
		provider, ok := r.providers[name]
		if !ok {
			continue
		}
		raw, err := provider.Complete(ctx, systemPrompt, userPrompt, r.cfg.MaxTokens, 0)
		if err != nil {
			r.logger.Warn("theme router LLM provider failed", "provider", name, "error", err)
			continue
		}
		result, ok := r.parseLLMResponse(raw, name)
		if ok {
			return result, true
		}
	}
	return RoutingResult{}, false
}

func (r *Router) providerOrder() []string {
	if len(r.cfg.ProviderOrder) > 0 {
		return r.cfg.ProviderOrder
	}
	order := make([]string, 0, len(r.providers))
	for name := range r.providers {
		order = append(order, name)
	}
	sort.Strings(order)
	return order
}

func (r *Router) parseLLMResponse(raw, providerName string) (RoutingResult, bool) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		r.logger.Warn("theme router: empty LLM response", "provider", providerName)
		return RoutingResult{}, false
	}

	var votes []llmThemeVote
	if err := json.Unmarshal([]byte(cleaned), &votes); err != nil {
		r.logger.Warn("theme router: LLM JSON decode error", "provider", providerName, "error", err)
		return RoutingResult{}, false
	}

	scores := make(map[string]float64, len(votes))
	for _, v := range votes {
		if v.ThemeID == "" {
			continue
		}
		if _, ok := r.provider.Get(v.ThemeID); !ok {
			continue
		}
		scores[v.ThemeID] = v.Score
	}

	ordered := sortedThemeIDs(scores)
	if len(ordered) == 0 {
		return RoutingResult{}, false
	}

	primary := ordered[0]
	top := scores[primary]
	var second float64
	if len(ordered) > 1 {
		second = scores[ordered[1]]
	}

	result := RoutingResult{
		Themes:                 ordered,
		PrimaryTheme:           primary,
		Scores:                 scores,
		Kind:                   RouterLLM,
		TopScore:               top,
		SecondScore:            second,
		RequiresDisambiguation: top < 0.5,
	}
	r.fillHints(&result)
	return result, true
}

func (r *Router) fillHints(result *RoutingResult) {
	if result.PrimaryTheme == "" {
		return
	}
	t, ok := r.provider.Get(result.PrimaryTheme)
	if !ok {
		return
	}
	if t.Section != "" {
		result.PreferredSections = []string{t.Section}
	}
	if t.Platform != "" {
		result.PreferredPlatforms = []string{t.Platform}
	}
	if t.Domain != "" {
		result.PreferredDomains = []string{t.Domain}
	}
}

func sortedThemeIDs(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// stripCodeFence strips ```json ... ``` wrapping and a leading "json" label
// some LLMs add even when instructed to return bare JSON.
func stripCodeFence(answer string) string {
	cleaned := strings.TrimSpace(answer)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
	}
	if strings.HasPrefix(strings.ToLower(cleaned), "json") {
		cleaned = strings.TrimSpace(cleaned[4:])
	}
	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}
