package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/retrieval-core/pkg/llm"
)

// fakeLLMProvider returns a canned response or error.
type fakeLLMProvider struct {
	response string
	err      error
}

func (f *fakeLLMProvider) Complete(_ context.Context, _, _ string, _ int, _ float32) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func routerThemes() *Provider {
	return NewProvider(map[string]Theme{
		"android_sdk": {DisplayName: "Android SDK", Domain: "sdk_docs", Platform: "android"},
		"ios_sdk":     {DisplayName: "iOS SDK", Domain: "sdk_docs", Platform: "ios"},
	})
}

func TestRouter_Route_HeuristicFallback(t *testing.T) {
	r := New(Config{}, routerThemes(), nil, nil)

	result := r.Route(context.Background(), "how do I set up the android sdk", nil)

	assert.Equal(t, RouterHeuristic, result.Kind)
	assert.Equal(t, "android_sdk", result.PrimaryTheme)
	assert.Equal(t, []string{"android"}, result.PreferredPlatforms)
}

func TestRouter_Route_NoMatchRequiresDisambiguation(t *testing.T) {
	r := New(Config{}, routerThemes(), nil, nil)

	result := r.Route(context.Background(), "what is the meaning of life", nil)

	assert.Empty(t, result.PrimaryTheme)
	assert.True(t, result.RequiresDisambiguation)
}

func TestRouter_Route_LLMPath(t *testing.T) {
	provider := &fakeLLMProvider{response: `[{"theme_id": "ios_sdk", "score": 0.95, "reason": "mentions swift"}]`}
	providers := map[string]llm.Provider{"gemini": provider}
	r := New(Config{UseLLM: true, ProviderOrder: []string{"gemini"}}, routerThemes(), providers, nil)

	result := r.Route(context.Background(), "how do I use swift with the sdk", nil)

	require.Equal(t, RouterLLM, result.Kind)
	assert.Equal(t, "ios_sdk", result.PrimaryTheme)
	assert.InDelta(t, 0.95, result.TopScore, 0.001)
	assert.False(t, result.RequiresDisambiguation)
}

func TestRouter_Route_LLMFailureFallsBackToHeuristic(t *testing.T) {
	provider := &fakeLLMProvider{err: assert.AnError}
	providers := map[string]llm.Provider{"gemini": provider}
	r := New(Config{UseLLM: true, ProviderOrder: []string{"gemini"}}, routerThemes(), providers, nil)

	result := r.Route(context.Background(), "how do I set up the android sdk", nil)

	assert.Equal(t, RouterHeuristic, result.Kind)
	assert.Equal(t, "android_sdk", result.PrimaryTheme)
}

func TestRouter_Route_LLMGarbageFallsBackToHeuristic(t *testing.T) {
	provider := &fakeLLMProvider{response: "not json at all"}
	providers := map[string]llm.Provider{"gemini": provider}
	r := New(Config{UseLLM: true, ProviderOrder: []string{"gemini"}}, routerThemes(), providers, nil)

	result := r.Route(context.Background(), "how do I set up the android sdk", nil)

	assert.Equal(t, RouterHeuristic, result.Kind)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced with json label", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced without label", "```\n[{\"a\":1}]\n```", `[{"a":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.input))
		})
	}
}
