package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingResult_FilterEligible(t *testing.T) {
	tests := []struct {
		name string
		r    RoutingResult
		want bool
	}{
		{
			name: "no primary theme is never eligible",
			r:    RoutingResult{PrimaryTheme: ""},
			want: false,
		},
		{
			name: "llm routing eligible at 0.9",
			r:    RoutingResult{PrimaryTheme: "sdk", Kind: RouterLLM, TopScore: 0.9},
			want: true,
		},
		{
			name: "llm routing ineligible below 0.9",
			r:    RoutingResult{PrimaryTheme: "sdk", Kind: RouterLLM, TopScore: 0.89},
			want: false,
		},
		{
			name: "heuristic routing eligible with top score and gap",
			r:    RoutingResult{PrimaryTheme: "sdk", Kind: RouterHeuristic, TopScore: 0.9, SecondScore: 0.4},
			want: true,
		},
		{
			name: "heuristic routing ineligible with insufficient gap",
			r:    RoutingResult{PrimaryTheme: "sdk", Kind: RouterHeuristic, TopScore: 0.9, SecondScore: 0.6},
			want: false,
		},
		{
			name: "heuristic routing ineligible below top-score floor",
			r:    RoutingResult{PrimaryTheme: "sdk", Kind: RouterHeuristic, TopScore: 0.8, SecondScore: 0},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.FilterEligible())
		})
	}
}

func themesFixture() map[string]Theme {
	return map[string]Theme{
		"android_sdk": {DisplayName: "Android SDK", Domain: "sdk_docs", Platform: "android"},
		"ios_sdk":     {DisplayName: "iOS SDK", Domain: "sdk_docs", Platform: "ios"},
		"admin_docs":  {DisplayName: "Admin Docs", Domain: "chatcenter_user_docs", Section: "admin"},
	}
}

func TestInferLabel(t *testing.T) {
	p := NewProvider(themesFixture())

	tests := []struct {
		name                            string
		domain, section, platform, role string
		want                            string
	}{
		{"matches by platform", "sdk_docs", "", "android", "", "Android SDK"},
		{"matches by domain+section", "chatcenter_user_docs", "admin", "", "", "Admin Docs"},
		{"no matching theme", "unknown_domain", "", "", "", ""},
		{"empty metadata never matches a constrained theme", "", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferLabel(p, tt.domain, tt.section, tt.platform, tt.role)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProvider_GetAndList(t *testing.T) {
	p := NewProvider(themesFixture())

	t.Run("get existing", func(t *testing.T) {
		th, ok := p.Get("android_sdk")
		assert.True(t, ok)
		assert.Equal(t, "Android SDK", th.DisplayName)
		assert.Equal(t, "android_sdk", th.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, ok := p.Get("nonexistent")
		assert.False(t, ok)
	})

	t.Run("list returns all loaded themes", func(t *testing.T) {
		assert.Len(t, p.List(), 3)
	})
}

func TestLoadProvider_MissingFile(t *testing.T) {
	p, warnings, err := LoadProvider("/nonexistent/path/themes.yaml")
	assert.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, p.List())
}
