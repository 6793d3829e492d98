package contextopt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

func testConfig() Config {
	cfg := Config{
		ListIntentPattern:  "list|enumerate all",
		ListSectionHeading: "^#+\\s*steps",
	}
	cfg.SetDefaults()
	_ = cfg.Validate()
	return cfg
}

func hitWithText(id, docID string, text string) retrieval.Hit {
	return retrieval.Hit{ID: id, Payload: retrieval.ChunkPayload{DocID: docID, Text: text}}
}

func TestOptimizer_Optimize_EmptyHits(t *testing.T) {
	o := New(testConfig(), CharEstimator{}, nil)
	assert.Nil(t, o.Optimize("anything", nil))
}

func TestOptimizer_Optimize_SelectsFewerDocsForSimpleQueries(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, CharEstimator{}, nil)

	hits := make([]retrieval.Hit, 5)
	for i := range hits {
		hits[i] = hitWithText("h"+string(rune('0'+i)), "doc-"+string(rune('0'+i)), strings.Repeat("word ", 50))
	}

	out := o.Optimize("what is the api key", hits)
	assert.LessOrEqual(t, len(out), 2)
}

func TestOptimizer_Optimize_ComplexQueryKeepsMoreDocs(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, CharEstimator{}, nil)

	hits := make([]retrieval.Hit, 7)
	for i := range hits {
		hits[i] = hitWithText("h"+string(rune('0'+i)), "doc-"+string(rune('0'+i)), strings.Repeat("word ", 50))
	}

	out := o.Optimize("how to configure step by step in detail", hits)
	assert.Equal(t, cfg.MaxDocuments, len(out))
}

func TestOptimizer_Optimize_ListIntentExtractsSectionHeading(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, CharEstimator{}, nil)

	text := "# Intro\nsome preamble\n\n## Steps\n1. do this\n2. do that\n\n## Next\nsomething else"
	hits := []retrieval.Hit{hitWithText("h0", "doc-0", text)}

	out := o.Optimize("please list all the steps", hits)

	require.Len(t, out, 1)
	assert.True(t, out[0].Payload.ListMode)
	assert.Contains(t, out[0].Payload.Text, "do this")
	assert.NotContains(t, out[0].Payload.Text, "something else")
}

func TestOptimizer_Optimize_ListIntentFallsBackToFullDocWithoutHeading(t *testing.T) {
	cfg := testConfig()
	o := New(cfg, CharEstimator{}, nil)

	text := "# Intro\njust a paragraph with no matching heading at all"
	hits := []retrieval.Hit{hitWithText("h0", "doc-0", text)}

	out := o.Optimize("list everything please", hits)

	require.Len(t, out, 1)
	assert.True(t, out[0].Payload.ListMode)
	assert.Contains(t, out[0].Payload.Text, "just a paragraph")
}

func TestOptimizer_Optimize_TruncatesOverBudgetChunks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContextTokens = 100
	cfg.TargetChunkTokens = 20
	o := New(cfg, CharEstimator{}, nil)

	longText := strings.Repeat("word ", 500)
	hits := []retrieval.Hit{hitWithText("h0", "doc-0", longText)}

	out := o.Optimize("what is this", hits)

	require.Len(t, out, 1)
	assert.Less(t, len(out[0].Payload.Text), len(longText))
	assert.Greater(t, out[0].Payload.OriginalLength, out[0].Payload.OptimizedLength)
}

func TestCharEstimator_Estimate(t *testing.T) {
	assert.Zero(t, CharEstimator{}.Estimate(""))
	assert.Equal(t, 1, CharEstimator{}.Estimate("ab"))
	assert.Greater(t, CharEstimator{}.Estimate(strings.Repeat("a", 35)), 5)
}

func TestIsListIntent(t *testing.T) {
	o := New(testConfig(), CharEstimator{}, nil)

	assert.True(t, o.isListIntent("please list the options"))
	assert.False(t, o.isListIntent("what is the capital of France"))
	assert.False(t, o.isListIntent(""))
}
