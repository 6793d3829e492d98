package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeminiConfig_SetDefaults(t *testing.T) {
	cfg := GeminiConfig{}
	cfg.SetDefaults()
	assert.Equal(t, "gemini-2.0-flash", cfg.Model)

	cfg2 := GeminiConfig{Model: "gemini-1.5-pro"}
	cfg2.SetDefaults()
	assert.Equal(t, "gemini-1.5-pro", cfg2.Model)
}

func TestGeminiConfig_Validate(t *testing.T) {
	assert.Error(t, (&GeminiConfig{}).Validate())
	assert.NoError(t, (&GeminiConfig{APIKey: "key"}).Validate())
}

func TestNewGeminiProvider_RejectsMissingAPIKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
