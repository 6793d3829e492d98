// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures a Gemini-backed Provider.
type GeminiConfig struct {
	APIKey      string  `koanf:"api_key" yaml:"api_key"`
	Model       string  `koanf:"model" yaml:"model"`
	Temperature float64 `koanf:"temperature" yaml:"temperature"`
	TopP        float64 `koanf:"top_p" yaml:"top_p"`
}

// SetDefaults applies the documented defaults.
func (c *GeminiConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
}

// Validate checks required fields.
func (c *GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("llm: gemini api_key is required")
	}
	return nil
}

// GeminiProvider implements Provider against the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	cfg    GeminiConfig
}

// NewGeminiProvider constructs a GeminiProvider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.Model, cfg: cfg}, nil
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
			Role:  "user",
		}
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: userPrompt}},
		Role:  "user",
	}}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("llm: empty response from gemini")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			out += part.Text
		}
	}
	return out, nil
}

var _ Provider = (*GeminiProvider)(nil)
