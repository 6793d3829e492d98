package contextopt

import "regexp"

// Config bounds the context optimizer's token budget and document selection.
type Config struct {
	MaxContextTokens      int     `koanf:"max_context_tokens" yaml:"max_context_tokens"`
	MinContextTokens      int     `koanf:"min_context_tokens" yaml:"min_context_tokens"`
	ReserveForResponse    float64 `koanf:"reserve_for_response" yaml:"reserve_for_response"`
	ReserveForListResponse float64 `koanf:"reserve_for_list_response" yaml:"reserve_for_list_response"`

	MaxDocuments      int `koanf:"max_documents" yaml:"max_documents"`
	MinDocuments      int `koanf:"min_documents" yaml:"min_documents"`
	TargetChunkTokens int `koanf:"target_chunk_tokens" yaml:"target_chunk_tokens"`

	// ListIntentPattern and ListSectionHeading make the list-intent detector
	// and its section-extraction target configurable per deployment, rather
	// than hardcoded to one language/domain.
	ListIntentPattern   string `koanf:"list_intent_pattern" yaml:"list_intent_pattern"`
	ListSectionHeading  string `koanf:"list_section_heading" yaml:"list_section_heading"`
	ListSectionMaxChars int    `koanf:"list_section_max_chars" yaml:"list_section_max_chars"`

	listIntentRE  *regexp.Regexp
	listHeadingRE *regexp.Regexp
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxContextTokens == 0 {
		c.MaxContextTokens = 3000
	}
	if c.MinContextTokens == 0 {
		c.MinContextTokens = 1000
	}
	if c.ReserveForResponse == 0 {
		c.ReserveForResponse = 0.35
	}
	if c.ReserveForListResponse == 0 {
		c.ReserveForListResponse = 0.25
	}
	if c.MaxDocuments == 0 {
		c.MaxDocuments = 7
	}
	if c.MinDocuments == 0 {
		c.MinDocuments = 3
	}
	if c.TargetChunkTokens == 0 {
		c.TargetChunkTokens = 400
	}
	if c.ListSectionMaxChars == 0 {
		c.ListSectionMaxChars = 8000
	}
}

// Validate compiles the configured patterns and checks numeric bounds.
func (c *Config) Validate() error {
	if c.MaxContextTokens <= 0 {
		return errConfig("max_context_tokens must be positive")
	}
	if c.ReserveForResponse <= 0 || c.ReserveForResponse >= 1 {
		return errConfig("reserve_for_response must be in (0, 1)")
	}

	if c.ListIntentPattern != "" {
		re, err := regexp.Compile("(?is)" + c.ListIntentPattern)
		if err != nil {
			return errConfig("invalid list_intent_pattern: " + err.Error())
		}
		c.listIntentRE = re
	}
	if c.ListSectionHeading != "" {
		re, err := regexp.Compile("(?im)" + c.ListSectionHeading)
		if err != nil {
			return errConfig("invalid list_section_heading: " + err.Error())
		}
		c.listHeadingRE = re
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }
func errConfig(msg string) error    { return configError("contextopt: " + msg) }
