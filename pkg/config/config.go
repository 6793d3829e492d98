// Package config loads and validates the process-scoped configuration for
// every component: the vector index backend, the embedding and reranking
// providers, the retrieval pipeline's tunables, and logging.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kestrelsearch/retrieval-core/pkg/automerge"
	"github.com/kestrelsearch/retrieval-core/pkg/chunkcache"
	"github.com/kestrelsearch/retrieval-core/pkg/contextopt"
	"github.com/kestrelsearch/retrieval-core/pkg/llm"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
	"github.com/kestrelsearch/retrieval-core/pkg/theme"
	"github.com/kestrelsearch/retrieval-core/pkg/vector"
)

// Config is the root, process-scoped configuration bundling every
// component's tunables. It is immutable after Load returns.
type Config struct {
	Logger LoggerConfig `koanf:"logger" yaml:"logger"`

	Vector vector.ProviderConfig `koanf:"vector" yaml:"vector"`

	Embedder EmbedderConfig `koanf:"embedder" yaml:"embedder"`

	Gemini llm.GeminiConfig `koanf:"gemini" yaml:"gemini"`

	Retrieval  retrieval.Config  `koanf:"retrieval" yaml:"retrieval"`
	ChunkCache chunkcache.Config `koanf:"chunk_cache" yaml:"chunk_cache"`
	AutoMerge  automerge.Config  `koanf:"auto_merge" yaml:"auto_merge"`
	ContextOpt contextopt.Config `koanf:"context_opt" yaml:"context_opt"`
	Theme      theme.Config      `koanf:"theme" yaml:"theme"`

	ThemesConfigPath string `koanf:"themes_config_path" yaml:"themes_config_path"`
}

// LoggerConfig controls process-wide structured logging.
type LoggerConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	Output string `koanf:"output" yaml:"output"`
}

// EmbedderConfig selects and configures the dense+sparse embedding backend.
type EmbedderConfig struct {
	Provider  string                 `koanf:"provider" yaml:"provider"`
	Ollama    OllamaEmbedderConfig   `koanf:"ollama" yaml:"ollama"`
	SparseBuckets uint32             `koanf:"sparse_buckets" yaml:"sparse_buckets"`
	SparseTopK    int                `koanf:"sparse_top_k" yaml:"sparse_top_k"`
}

// OllamaEmbedderConfig mirrors embedder.OllamaConfig with koanf tags
// resolvable from the root document (avoids importing pkg/embedder here
// purely for its config struct, keeping this package's import graph a strict
// superset of leaf packages, never the reverse).
type OllamaEmbedderConfig struct {
	BaseURL   string `koanf:"base_url" yaml:"base_url"`
	Model     string `koanf:"model" yaml:"model"`
	Dimension int    `koanf:"dimension" yaml:"dimension"`
}

// SetDefaults applies defaults across every nested component config.
func (c *Config) SetDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "ollama"
	}
	if c.Embedder.Ollama.BaseURL == "" {
		c.Embedder.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Embedder.Ollama.Model == "" {
		c.Embedder.Ollama.Model = "nomic-embed-text"
	}
	c.Vector.SetDefaults()
	c.Retrieval.SetDefaults()
	c.ChunkCache.SetDefaults()
	c.AutoMerge.SetDefaults()
	c.ContextOpt.SetDefaults()
	c.Theme.SetDefaults()
	c.Gemini.SetDefaults()
}

// Validate checks the vector, retrieval, chunk cache and context optimizer
// configs. The Gemini, auto-merge and theme configs are not validated here.
func (c *Config) Validate() error {
	if err := c.Vector.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.ChunkCache.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.ContextOpt.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads path (YAML), overlays environment variables prefixed
// RETRIEVAL_ (double underscore as the nesting delimiter, e.g.
// RETRIEVAL_VECTOR__QDRANT__HOST), applies defaults, and validates the
// result.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envProvider := env.Provider("RETRIEVAL_", ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, "RETRIEVAL_")
		return strings.ToLower(strings.ReplaceAll(trimmed, "__", "."))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env overlay: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
