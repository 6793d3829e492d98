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

package vector

import (
	"fmt"
	"sync"

	"github.com/kestrelsearch/retrieval-core/pkg/registry"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// ProviderType identifies a vector index backend.
type ProviderType string

const (
	// ProviderChromem uses chromem-go for embedded, single-process vector
	// storage. Zero-config, no external dependencies, dense-only.
	ProviderChromem ProviderType = "chromem"

	// ProviderQdrant uses Qdrant, with native named dense+sparse vectors and
	// filtered scrolling — the reference hybrid backend for this module.
	ProviderQdrant ProviderType = "qdrant"

	// ProviderPinecone uses Pinecone's managed hybrid (dense+sparse) index.
	ProviderPinecone ProviderType = "pinecone"
)

// ProviderConfig is the configuration for creating a vector index.
type ProviderConfig struct {
	// Type identifies which backend to create.
	Type ProviderType `koanf:"type" yaml:"type"`

	Chromem  *ChromemConfig  `koanf:"chromem" yaml:"chromem,omitempty"`
	Qdrant   *QdrantConfig   `koanf:"qdrant" yaml:"qdrant,omitempty"`
	Pinecone *PineconeConfig `koanf:"pinecone" yaml:"pinecone,omitempty"`
}

// SetDefaults applies default values.
func (c *ProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = ProviderChromem
	}
	if c.Type == ProviderChromem && c.Chromem == nil {
		c.Chromem = &ChromemConfig{}
	}
	if c.Type == ProviderQdrant {
		if c.Qdrant == nil {
			c.Qdrant = &QdrantConfig{}
		}
		c.Qdrant.SetDefaults()
	}
}

// Validate checks the configuration.
func (c *ProviderConfig) Validate() error {
	switch c.Type {
	case ProviderChromem:
		return nil
	case ProviderQdrant:
		if c.Qdrant == nil {
			return fmt.Errorf("qdrant configuration is required")
		}
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant host is required")
		}
		return nil
	case ProviderPinecone:
		if c.Pinecone == nil {
			return fmt.Errorf("pinecone configuration is required")
		}
		if c.Pinecone.APIKey == "" {
			return fmt.Errorf("pinecone api_key is required")
		}
		return nil
	case "":
		return fmt.Errorf("provider type is required")
	default:
		return fmt.Errorf("unknown provider type: %q", c.Type)
	}
}

// NewIndex creates a retrieval.VectorIndex from configuration.
func NewIndex(cfg *ProviderConfig) (retrieval.VectorIndex, error) {
	if cfg == nil {
		return NewChromemIndex(ChromemConfig{})
	}

	switch cfg.Type {
	case ProviderChromem:
		chromemCfg := ChromemConfig{}
		if cfg.Chromem != nil {
			chromemCfg = *cfg.Chromem
		}
		return NewChromemIndex(chromemCfg)

	case ProviderQdrant:
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant configuration is required")
		}
		return NewQdrantIndex(*cfg.Qdrant)

	case ProviderPinecone:
		if cfg.Pinecone == nil {
			return nil, fmt.Errorf("pinecone configuration is required")
		}
		return NewPineconeIndex(*cfg.Pinecone)

	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}

// Closer is implemented by indexes holding a live connection or persistence
// handle that must be released on shutdown.
type Closer interface {
	Close() error
}

// Registry manages named vector indexes, for orchestrators that serve more
// than one collection or backend at once. Storage and name-collision
// checking are delegated to registry.BaseRegistry; Registry itself only adds
// insertion-order tracking (for List) and Closer-aware teardown, neither of
// which the generic registry knows about.
type Registry struct {
	mu    sync.Mutex
	base  *registry.BaseRegistry[retrieval.VectorIndex]
	order []string
}

// NewRegistry creates a new index registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[retrieval.VectorIndex]()}
}

// Register adds an index to the registry.
func (r *Registry) Register(name string, index retrieval.VectorIndex) error {
	if index == nil {
		return fmt.Errorf("index cannot be nil")
	}
	if err := r.base.Register(name, index); err != nil {
		return err
	}
	r.mu.Lock()
	r.order = append(r.order, name)
	r.mu.Unlock()
	return nil
}

// Get retrieves an index by name.
func (r *Registry) Get(name string) (retrieval.VectorIndex, bool) {
	return r.base.Get(name)
}

// MustGet retrieves an index by name or panics.
func (r *Registry) MustGet(name string) retrieval.VectorIndex {
	idx, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("vector index %q not found", name))
	}
	return idx
}

// List returns all registered index names, in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Close closes every registered index that implements Closer.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		idx, ok := r.base.Get(name)
		if !ok {
			continue
		}
		if closer, ok := idx.(Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close index %q: %w", name, err))
			}
		}
	}

	r.base.Clear()
	r.order = nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing indexes: %v", errs)
	}
	return nil
}
