// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// ChromemIndex implements retrieval.VectorIndex over chromem-go for
// zero-config, single-process deployments: pure Go, optional gzip-compressed
// file persistence, cosine similarity, no external services.
//
// chromem-go has no native sparse vector or hybrid search support, so
// SearchSparse always returns an empty result — HybridSearcher degrades to a
// dense-only search when paired with this backend.
type ChromemIndex struct {
	db          *chromem.DB
	persistPath string
	compress    bool
	mu          sync.RWMutex

	collections map[string]*chromem.Collection

	// embeddingFunc is never invoked: every vector is supplied precomputed by
	// the embedder package.
	embeddingFunc chromem.EmbeddingFunc
}

// ChromemConfig configures the chromem-go backed index.
type ChromemConfig struct {
	// PersistPath for file persistence (optional). Empty means in-memory only.
	PersistPath string `yaml:"persist_path,omitempty"`
	// Compress enables gzip compression for persistence.
	Compress bool `yaml:"compress,omitempty"`
}

// NewChromemIndex creates a chromem-go backed index, loading an existing
// database from PersistPath if one is present.
func NewChromemIndex(cfg ChromemConfig) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}

		dbPath := cfg.PersistPath + "/vectors.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}

		if _, statErr := os.Stat(dbPath); statErr == nil {
			db, err = chromem.NewPersistentDB(dbPath, cfg.Compress)
			if err != nil {
				slog.Warn("failed to load existing vector database, creating new", "path", dbPath, "error", err)
				db = chromem.NewDB()
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors should be precomputed")
	}

	return &ChromemIndex{
		db:            db,
		persistPath:   cfg.PersistPath,
		compress:      cfg.Compress,
		collections:   make(map[string]*chromem.Collection),
		embeddingFunc: identityEmbed,
	}, nil
}

// Name identifies the backend, for logging.
func (c *ChromemIndex) Name() string { return "chromem" }

func (c *ChromemIndex) getCollection(name string) (*chromem.Collection, error) {
	c.mu.RLock()
	if col, ok := c.collections[name]; ok {
		c.mu.RUnlock()
		return col, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.collections[name]; ok {
		return col, nil
	}
	col, err := c.db.GetOrCreateCollection(name, nil, c.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	c.collections[name] = col
	return col, nil
}

// Upsert adds or replaces a document's dense embedding and payload. Unlike
// QdrantIndex.Upsert it takes no sparse vector: chromem-go has nowhere to
// put it.
func (c *ChromemIndex) Upsert(ctx context.Context, collection, id string, dense retrieval.DenseVector, payload retrieval.ChunkPayload) error {
	col, err := c.getCollection(collection)
	if err != nil {
		return err
	}

	strMetadata := make(map[string]string, 16)
	for k, v := range payloadToMap(payload) {
		strMetadata[k] = fmt.Sprint(v)
	}

	doc := chromem.Document{
		ID:        id,
		Content:   payload.Text,
		Metadata:  strMetadata,
		Embedding: dense,
	}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	if err := c.persist(); err != nil {
		slog.Warn("failed to persist after upsert", "error", err)
	}
	return nil
}

// SearchDense implements retrieval.VectorIndex.
func (c *ChromemIndex) SearchDense(ctx context.Context, collection string, vector retrieval.DenseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	col, err := c.getCollection(collection)
	if err != nil {
		return nil, err
	}

	n := limit
	if count := col.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, stringFilter(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}
	return chromemResultsToHits(results), nil
}

// SearchSparse implements retrieval.VectorIndex. chromem-go has no sparse
// index; this always returns an empty, non-error result.
func (c *ChromemIndex) SearchSparse(ctx context.Context, collection string, vector retrieval.SparseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	return nil, nil
}

// Scroll implements retrieval.VectorIndex by running an unbounded similarity
// query against the zero vector and filtering client-side: chromem-go has no
// native cursor-based listing. The returned cursor is always nil — callers
// get every matching document in one page.
func (c *ChromemIndex) Scroll(ctx context.Context, collection string, filter *retrieval.MetadataFilter, limit int, cursor *retrieval.Cursor) ([]retrieval.IndexHit, *retrieval.Cursor, error) {
	col, err := c.getCollection(collection)
	if err != nil {
		return nil, nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil, nil
	}

	probe := make([]float32, 1)
	results, err := col.QueryEmbedding(ctx, probe, count, stringFilter(filter), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("scroll failed: %w", err)
	}
	return chromemResultsToHits(results), nil, nil
}

// Delete removes a document by ID.
func (c *ChromemIndex) Delete(ctx context.Context, collection, id string) error {
	col, err := c.getCollection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return c.persist()
}

// Close persists the database and releases resources.
func (c *ChromemIndex) Close() error { return c.persist() }

func (c *ChromemIndex) persist() error {
	if c.persistPath == "" {
		return nil
	}
	dbPath := c.persistPath + "/vectors.gob"
	if c.compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // Export is chromem-go's only persistence API.
	if err := c.db.Export(dbPath, c.compress, ""); err != nil {
		return fmt.Errorf("failed to persist database: %w", err)
	}
	return nil
}

func stringFilter(filter *retrieval.MetadataFilter) map[string]string {
	if filter == nil || len(filter.Equals) == 0 {
		return nil
	}
	out := make(map[string]string, len(filter.Equals))
	for k, v := range filter.Equals {
		out[k] = v
	}
	return out
}

func chromemResultsToHits(results []chromem.Result) []retrieval.IndexHit {
	hits := make([]retrieval.IndexHit, 0, len(results))
	for _, r := range results {
		m := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			m[k] = v
		}
		hits = append(hits, retrieval.IndexHit{
			ID:      r.ID,
			Score:   r.Similarity,
			Payload: mapToPayload(m),
		})
	}
	return hits
}

// Ensure ChromemIndex implements retrieval.VectorIndex.
var _ retrieval.VectorIndex = (*ChromemIndex)(nil)
