// Package chunkcache provides a bounded, TTL-expiring cache of per-document
// chunk sequences, used by AutoMerger to fetch the full neighbor window of a
// hit without re-scrolling the vector index on every request.
package chunkcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// Config bounds the cache.
type Config struct {
	MaxSize    int           `koanf:"maxsize" yaml:"maxsize"`
	TTL        time.Duration `koanf:"ttl" yaml:"ttl"`
	Collection string        `koanf:"collection" yaml:"collection"`
	ScrollPageSize int       `koanf:"scroll_page_size" yaml:"scroll_page_size"`
}

// SetDefaults applies sane defaults for an unconfigured cache.
func (c *Config) SetDefaults() {
	if c.MaxSize == 0 {
		c.MaxSize = 1024
	}
	if c.TTL == 0 {
		c.TTL = 600 * time.Second
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.ScrollPageSize == 0 {
		c.ScrollPageSize = 256
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxSize <= 0 {
		return errCache("maxsize must be positive")
	}
	if c.TTL <= 0 {
		return errCache("ttl must be positive")
	}
	return nil
}

type cacheError string

func (e cacheError) Error() string { return string(e) }
func errCache(msg string) error    { return cacheError("chunkcache: " + msg) }

// entry is the LRU-stored value: the document's ordered chunk sequence plus
// the time at which it expires.
type entry struct {
	sequence []retrieval.IndexHit
	expires  time.Time
}

// Cache caches DocChunkSequences keyed by doc_id. Safe for concurrent use;
// concurrent misses for the same key coalesce into a single index scroll via
// singleflight.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, entry]
	index  retrieval.VectorIndex
	cfg    Config
	group  singleflight.Group
	logger *slog.Logger
}

// New constructs a Cache backed by index, using cfg (already defaulted).
func New(index retrieval.VectorIndex, cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l, err := lru.New[string, entry](cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, index: index, cfg: cfg, logger: logger}, nil
}

// Get returns the ordered chunk sequence for docID, fetching it via a Scroll
// against the index on a cache miss or expired entry. On fetch failure it
// returns an empty sequence and no error: callers degrade to pass-through
// rather than failing the request. The cache itself is never poisoned with
// the empty result (no negative caching).
func (c *Cache) Get(ctx context.Context, docID string) []retrieval.IndexHit {
	if docID == "" {
		return nil
	}

	c.mu.Lock()
	if e, ok := c.lru.Get(docID); ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.sequence
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(docID, func() (any, error) {
		seq := c.fetch(ctx, docID)
		if len(seq) > 0 {
			c.mu.Lock()
			c.lru.Add(docID, entry{sequence: seq, expires: time.Now().Add(c.cfg.TTL)})
			c.mu.Unlock()
		}
		return seq, nil
	})
	if err != nil {
		return nil
	}
	return v.([]retrieval.IndexHit)
}

// fetch scrolls the index for all chunks of docID, sorted by chunk_index.
func (c *Cache) fetch(ctx context.Context, docID string) []retrieval.IndexHit {
	filter := retrieval.DocFilter(docID)
	var collected []retrieval.IndexHit
	var cursor *retrieval.Cursor

	for {
		batch, next, err := c.index.Scroll(ctx, c.cfg.Collection, filter, c.cfg.ScrollPageSize, cursor)
		if err != nil {
			c.logger.Warn("chunk cache scroll failed", "doc_id", docID, "error", err)
			return nil
		}
		collected = append(collected, batch...)
		if next == nil || len(batch) == 0 {
			break
		}
		cursor = next
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Payload.ChunkIndex < collected[j].Payload.ChunkIndex
	})
	return collected
}

// Clear empties the cache, for operator/test use.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of cached documents, for observability.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
