package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"askdocs/internal/domain"
	"askdocs/internal/port"
)

// QueryCache remembers recent search results. Entries expire after ttl and
// are dropped wholesale whenever the store changes.
type QueryCache struct {
	entries *expirable.LRU[string, []domain.QueryResultItem]
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: expirable.NewLRU[string, []domain.QueryResultItem](maxSize, nil, ttl),
	}
}

// cacheKey ignores surrounding whitespace and case so that repeated chat
// questions hit.
func cacheKey(query string, topK int) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(norm + "\x00" + strconv.Itoa(topK)))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, topK int) ([]domain.QueryResultItem, bool) {
	results, ok := c.entries.Get(cacheKey(query, topK))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return results, ok
}

func (c *QueryCache) Put(query string, topK int, results []domain.QueryResultItem) {
	c.entries.Add(cacheKey(query, topK), results)
}

// Invalidate drops every entry. Call it after the store is modified.
func (c *QueryCache) Invalidate() {
	c.entries.Purge()
}

func (c *QueryCache) Size() int {
	return c.entries.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CachedRetriever serves repeated searches from a QueryCache.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Search(ctx context.Context, query string, k int) ([]domain.QueryResultItem, error) {
	if results, hit := r.cache.Get(query, k); hit {
		return results, nil
	}

	results, err := r.retriever.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	r.cache.Put(query, k, results)
	return results, nil
}

// Cache returns the underlying cache so writers can invalidate it.
func (r *CachedRetriever) Cache() *QueryCache {
	return r.cache
}
