// Package cache provides a best-effort Redis cache for segment preview
// counts, keyed by the rule-set hash. A cache failure is never surfaced;
// misses and errors both fall through to a live count.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const previewKeyPrefix = "xencrm:preview:"

// PreviewCache caches audience preview counts with a TTL. A nil client
// disables the cache entirely (every Get is a miss, every Put a no-op).
type PreviewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPreviewCache creates a cache over the given Redis client. rdb may be
// nil when Redis is not configured.
func NewPreviewCache(rdb *redis.Client, ttl time.Duration) *PreviewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PreviewCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached count for a rule-set hash, if present.
func (c *PreviewCache) Get(ctx context.Context, ruleHash string) (int, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, previewKeyPrefix+ruleHash).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Put stores a count for a rule-set hash. Errors are dropped; the cache is
// advisory only.
func (c *PreviewCache) Put(ctx context.Context, ruleHash string, count int) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, previewKeyPrefix+ruleHash, strconv.Itoa(count), c.ttl)
}

// Invalidate drops a cached count, used after customer syncs or when a
// stale preview would mislead.
func (c *PreviewCache) Invalidate(ctx context.Context, ruleHash string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, previewKeyPrefix+ruleHash)
}
