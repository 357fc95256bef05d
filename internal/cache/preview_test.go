package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupCache(t *testing.T, ttl time.Duration) (*PreviewCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewPreviewCache(rdb, ttl), mr
}

func TestPreviewCachePutGet(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "hash-a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(ctx, "hash-a", 42)
	n, ok := c.Get(ctx, "hash-a")
	if !ok || n != 42 {
		t.Fatalf("expected hit with 42, got %d/%v", n, ok)
	}

	// Different rule hashes do not collide.
	if _, ok := c.Get(ctx, "hash-b"); ok {
		t.Fatal("expected miss for different hash")
	}
}

func TestPreviewCacheTTL(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "hash-a", 7)
	mr.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, "hash-a"); ok {
		t.Fatal("expected expiry after TTL")
	}
}

func TestPreviewCacheInvalidate(t *testing.T) {
	c, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "hash-a", 7)
	c.Invalidate(ctx, "hash-a")

	if _, ok := c.Get(ctx, "hash-a"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestPreviewCacheNilSafe(t *testing.T) {
	ctx := context.Background()

	var c *PreviewCache
	if _, ok := c.Get(ctx, "x"); ok {
		t.Fatal("nil cache must always miss")
	}
	c.Put(ctx, "x", 1)
	c.Invalidate(ctx, "x")

	// Nil client behaves the same.
	disabled := NewPreviewCache(nil, 0)
	disabled.Put(ctx, "x", 1)
	if _, ok := disabled.Get(ctx, "x"); ok {
		t.Fatal("disabled cache must always miss")
	}
}

func TestPreviewCacheDownstreamFailure(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "hash-a", 7)
	mr.Close()

	// A dead Redis is a miss, never an error.
	if _, ok := c.Get(ctx, "hash-a"); ok {
		t.Fatal("expected miss when redis is down")
	}
	c.Put(ctx, "hash-b", 9)
}
