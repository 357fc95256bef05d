// Package distlock provides best-effort distributed locking for operations
// that must not run twice at the same time, such as launching a campaign
// against a segment. Redis is preferred when available; otherwise a
// PostgreSQL advisory lock is used so a single-node deployment without
// Redis still gets the same guarantee.
package distlock

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a non-blocking mutual-exclusion primitive. A Lock instance is
// single-use: acquire it once, release it once.
type Lock interface {
	// TryAcquire attempts to take the lock without blocking.
	// Returns true when the caller now holds the lock.
	TryAcquire(ctx context.Context) (bool, error)
	// Release gives the lock back. Releasing a lock that was never
	// acquired, or that expired, is a no-op.
	Release(ctx context.Context) error
}

// New picks the best available backend: Redis when a client is provided,
// PostgreSQL advisory locks otherwise. ttl only applies to the Redis
// backend; advisory locks are released when the session ends.
func New(rdb *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if rdb != nil {
		return NewRedisLock(rdb, key, ttl)
	}
	return NewAdvisoryLock(db, key)
}

// ==========================================
// REDIS LOCK
// ==========================================

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLock implements Lock with SET NX plus a TTL. A random ownership
// token and a Lua release script prevent one process from deleting a
// lock that has since expired and been re-acquired by another.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed lock for the given key.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RedisLock{
		client: client,
		key:    "xencrm:lock:" + key,
		token:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the lock without blocking.
func (l *RedisLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release deletes the lock if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Result()
	return err
}

// ==========================================
// POSTGRESQL ADVISORY LOCK
// ==========================================

// AdvisoryLock implements Lock with pg_try_advisory_lock. The lock is
// session-scoped, so a crashed holder releases it when its connection
// drops.
type AdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewAdvisoryLock derives a deterministic 64-bit lock ID from key.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &AdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// TryAcquire attempts to take the advisory lock without blocking.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release unlocks the advisory lock.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
