// Package locks provides the per-article run lock: at most one
// originality analysis may be in flight for a given article. A second
// request while the lock is held is rejected, not coalesced.
package locks

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ArticleLock is the keyed mutual-exclusion collaborator.
type ArticleLock interface {
	// TryAcquire returns true when the caller now holds the lock.
	TryAcquire(ctx context.Context, articleID string) (bool, error)
	// Release frees the lock. Safe to call when not held.
	Release(ctx context.Context, articleID string) error
}

// RedisLock implements ArticleLock with SET NX EX so a crashed run
// cannot hold an article hostage past the TTL.
type RedisLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisLockConfig configures the redis connection and lock behaviour.
type RedisLockConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string // key prefix, default "originality:lock:"
	TTL      time.Duration
}

// NewRedisLockFromEnv creates a RedisLock using REDIS_ADDR, REDIS_PASS,
// LOCK_TTL_SECONDS.
func NewRedisLockFromEnv(ttl time.Duration) (*RedisLock, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	if t := os.Getenv("LOCK_TTL_SECONDS"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	return NewRedisLock(RedisLockConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		TTL:      ttl,
	})
}

// NewRedisLock creates the lock wrapper and verifies connectivity.
func NewRedisLock(cfg RedisLockConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "originality:lock:"
	}
	return &RedisLock{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

// TryAcquire sets the lock key only if absent, with the configured TTL.
func (l *RedisLock) TryAcquire(ctx context.Context, articleID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+articleID, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock for %s: %w", articleID, err)
	}
	return ok, nil
}

// Release deletes the lock key.
func (l *RedisLock) Release(ctx context.Context, articleID string) error {
	if err := l.client.Del(ctx, l.prefix+articleID).Err(); err != nil {
		return fmt.Errorf("release lock for %s: %w", articleID, err)
	}
	return nil
}

// Close closes the underlying redis client.
func (l *RedisLock) Close() error { return l.client.Close() }

// LocalLock is a process-local ArticleLock for development and tests,
// where no redis is available. It provides the same at-most-one-run
// guarantee within a single process.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLock returns an empty in-process lock table.
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]struct{})}
}

func (l *LocalLock) TryAcquire(_ context.Context, articleID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[articleID]; ok {
		return false, nil
	}
	l.held[articleID] = struct{}{}
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, articleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, articleID)
	return nil
}
