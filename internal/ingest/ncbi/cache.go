package ncbi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"seqreg/pkg/platform/sentinel"
)

// Cache stores raw FASTA records by accession. Get returns sentinel.ErrNotFound
// on a miss.
type Cache interface {
	Get(ctx context.Context, accession string) (string, error)
	Set(ctx context.Context, accession, record string) error
}

const keyPrefix = "seqreg:ncbi:"

func cacheKey(accession string) string {
	return keyPrefix + accession
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	record    string
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, accession string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(accession)]
	c.mu.RUnlock()
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, cacheKey(accession))
		c.mu.Unlock()
		return "", sentinel.ErrNotFound
	}
	return entry.record, nil
}

func (c *MemoryCache) Set(_ context.Context, accession, record string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(accession)] = memoryEntry{record: record, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// RedisCache shares fetched records between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, accession string) (string, error) {
	record, err := c.client.Get(ctx, cacheKey(accession)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w: %w", accession, sentinel.ErrUnavailable, err)
	}
	return record, nil
}

func (c *RedisCache) Set(ctx context.Context, accession, record string) error {
	if err := c.client.Set(ctx, cacheKey(accession), record, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", accession, sentinel.ErrUnavailable, err)
	}
	return nil
}
