package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReportTTL = 2 * time.Minute

// ReportCache stores rendered daily-ledger range reports. The reporting layer
// owns the cache; the ledger engine itself never reads it and every report is
// always recomputable from the record store alone.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
	Delete(ctx context.Context, key string)
}

type memoryReportCache struct {
	entries Cache[string, []byte]
	ttl     time.Duration
}

// NewMemoryReportCache returns an in-process report cache.
func NewMemoryReportCache() ReportCache {
	return &memoryReportCache{
		entries: NewTTLCache[string, []byte](),
		ttl:     defaultReportTTL,
	}
}

func (c *memoryReportCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *memoryReportCache) Set(_ context.Context, key string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	c.entries.Set(key, payload, c.ttl)
}

func (c *memoryReportCache) Delete(_ context.Context, key string) {
	c.entries.Delete(key)
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReportCache returns a report cache shared across instances.
func NewRedisReportCache(client *redis.Client) ReportCache {
	return &redisReportCache{client: client, ttl: defaultReportTTL}
}

func (c *redisReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, "report:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *redisReportCache) Set(ctx context.Context, key string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	_ = c.client.Set(ctx, "report:"+key, payload, c.ttl).Err()
}

func (c *redisReportCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, "report:"+key).Err()
}
