package cache

import (
	"context"
	"time"

	"github.com/gathrio/gathrio/internal/observability"
	"github.com/redis/go-redis/v9"
)

const eventListPrefix = "events:list:v1:"

// EventListCache keeps serialized event-list responses in Redis for a short
// TTL. All methods are no-ops when no Redis client is configured, so the API
// degrades to uncached reads rather than failing.
type EventListCache struct {
	rdb  *redis.Client
	ttl  time.Duration
	prom *observability.Prom
}

func NewEventListCache(rdb *redis.Client, ttl time.Duration, prom *observability.Prom) *EventListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &EventListCache{rdb: rdb, ttl: ttl, prom: prom}
}

func (c *EventListCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	b, err := c.rdb.Get(ctx, eventListPrefix+key).Bytes()

	if err != nil {
		c.observe("miss")
		return nil, false
	}

	c.observe("hit")
	return b, true
}

func (c *EventListCache) Set(ctx context.Context, key string, val []byte) {
	if c == nil || c.rdb == nil {
		return
	}

	// Best effort: a write failure only costs a cache miss.
	_ = c.rdb.Set(ctx, eventListPrefix+key, val, c.ttl).Err()
}

// InvalidateAll drops every cached listing. Called after any event mutation;
// the key space is small enough that a scan is fine.
func (c *EventListCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}

	iter := c.rdb.Scan(ctx, 0, eventListPrefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}

func (c *EventListCache) observe(result string) {
	if c.prom != nil {
		c.prom.CacheLookups.WithLabelValues(result).Inc()
	}
}
