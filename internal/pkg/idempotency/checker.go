// Package idempotency provides webhook deduplication and a distributed
// processing lock on top of Redis. Both degrade gracefully: with no
// Redis client they become no-ops, so the pipeline keeps working on a
// single node and relies on the database guards alone.
package idempotency

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix = "webhook:event:"

	// DefaultCacheTTL bounds how long a processed event id is
	// remembered. Replays beyond it are still caught by the unique
	// index on webhook_events.
	DefaultCacheTTL = time.Hour
)

// Checker remembers processed webhook event ids so duplicate
// deliveries can short-circuit before touching the database.
type Checker struct {
	client *redis.Client
}

// NewChecker returns a checker bound to the given Redis client. A nil
// client yields a no-op checker that never reports a duplicate.
func NewChecker(client *redis.Client) *Checker {
	return &Checker{client: client}
}

// GetCached returns the cached processing result for an event id. The
// second return is false when the event is unknown, the id is empty,
// Redis is unavailable or the lookup errors; callers then process the
// event normally.
func (c *Checker) GetCached(ctx context.Context, eventID string) (string, bool) {
	if eventID == "" || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, eventKeyPrefix+eventID).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("idempotency: event cache lookup failed: %v", err)
		return "", false
	}
	return val, true
}

// Cache records the processing result for an event id with the given
// TTL (DefaultCacheTTL when ttl <= 0). Returns false when nothing was
// cached.
func (c *Checker) Cache(ctx context.Context, eventID, result string, ttl time.Duration) bool {
	if eventID == "" || c.client == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := c.client.Set(ctx, eventKeyPrefix+eventID, result, ttl).Err(); err != nil {
		log.Printf("idempotency: event cache write failed: %v", err)
		return false
	}
	return true
}

// Invalidate forgets a cached result, e.g. after an operator reopens a
// failed event for another attempt.
func (c *Checker) Invalidate(ctx context.Context, eventID string) {
	if eventID == "" || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil {
		log.Printf("idempotency: event cache invalidation failed: %v", err)
	}
}
