package idempotency

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "lock:"

	// DefaultLockTTL is the Redis expiry of a held lock, so a crashed
	// worker cannot wedge a collection forever.
	DefaultLockTTL = 30 * time.Second

	// DefaultLockWait bounds how long Acquire polls for a contended
	// lock before giving up.
	DefaultLockWait = 10 * time.Second

	lockPollInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock only when it still carries our token,
// so an expired-and-reacquired lock is never released by the old
// holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker serializes collection updates across processes. With no Redis
// client every Acquire succeeds immediately; single-node deployments
// then rely on the guarded database updates alone.
type Locker struct {
	client *redis.Client
}

// NewLocker returns a locker bound to the given Redis client, which
// may be nil.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lease is a held lock. A zero Lease releases trivially.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock named key, polling up to waitTimeout for a
// contended lock. ttl and waitTimeout fall back to the defaults when
// <= 0. A Redis failure degrades to an immediate no-op lease rather
// than blocking the pipeline. Returns false only on contention timeout
// or context cancellation.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, waitTimeout time.Duration) (*Lease, bool) {
	if l.client == nil {
		return &Lease{}, true
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultLockWait
	}

	redisKey := lockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(waitTimeout)

	for time.Now().Before(deadline) {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			log.Printf("idempotency: lock %s unavailable, proceeding unlocked: %v", key, err)
			return &Lease{}, true
		}
		if ok {
			return &Lease{client: l.client, key: redisKey, token: token}, true
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(lockPollInterval):
		}
	}

	log.Printf("idempotency: lock %s not acquired within %s", key, waitTimeout)
	return nil, false
}

// Release frees the lease. Releasing a no-op or already-released lease
// returns true.
func (le *Lease) Release(ctx context.Context) bool {
	if le == nil || le.client == nil {
		return true
	}
	n, err := releaseScript.Run(ctx, le.client, []string{le.key}, le.token).Int()
	if err != nil {
		log.Printf("idempotency: lock release failed for %s: %v", le.key, err)
		return false
	}
	if n == 0 {
		log.Printf("idempotency: lock %s expired before release", le.key)
	}
	le.client = nil
	return n == 1
}
