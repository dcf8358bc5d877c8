package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient returns a Redis client for the local test instance, or
// nil when none is reachable.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}
	return client
}

func TestCheckerNoopWithoutRedis(t *testing.T) {
	c := NewChecker(nil)
	ctx := context.Background()

	_, found := c.GetCached(ctx, "evt_1")
	assert.False(t, found)
	assert.False(t, c.Cache(ctx, "evt_1", `{"status":"SUCCESS"}`, time.Minute))

	// Empty event ids are never cached or matched.
	_, found = c.GetCached(ctx, "")
	assert.False(t, found)
	assert.False(t, c.Cache(ctx, "", "x", time.Minute))
}

func TestLockerNoopWithoutRedis(t *testing.T) {
	l := NewLocker(nil)
	ctx := context.Background()

	lease, ok := l.Acquire(ctx, "req_123", 0, 0)
	require.True(t, ok)
	require.NotNil(t, lease)
	assert.True(t, lease.Release(ctx))

	// A nil lease releases trivially too.
	var nilLease *Lease
	assert.True(t, nilLease.Release(ctx))
}

func TestCheckerRoundTrip(t *testing.T) {
	client := testClient(t)
	if client == nil {
		t.Skip("redis not available")
	}
	defer client.Close()

	c := NewChecker(client)
	ctx := context.Background()
	eventID := fmt.Sprintf("evt_test_%d", time.Now().UnixNano())

	_, found := c.GetCached(ctx, eventID)
	assert.False(t, found)

	require.True(t, c.Cache(ctx, eventID, `{"collection_id":"abc"}`, time.Minute))
	val, found := c.GetCached(ctx, eventID)
	require.True(t, found)
	assert.Equal(t, `{"collection_id":"abc"}`, val)

	client.Del(ctx, eventKeyPrefix+eventID)
}

func TestLockerMutualExclusion(t *testing.T) {
	client := testClient(t)
	if client == nil {
		t.Skip("redis not available")
	}
	defer client.Close()

	l := NewLocker(client)
	ctx := context.Background()
	key := fmt.Sprintf("req_test_%d", time.Now().UnixNano())

	lease, ok := l.Acquire(ctx, key, 5*time.Second, time.Second)
	require.True(t, ok)

	// Second acquisition must time out while the first lease is held.
	start := time.Now()
	_, ok = l.Acquire(ctx, key, 5*time.Second, 300*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	assert.True(t, lease.Release(ctx))

	// Released lock is free again.
	lease2, ok := l.Acquire(ctx, key, 5*time.Second, time.Second)
	require.True(t, ok)
	assert.True(t, lease2.Release(ctx))
}

func TestLeaseReleaseOnlyOwnToken(t *testing.T) {
	client := testClient(t)
	if client == nil {
		t.Skip("redis not available")
	}
	defer client.Close()

	l := NewLocker(client)
	ctx := context.Background()
	key := fmt.Sprintf("req_token_%d", time.Now().UnixNano())

	lease, ok := l.Acquire(ctx, key, 5*time.Second, time.Second)
	require.True(t, ok)

	// Simulate expiry plus reacquisition by another holder.
	client.Set(ctx, lockKeyPrefix+key, "someone-else", 5*time.Second)
	assert.False(t, lease.Release(ctx))

	val, err := client.Get(ctx, lockKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)

	client.Del(ctx, lockKeyPrefix+key)
}
