package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryRateLimiter(5*time.Second, 10*time.Second, clock.Now)

	allowed, err := limiter.Allow(ctx, "u1", "hooks")
	require.NoError(t, err)
	assert.True(t, allowed)

	clock.Advance(2 * time.Second)
	allowed, err = limiter.Allow(ctx, "u1", "hooks")
	require.NoError(t, err)
	assert.False(t, allowed, "second request inside the cooldown")

	// Endpoints and users are independent.
	allowed, _ = limiter.Allow(ctx, "u1", "ctas")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "u2", "hooks")
	assert.True(t, allowed)

	// A refused request does not extend the window.
	clock.Advance(3 * time.Second)
	allowed, err = limiter.Allow(ctx, "u1", "hooks")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_SweepsExpiredRecords(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryRateLimiter(5*time.Second, 10*time.Second, clock.Now)

	for _, user := range []string{"a", "b", "c"} {
		allowed, err := limiter.Allow(ctx, user, "hashtags")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	clock.Advance(11 * time.Second)
	allowed, err := limiter.Allow(ctx, "d", "hashtags")
	require.NoError(t, err)
	require.True(t, allowed)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.records, 1)
	assert.Contains(t, limiter.records, rateLimitKey("d", "hashtags"))
}

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	mr, client := newRedisClient(t)
	limiter := NewRedisRateLimiter(client, 5*time.Second, 10*time.Second, clock.Now, testLogger())

	allowed, err := limiter.Allow(ctx, "u1", "captions")
	require.NoError(t, err)
	assert.True(t, allowed)

	value, err := mr.Get("rate:u1:captions")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(start.UnixMilli(), 10), value)
	assert.Equal(t, 10*time.Second, mr.TTL("rate:u1:captions"))

	clock.Advance(4 * time.Second)
	allowed, err = limiter.Allow(ctx, "u1", "captions")
	require.NoError(t, err)
	assert.False(t, allowed)

	// The refused request left the original timestamp in place.
	value, err = mr.Get("rate:u1:captions")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(start.UnixMilli(), 10), value)

	clock.Advance(1 * time.Second)
	allowed, err = limiter.Allow(ctx, "u1", "captions")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_RecordExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	mr, client := newRedisClient(t)
	limiter := NewRedisRateLimiter(client, 5*time.Second, 10*time.Second, clock.Now, testLogger())

	allowed, err := limiter.Allow(ctx, "u1", "hooks")
	require.NoError(t, err)
	require.True(t, allowed)

	mr.FastForward(10 * time.Second)
	assert.False(t, mr.Exists("rate:u1:hooks"))
}

func TestRedisRateLimiter_MalformedRecordIsOverwritten(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	mr, client := newRedisClient(t)
	limiter := NewRedisRateLimiter(client, 5*time.Second, 10*time.Second, clock.Now, testLogger())

	require.NoError(t, mr.Set("rate:u1:hooks", "yesterday"))

	allowed, err := limiter.Allow(ctx, "u1", "hooks")
	require.NoError(t, err)
	assert.True(t, allowed)

	value, err := mr.Get("rate:u1:hooks")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(clock.Now().UnixMilli(), 10), value)
}

func TestRedisRateLimiter_FailsClosedWhenRedisIsDown(t *testing.T) {
	mr, client := newRedisClient(t)
	limiter := NewRedisRateLimiter(client, 0, 0, nil, testLogger())
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "u1", "hooks")
	assert.False(t, allowed)

	var storageError *StorageError
	require.True(t, errors.As(err, &storageError))
	assert.Equal(t, "check rate limit", storageError.Op)
}

func TestCooldownDefaults(t *testing.T) {
	cooldown, ttl := cooldownDefaults(0, 0)
	assert.Equal(t, DefaultCooldown, cooldown)
	assert.Equal(t, DefaultRecordTTL, ttl)

	cooldown, ttl = cooldownDefaults(30*time.Second, time.Second)
	assert.Equal(t, 30*time.Second, cooldown)
	assert.Equal(t, 30*time.Second, ttl)
}

func TestDisabledRateLimiter(t *testing.T) {
	var limiter RateLimiter = DisabledRateLimiter{}
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "u1", "hooks")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}
