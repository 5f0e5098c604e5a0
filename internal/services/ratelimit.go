package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/pkg/models"
)

const (
	DefaultCooldown  = 5 * time.Second
	DefaultRecordTTL = 10 * time.Second
)

// RateLimiter is a per-user, per-endpoint cooldown gate. Only the previous
// request matters; bursts are not smoothed.
type RateLimiter interface {
	// Allow reports whether the request may proceed and, if so, records
	// it. A refused request writes nothing.
	Allow(ctx context.Context, userID, endpoint string) (bool, error)
}

type RedisRateLimiter struct {
	client   *redis.Client
	cooldown time.Duration
	ttl      time.Duration
	now      func() time.Time
	logger   *logrus.Logger
}

func NewRedisRateLimiter(client *redis.Client, cooldown, ttl time.Duration, now func() time.Time, logger *logrus.Logger) *RedisRateLimiter {
	cooldown, ttl = cooldownDefaults(cooldown, ttl)
	if now == nil {
		now = time.Now
	}
	return &RedisRateLimiter{
		client:   client,
		cooldown: cooldown,
		ttl:      ttl,
		now:      now,
		logger:   logger,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, userID, endpoint string) (bool, error) {
	key := rateLimitKey(userID, endpoint)
	now := l.now()

	last, err := l.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return false, storageErr("check rate limit", err)
	default:
		lastMs, parseErr := strconv.ParseInt(last, 10, 64)
		if parseErr != nil {
			l.logger.WithError(parseErr).WithField("key", key).Warn("Discarding malformed rate limit record")
		} else if now.Sub(time.UnixMilli(lastMs)) < l.cooldown {
			return false, nil
		}
	}

	if err := l.client.Set(ctx, key, now.UnixMilli(), l.ttl).Err(); err != nil {
		return false, storageErr("record rate limit", err)
	}
	return true, nil
}

// MemoryRateLimiter is the process-local RateLimiter.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	ttl      time.Duration
	now      func() time.Time
	records  map[string]models.RateLimitRecord

	lastSweep time.Time
}

func NewMemoryRateLimiter(cooldown, ttl time.Duration, now func() time.Time) *MemoryRateLimiter {
	cooldown, ttl = cooldownDefaults(cooldown, ttl)
	if now == nil {
		now = time.Now
	}
	return &MemoryRateLimiter{
		cooldown: cooldown,
		ttl:      ttl,
		now:      now,
		records:  make(map[string]models.RateLimitRecord),
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, userID, endpoint string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateLimitKey(userID, endpoint)
	now := l.now()

	if record, ok := l.records[key]; ok && now.Sub(record.LastRequestAt) < l.cooldown {
		return false, nil
	}

	l.records[key] = models.RateLimitRecord{UserID: userID, Endpoint: endpoint, LastRequestAt: now}
	l.sweepLocked(now)
	return true, nil
}

// sweepLocked drops records older than the TTL, at most once per TTL.
func (l *MemoryRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	for key, record := range l.records {
		if now.Sub(record.LastRequestAt) >= l.ttl {
			delete(l.records, key)
		}
	}
	l.lastSweep = now
}

// DisabledRateLimiter admits everything; used when no store is bound.
type DisabledRateLimiter struct{}

func (DisabledRateLimiter) Allow(context.Context, string, string) (bool, error) {
	return true, nil
}

func cooldownDefaults(cooldown, ttl time.Duration) (time.Duration, time.Duration) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if ttl < cooldown {
		ttl = DefaultRecordTTL
		if ttl < cooldown {
			ttl = cooldown
		}
	}
	return cooldown, ttl
}

func rateLimitKey(userID, endpoint string) string {
	return "rate:" + userID + ":" + endpoint
}
