package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/pkg/models"
)

// incrementCappedScript adds one use unless the counter already reached
// the limit. The key expires at the end of the period either way.
var incrementCappedScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= tonumber(ARGV[1]) then
  return -1
end
used = redis.call("INCR", KEYS[1])
redis.call("PEXPIREAT", KEYS[1], ARGV[2])
return used
`)

type RedisQuotaStore struct {
	client *redis.Client
	clock  periodClock
	logger *logrus.Logger
}

func NewRedisQuotaStore(client *redis.Client, logger *logrus.Logger, now func() time.Time, loc *time.Location) *RedisQuotaStore {
	return &RedisQuotaStore{
		client: client,
		clock:  newPeriodClock(now, loc),
		logger: logger,
	}
}

func (s *RedisQuotaStore) Get(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	period, resetAt := s.clock.current()

	values, err := s.client.MGet(ctx, planKey(userID), usageKey(userID, period)).Result()
	if err != nil {
		return nil, storageErr("get quota", err)
	}

	plan := s.parsePlan(userID, values[0])
	used, err := parseUsed(values[1])
	if err != nil {
		return nil, storageErr("get quota", err)
	}

	return models.NewQuotaRecord(userID, plan, used, period, resetAt), nil
}

func (s *RedisQuotaStore) Increment(ctx context.Context, userID string) (bool, error) {
	period, resetAt := s.clock.current()

	planName, err := s.client.Get(ctx, planKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return false, storageErr("increment quota", err)
	}
	plan := s.parsePlan(userID, planName)

	used, err := incrementCappedScript.Run(ctx, s.client,
		[]string{usageKey(userID, period)},
		plan.Limit, resetAt.UnixMilli(),
	).Int64()
	if err != nil {
		return false, storageErr("increment quota", err)
	}

	return used >= 0, nil
}

func (s *RedisQuotaStore) SetPlan(ctx context.Context, userID string, plan models.PlanName) error {
	if _, err := models.LookupPlan(plan); err != nil {
		return err
	}
	if err := s.client.Set(ctx, planKey(userID), string(plan), 0).Err(); err != nil {
		return storageErr("set plan", err)
	}
	return nil
}

// parsePlan falls back to the free plan for missing or unknown values.
func (s *RedisQuotaStore) parsePlan(userID string, raw interface{}) models.Plan {
	name, _ := raw.(string)
	if name == "" {
		return models.Plans[models.PlanFree]
	}
	plan, err := models.LookupPlan(models.PlanName(name))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Unknown stored plan, using free")
		return models.Plans[models.PlanFree]
	}
	return plan
}

func parseUsed(raw interface{}) (int, error) {
	value, ok := raw.(string)
	if !ok || value == "" {
		return 0, nil
	}
	used, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid usage counter %q: %w", value, err)
	}
	return used, nil
}
