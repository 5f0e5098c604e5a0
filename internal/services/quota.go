package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/temcen/copyink/pkg/models"
)

// QuotaStore keeps per-user monthly usage counters. Records are created
// lazily with used=0 and a new period starts from zero without deletes.
type QuotaStore interface {
	Get(ctx context.Context, userID string) (*models.QuotaRecord, error)
	// Increment adds one use. It returns false without changing anything
	// when the user has no remaining quota.
	Increment(ctx context.Context, userID string) (bool, error)
	SetPlan(ctx context.Context, userID string, plan models.PlanName) error
}

// ErrQuotaDisabled is returned by SetPlan when no store is bound.
var ErrQuotaDisabled = errors.New("quota store not configured")

// periodClock derives the quota period and its end from the current time
// in a fixed location.
type periodClock struct {
	now func() time.Time
	loc *time.Location
}

func newPeriodClock(now func() time.Time, loc *time.Location) periodClock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return periodClock{now: now, loc: loc}
}

func (c periodClock) current() (string, time.Time) {
	now := c.now().In(c.loc)
	return models.PeriodKey(now), models.EndOfMonth(now)
}

// MemoryQuotaStore is a process-local QuotaStore. Increment is capped
// under a single lock, so it never exceeds the limit.
type MemoryQuotaStore struct {
	mu    sync.Mutex
	clock periodClock
	plans map[string]models.PlanName
	usage map[string]int
}

func NewMemoryQuotaStore(now func() time.Time, loc *time.Location) *MemoryQuotaStore {
	return &MemoryQuotaStore{
		clock: newPeriodClock(now, loc),
		plans: make(map[string]models.PlanName),
		usage: make(map[string]int),
	}
}

func (s *MemoryQuotaStore) Get(_ context.Context, userID string) (*models.QuotaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, resetAt := s.clock.current()
	return models.NewQuotaRecord(userID, s.planLocked(userID), s.usage[usageKey(userID, period)], period, resetAt), nil
}

func (s *MemoryQuotaStore) Increment(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, _ := s.clock.current()
	key := usageKey(userID, period)
	if s.usage[key] >= s.planLocked(userID).Limit {
		return false, nil
	}
	s.usage[key]++
	return true, nil
}

func (s *MemoryQuotaStore) SetPlan(_ context.Context, userID string, plan models.PlanName) error {
	if _, err := models.LookupPlan(plan); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[userID] = plan
	return nil
}

func (s *MemoryQuotaStore) planLocked(userID string) models.Plan {
	if name, ok := s.plans[userID]; ok {
		if plan, err := models.LookupPlan(name); err == nil {
			return plan
		}
	}
	return models.Plans[models.PlanFree]
}

// DisabledQuotaStore is used when no store binding exists. It reports an
// untouched free-plan record and never refuses an increment.
type DisabledQuotaStore struct {
	clock periodClock
}

func NewDisabledQuotaStore(now func() time.Time, loc *time.Location) *DisabledQuotaStore {
	return &DisabledQuotaStore{clock: newPeriodClock(now, loc)}
}

func (s *DisabledQuotaStore) Get(_ context.Context, userID string) (*models.QuotaRecord, error) {
	period, resetAt := s.clock.current()
	return models.NewQuotaRecord(userID, models.Plans[models.PlanFree], 0, period, resetAt), nil
}

func (s *DisabledQuotaStore) Increment(context.Context, string) (bool, error) {
	return true, nil
}

func (s *DisabledQuotaStore) SetPlan(context.Context, string, models.PlanName) error {
	return ErrQuotaDisabled
}

func usageKey(userID, period string) string {
	return "usage:" + userID + ":" + period
}

func planKey(userID string) string {
	return "plan:" + userID
}
