package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/pkg/models"
)

// DatabaseQuerier is satisfied by *pgxpool.Pool and pgxmock pools.
type DatabaseQuerier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const quotaSchemaSQL = `
CREATE TABLE IF NOT EXISTS user_plans (
	user_id    TEXT PRIMARY KEY,
	plan       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS quota_usage (
	user_id    TEXT NOT NULL,
	period     TEXT NOT NULL,
	used       INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, period)
)`

const getQuotaSQL = `
SELECT COALESCE((SELECT plan FROM user_plans WHERE user_id = $1), 'free'),
       COALESCE((SELECT used FROM quota_usage WHERE user_id = $1 AND period = $2), 0)`

const getPlanSQL = `SELECT COALESCE((SELECT plan FROM user_plans WHERE user_id = $1), 'free')`

// The conflict update only fires below the limit; otherwise no row returns.
const incrementQuotaSQL = `
INSERT INTO quota_usage (user_id, period, used, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (user_id, period) DO UPDATE
SET used = quota_usage.used + 1, updated_at = NOW()
WHERE quota_usage.used < $3
RETURNING used`

const setPlanSQL = `
INSERT INTO user_plans (user_id, plan, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE
SET plan = EXCLUDED.plan, updated_at = NOW()`

// PostgresQuotaStore keeps quotas in Postgres. Old periods stay as rows
// and are simply never read again.
type PostgresQuotaStore struct {
	db     DatabaseQuerier
	clock  periodClock
	logger *logrus.Logger
}

func NewPostgresQuotaStore(db DatabaseQuerier, logger *logrus.Logger, now func() time.Time, loc *time.Location) *PostgresQuotaStore {
	return &PostgresQuotaStore{
		db:     db,
		clock:  newPeriodClock(now, loc),
		logger: logger,
	}
}

// EnsureSchema creates the quota tables if they are missing.
func (s *PostgresQuotaStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, quotaSchemaSQL); err != nil {
		return storageErr("create quota schema", err)
	}
	return nil
}

func (s *PostgresQuotaStore) Get(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	period, resetAt := s.clock.current()

	var planName string
	var used int
	if err := s.db.QueryRow(ctx, getQuotaSQL, userID, period).Scan(&planName, &used); err != nil {
		return nil, storageErr("get quota", err)
	}

	return models.NewQuotaRecord(userID, s.lookupPlan(userID, planName), used, period, resetAt), nil
}

func (s *PostgresQuotaStore) Increment(ctx context.Context, userID string) (bool, error) {
	period, _ := s.clock.current()

	var planName string
	if err := s.db.QueryRow(ctx, getPlanSQL, userID).Scan(&planName); err != nil {
		return false, storageErr("increment quota", err)
	}
	plan := s.lookupPlan(userID, planName)
	if plan.Limit <= 0 {
		return false, nil
	}

	var used int
	err := s.db.QueryRow(ctx, incrementQuotaSQL, userID, period, plan.Limit).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("increment quota", err)
	}
	return true, nil
}

func (s *PostgresQuotaStore) SetPlan(ctx context.Context, userID string, plan models.PlanName) error {
	if _, err := models.LookupPlan(plan); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, setPlanSQL, userID, string(plan)); err != nil {
		return storageErr("set plan", err)
	}
	return nil
}

func (s *PostgresQuotaStore) lookupPlan(userID, name string) models.Plan {
	plan, err := models.LookupPlan(models.PlanName(name))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Unknown stored plan, using free")
		return models.Plans[models.PlanFree]
	}
	return plan
}
