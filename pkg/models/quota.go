package models

import (
	"fmt"
	"time"
)

type PlanName string

const (
	PlanFree    PlanName = "free"
	PlanLight   PlanName = "light"
	PlanPremium PlanName = "premium"
)

type Plan struct {
	Name  PlanName `json:"name"`
	Limit int      `json:"limit"`
	Price int      `json:"price"` // JPY per month
}

// Plans is the read-only plan catalog.
var Plans = map[PlanName]Plan{
	PlanFree:    {Name: PlanFree, Limit: 20, Price: 0},
	PlanLight:   {Name: PlanLight, Limit: 100, Price: 980},
	PlanPremium: {Name: PlanPremium, Limit: 500, Price: 2980},
}

func LookupPlan(name PlanName) (Plan, error) {
	plan, ok := Plans[name]
	if !ok {
		return Plan{}, fmt.Errorf("invalid plan: %q", name)
	}
	return plan, nil
}

type QuotaRecord struct {
	UserID    string    `json:"-"`
	Plan      PlanName  `json:"plan"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Period    string    `json:"period"`
	ResetAt   time.Time `json:"resetDate"`
}

// NewQuotaRecord derives Remaining; a negative used count is clamped to 0.
func NewQuotaRecord(userID string, plan Plan, used int, period string, resetAt time.Time) *QuotaRecord {
	if used < 0 {
		used = 0
	}
	remaining := plan.Limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaRecord{
		UserID:    userID,
		Plan:      plan.Name,
		Limit:     plan.Limit,
		Used:      used,
		Remaining: remaining,
		Period:    period,
		ResetAt:   resetAt,
	}
}

// PeriodKey formats the calendar month containing t as YYYY-MM.
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// EndOfMonth returns the last instant of the calendar month containing t.
func EndOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.Add(-time.Millisecond)
}

type RateLimitRecord struct {
	UserID        string    `json:"user_id"`
	Endpoint      string    `json:"endpoint"`
	LastRequestAt time.Time `json:"last_request_at"`
}
