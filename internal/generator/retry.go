package generator

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait before the next one. Attempts are numbered from zero.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	RetryDelay  time.Duration
}

// DefaultRetryPolicy allows two retries after the first attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		RetryDelay:  200 * time.Millisecond,
	}
}

// IsRetryable reports whether err is worth another attempt. Rate limits,
// server errors, network failures and empty completions are transient.
// Malformed output and other client errors are not.
func (p RetryPolicy) IsRetryable(err error) bool {
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	switch upstream.Kind {
	case KindRateLimited, KindServer, KindNetwork, KindEmpty:
		return true
	default:
		return false
	}
}

// Backoff is the wait after the given failed attempt: 2^attempt times
// BaseDelay for rate limits, RetryDelay for anything else.
func (p RetryPolicy) Backoff(attempt int, err error) time.Duration {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Kind == KindRateLimited {
		if attempt < 0 {
			attempt = 0
		}
		return p.BaseDelay << uint(attempt)
	}
	return p.RetryDelay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
