package generator

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upstream failures for the retry policy.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindServer        ErrorKind = "server"
	KindNetwork       ErrorKind = "network"
	KindClient        ErrorKind = "client"
	KindEmpty         ErrorKind = "empty_completion"
	KindInvalidOutput ErrorKind = "invalid_output"
	KindCanceled      ErrorKind = "canceled"
	KindNotConfigured ErrorKind = "not_configured"
)

// UpstreamError is returned by Generate for every failure. Attempts is the
// number of calls made before giving up.
type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generator %s (status %d, %d attempts): %v", e.Kind, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("generator %s (%d attempts): %v", e.Kind, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("generator credentials not configured")

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Kind == KindRateLimited
}
