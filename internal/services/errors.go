package services

import (
	"errors"
	"fmt"

	"github.com/temcen/copyink/pkg/models"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited: wait a few seconds between requests")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Details map[string]string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// QuotaExceededError reports the usage that caused the rejection.
type QuotaExceededError struct {
	Record *models.QuotaRecord
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly quota exceeded: %d/%d used on plan %s", e.Record.Used, e.Record.Limit, e.Record.Plan)
}

// StorageError wraps failures of the quota or cooldown store. Requests
// fail closed on it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
