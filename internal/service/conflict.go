package service

import (
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

// retryableConflict reports whether the error is a store-level unique-key or
// serialization failure. Upserts are idempotent by construction, so one
// automatic retry is safe on these; other error kinds must surface unchanged.
func retryableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "23505", "40001", "40P01":
		return true
	default:
		return false
	}
}

// withConflictRetry runs an idempotent upsert, retrying once on a conflict
// write failure. A second failure surfaces as a typed conflict error.
func withConflictRetry(fn func() error) error {
	err := fn()
	if err == nil || !retryableConflict(err) {
		return err
	}
	if err = fn(); err != nil {
		if retryableConflict(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "write conflict persisted after retry")
		}
		return err
	}
	return nil
}
