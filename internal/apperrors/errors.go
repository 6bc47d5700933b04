// Package apperrors defines the sentinel errors shared across server
// components. Callers match them with errors.Is rather than switching on
// concrete types.
package apperrors

import "errors"

var (
	// ErrStoreUnavailable means a persistence-gateway operation failed at
	// the driver level. Per-message: surfaced as "database unavailable",
	// connection stays open.
	ErrStoreUnavailable = errors.New("database unavailable")

	// ErrConstraintViolation means the store rejected a write on schema
	// grounds. Per-message: surfaced as "invalid data".
	ErrConstraintViolation = errors.New("invalid data")

	// ErrDuplicateUser means registration raced an existing username.
	ErrDuplicateUser = errors.New("duplicate user")

	// ErrNotOwner means the caller does not own the record they tried to
	// mutate.
	ErrNotOwner = errors.New("not owner")

	// ErrNotFound means a lookup found nothing, not necessarily an error
	// condition at the caller's level.
	ErrNotFound = errors.New("not found")

	// ErrBackpressureRejected means a worker pool's queue was saturated at
	// submission time. The caller sheds load rather than blocking.
	ErrBackpressureRejected = errors.New("worker pool saturated")
)
