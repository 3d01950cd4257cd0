package store

import "errors"

var (
	// ErrNotFound is returned when no installation exists for the given id
	ErrNotFound = errors.New("installation not found")

	// ErrStorageUnavailable wraps database-layer failures. The store never
	// retries internally; the caller decides.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
