package eventstore

import "errors"

// Store errors. Callers branch on these rather than on message text.
var (
	// ErrNotInitialized is returned when the store is used before
	// Initialize or after Shutdown.
	ErrNotInitialized = errors.New("event store not initialized")

	// ErrVersionConflict is returned when two appends race for the
	// same aggregate version. The caller must re-read and retry.
	ErrVersionConflict = errors.New("event version conflict")

	// ErrInvalidSnapshot is returned when a snapshot references a
	// version that has not been appended yet.
	ErrInvalidSnapshot = errors.New("snapshot version exceeds aggregate version")
)
