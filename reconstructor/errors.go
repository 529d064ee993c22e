package reconstructor

import (
	"errors"
	"fmt"
)

// ErrReplayTooLarge is matched with errors.Is against a
// ReplayTooLargeError.
var ErrReplayTooLarge = errors.New("replay too large")

// ReplayTooLargeError is returned when reconstructing an aggregate
// would fold more events than the configured ceiling. It signals a
// configuration problem, usually snapshotting being disabled or too
// infrequent for the aggregate's write rate.
type ReplayTooLargeError struct {
	AggregateID string
	Events      int
	Limit       int
}

func (e *ReplayTooLargeError) Error() string {
	return fmt.Sprintf("reconstructing aggregate %s requires replaying %d events, limit is %d",
		e.AggregateID, e.Events, e.Limit)
}

func (e *ReplayTooLargeError) Unwrap() error {
	return ErrReplayTooLarge
}
