package eventstore

import (
	"context"
	"time"

	"example.com/backstage/services/orchestrator/domain"
)

// Filter narrows a Query call. Zero values mean "no constraint".
// Results are ordered by timestamp ascending.
type Filter struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Since         time.Time
	Until         time.Time
	MinVersion    int
	Limit         int
	Offset        int
}

// Stats summarizes the log for observability
type Stats struct {
	TotalEvents     int64            `json:"total_events"`
	EventsByType    map[string]int64 `json:"events_by_type"`
	EventsByAggType map[string]int64 `json:"events_by_aggregate_type"`
	AggregateCount  int64            `json:"aggregate_count"`
	SnapshotCount   int64            `json:"snapshot_count"`
	OldestTimestamp time.Time        `json:"oldest_timestamp,omitempty"`
	NewestTimestamp time.Time        `json:"newest_timestamp,omitempty"`
}

// EventStore is the durable, ordered, append-only event log
type EventStore interface {
	// Initialize opens the backing store and loads the version
	// tracker. Calling it on an initialized store is a no-op.
	Initialize(ctx context.Context) error

	// Append assigns the event's per-aggregate version and global
	// sequence, then persists it. Version and Sequence on the passed
	// event are set on success.
	Append(ctx context.Context, event *domain.Event) error

	// GetEvents returns one aggregate's events in ascending version
	// order, starting at fromVersion (0 or 1 means from the start).
	// An unknown aggregate yields an empty slice, not an error.
	GetEvents(ctx context.Context, aggregateID string, fromVersion int) ([]domain.Event, error)

	// GetEventsByType returns all events of one type across
	// aggregates, ordered by timestamp ascending.
	GetEventsByType(ctx context.Context, eventType string) ([]domain.Event, error)

	// Query returns events matching the filter.
	Query(ctx context.Context, filter Filter) ([]domain.Event, error)

	// Replay returns an iterator over all events with sequence
	// greater than fromSequence, bounded by the log size at call
	// time. It never blocks waiting for future writes.
	Replay(ctx context.Context, fromSequence uint64) (*Replayer, error)

	// SaveSnapshot upserts the aggregate's snapshot. Newer
	// overwrites older; at most one snapshot per aggregate.
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error

	// GetSnapshot returns the aggregate's latest snapshot, or nil
	// when none exists.
	GetSnapshot(ctx context.Context, aggregateID string) (*domain.Snapshot, error)

	// GetStats summarizes the log.
	GetStats(ctx context.Context) (Stats, error)

	// Persist flushes the backing store to disk.
	Persist(ctx context.Context) error

	// Shutdown performs a final flush and releases the backing
	// store. Any call after Shutdown fails with ErrNotInitialized.
	Shutdown(ctx context.Context) error
}
