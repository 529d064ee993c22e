package reconstructor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Factory creates an empty aggregate for reconstruction
type Factory func(id string) domain.Aggregate

// SnapshotCache sits in front of the store's snapshot table. Cache
// failures degrade to store lookups, never to reconstruction failures.
type SnapshotCache interface {
	Get(ctx context.Context, aggregateID string) (*domain.Snapshot, error)
	Set(ctx context.Context, snapshot domain.Snapshot) error
}

// Reconstructor rebuilds a single aggregate's state on demand from its
// event history, seeded by the latest snapshot when one exists.
type Reconstructor struct {
	store             eventstore.EventStore
	cache             SnapshotCache
	snapshotsEnabled  bool
	snapshotFrequency int
	maxReplayEvents   int
}

// New creates a reconstructor. cache may be nil.
func New(store eventstore.EventStore, cache SnapshotCache, cfg config.Config) *Reconstructor {
	return &Reconstructor{
		store:             store,
		cache:             cache,
		snapshotsEnabled:  cfg.SnapshotFrequency > 0,
		snapshotFrequency: cfg.SnapshotFrequency,
		maxReplayEvents:   cfg.MaxReplayEvents,
	}
}

// Reconstruct rebuilds the aggregate's current state. With snapshotting
// enabled the latest snapshot seeds the aggregate and only newer events
// are replayed; after reconstruction a fresh snapshot is persisted when
// the aggregate sits exactly on a snapshot boundary.
func (r *Reconstructor) Reconstruct(ctx context.Context, aggregateID string, factory Factory) (domain.Aggregate, error) {
	aggregate := factory(aggregateID)

	if r.snapshotsEnabled {
		snapshot, err := r.lookupSnapshot(ctx, aggregateID)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			if err := aggregate.RestoreFromSnapshot(*snapshot); err != nil {
				return nil, err
			}
		}
	}

	events, err := r.store.GetEvents(ctx, aggregateID, aggregate.GetVersion()+1)
	if err != nil {
		return nil, err
	}

	if r.maxReplayEvents > 0 && len(events) > r.maxReplayEvents {
		return nil, &ReplayTooLargeError{
			AggregateID: aggregateID,
			Events:      len(events),
			Limit:       r.maxReplayEvents,
		}
	}

	for _, event := range events {
		if err := aggregate.Apply(event); err != nil {
			return nil, err
		}
	}

	if r.snapshotsEnabled && aggregate.GetVersion() > 0 && aggregate.GetVersion()%r.snapshotFrequency == 0 {
		if err := r.takeSnapshot(ctx, aggregate); err != nil {
			// Snapshotting is an optimization; reconstruction
			// already succeeded.
			log.Warn().Err(err).
				Str("aggregateID", aggregateID).
				Msg("Failed to snapshot after reconstruction")
		}
	}

	return aggregate, nil
}

// ReconstructAtTime rebuilds the aggregate as of the given time.
// Snapshots are bypassed; the full history is filtered by timestamp.
func (r *Reconstructor) ReconstructAtTime(ctx context.Context, aggregateID string, factory Factory, at time.Time) (domain.Aggregate, error) {
	return r.reconstructFiltered(ctx, aggregateID, factory, func(event domain.Event) bool {
		return !event.Timestamp.After(at)
	})
}

// ReconstructAtVersion rebuilds the aggregate as of the given version.
// Snapshots are bypassed.
func (r *Reconstructor) ReconstructAtVersion(ctx context.Context, aggregateID string, factory Factory, targetVersion int) (domain.Aggregate, error) {
	return r.reconstructFiltered(ctx, aggregateID, factory, func(event domain.Event) bool {
		return event.Version <= targetVersion
	})
}

func (r *Reconstructor) reconstructFiltered(ctx context.Context, aggregateID string, factory Factory, keep func(domain.Event) bool) (domain.Aggregate, error) {
	aggregate := factory(aggregateID)

	events, err := r.store.GetEvents(ctx, aggregateID, 0)
	if err != nil {
		return nil, err
	}

	if r.maxReplayEvents > 0 && len(events) > r.maxReplayEvents {
		return nil, &ReplayTooLargeError{
			AggregateID: aggregateID,
			Events:      len(events),
			Limit:       r.maxReplayEvents,
		}
	}

	for _, event := range events {
		if !keep(event) {
			continue
		}
		if err := aggregate.Apply(event); err != nil {
			return nil, err
		}
	}

	return aggregate, nil
}

func (r *Reconstructor) lookupSnapshot(ctx context.Context, aggregateID string) (*domain.Snapshot, error) {
	if r.cache != nil {
		snapshot, err := r.cache.Get(ctx, aggregateID)
		if err != nil {
			log.Warn().Err(err).
				Str("aggregateID", aggregateID).
				Msg("Snapshot cache lookup failed, falling back to store")
		} else if snapshot != nil {
			return snapshot, nil
		}
	}

	return r.store.GetSnapshot(ctx, aggregateID)
}

func (r *Reconstructor) takeSnapshot(ctx context.Context, aggregate domain.Aggregate) error {
	state, err := aggregate.GetState()
	if err != nil {
		return err
	}

	snapshot := domain.Snapshot{
		AggregateID:   aggregate.GetID(),
		AggregateType: aggregate.GetType(),
		Version:       aggregate.GetVersion(),
		State:         state,
		Timestamp:     time.Now().UTC(),
	}

	if err := r.store.SaveSnapshot(ctx, snapshot); err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, snapshot); err != nil {
			log.Warn().Err(err).
				Str("aggregateID", snapshot.AggregateID).
				Msg("Failed to cache snapshot")
		}
	}

	return nil
}
