package eventstore

import (
	"context"
	"fmt"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/models"
)

const replayPageSize = 200

// Replayer is a pull iterator over the global event stream in sequence
// order. It is bounded by the log size at creation time, so events
// appended after the Replay call are not observed. Abandoning a
// Replayer early has no side effects.
type Replayer struct {
	store  *GormStore
	cursor uint64
	maxSeq uint64
	buffer []models.Event
	pos    int
}

func newReplayer(store *GormStore, fromSequence, maxSeq uint64) *Replayer {
	return &Replayer{
		store:  store,
		cursor: fromSequence,
		maxSeq: maxSeq,
	}
}

// Next returns the next event in sequence order, or false when the
// stream is exhausted.
func (r *Replayer) Next(ctx context.Context) (domain.Event, bool, error) {
	if r.pos >= len(r.buffer) {
		if err := r.fill(ctx); err != nil {
			return domain.Event{}, false, err
		}
		if len(r.buffer) == 0 {
			return domain.Event{}, false, nil
		}
	}

	row := r.buffer[r.pos]
	r.pos++
	r.cursor = row.Sequence
	return toDomainEvent(row), true, nil
}

func (r *Replayer) fill(ctx context.Context) error {
	r.buffer = r.buffer[:0]
	r.pos = 0

	if r.cursor >= r.maxSeq {
		return nil
	}

	if err := r.store.ready(); err != nil {
		return err
	}

	if err := r.store.db.WithContext(ctx).
		Where("sequence > ? AND sequence <= ?", r.cursor, r.maxSeq).
		Order("sequence ASC").
		Limit(replayPageSize).
		Find(&r.buffer).Error; err != nil {
		return fmt.Errorf("failed to page replay events: %w", err)
	}

	return nil
}
