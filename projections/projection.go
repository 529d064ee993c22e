package projections

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Projection is a read model derived entirely from the event log. It
// never accepts writes directly; state changes only by handling events.
type Projection interface {
	// Name identifies the projection in logs and stats.
	Name() string

	// Initialize replays the full log to build current state. It is
	// idempotent; a second call on an initialized projection is a
	// no-op.
	Initialize(ctx context.Context) error

	// Handle folds one live event into the projection. Events at or
	// below the projection's replay position are skipped, so a
	// handle racing the initial replay cannot double-apply. Unknown
	// event types are ignored.
	Handle(event domain.Event)

	// Reset discards all derived state. The caller must Initialize
	// again before querying.
	Reset()
}

// base carries the replay bookkeeping shared by all projections. The
// embedding projection supplies apply and clear.
type base struct {
	name  string
	store eventstore.EventStore

	mu          sync.RWMutex
	initialized bool
	lastSeq     uint64

	apply func(event domain.Event)
	clear func()
}

func (b *base) Name() string {
	return b.name
}

// Initialize replays the log from sequence zero through apply
func (b *base) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	replayer, err := b.store.Replay(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to start replay for projection %s: %w", b.name, err)
	}

	count := 0
	for {
		event, ok, err := replayer.Next(ctx)
		if err != nil {
			return fmt.Errorf("replay failed for projection %s: %w", b.name, err)
		}
		if !ok {
			break
		}
		b.apply(event)
		b.lastSeq = event.Sequence
		count++
	}

	b.initialized = true
	log.Info().
		Str("projection", b.name).
		Int("events", count).
		Msg("Projection initialized")
	return nil
}

// Handle folds one live event, skipping anything already replayed
func (b *base) Handle(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event.Sequence <= b.lastSeq {
		return
	}
	b.apply(event)
	b.lastSeq = event.Sequence
}

// Reset discards all derived state
func (b *base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clear()
	b.initialized = false
	b.lastSeq = 0
}
