package projections

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/notifications"
)

// Processor keeps a set of projections current. It builds them with a
// full replay on Start, then folds new events as append notifications
// arrive. A periodic sweep catches anything a dropped notification
// missed.
type Processor struct {
	store         eventstore.EventStore
	bus           *notifications.Bus
	projections   []Projection
	sweepInterval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	lastSeq  uint64
}

// NewProcessor creates a projection processor
func NewProcessor(store eventstore.EventStore, bus *notifications.Bus, projections ...Projection) *Processor {
	return &Processor{
		store:         store,
		bus:           bus,
		projections:   projections,
		sweepInterval: 30 * time.Second,
	}
}

// Start initializes all projections and begins processing events
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	p.mu.Unlock()

	// Subscribe before the initial replay so no append slips between
	// replay end and subscription start.
	appended := p.bus.Subscribe(notifications.TopicEventAppended)

	for _, projection := range p.projections {
		if err := projection.Initialize(ctx); err != nil {
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return err
		}
	}

	// Catch up the dispatch cursor to the log head. Projections
	// skip events they already replayed.
	if err := p.dispatch(ctx); err != nil {
		log.Error().Err(err).Msg("Initial projection dispatch failed")
	}

	go p.run(appended)

	log.Info().Int("projections", len(p.projections)).Msg("Projection processor started")
	return nil
}

func (p *Processor) run(appended <-chan notifications.Notification) {
	defer close(p.doneChan)

	sweep := time.NewTicker(p.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case _, ok := <-appended:
			if !ok {
				return
			}
			if err := p.dispatch(context.Background()); err != nil {
				log.Error().Err(err).Msg("Projection dispatch failed")
			}
		case <-sweep.C:
			if err := p.dispatch(context.Background()); err != nil {
				log.Error().Err(err).Msg("Projection sweep failed")
			}
		case <-p.stopChan:
			return
		}
	}
}

// dispatch folds all events past the cursor into every projection
func (p *Processor) dispatch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	replayer, err := p.store.Replay(ctx, p.lastSeq)
	if err != nil {
		return err
	}

	for {
		event, ok, err := replayer.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for _, projection := range p.projections {
			projection.Handle(event)
		}
		p.lastSeq = event.Sequence

		if topic := changedTopic(event.AggregateType); topic != "" {
			p.bus.Publish(notifications.Notification{
				Topic:       topic,
				AggregateID: event.AggregateID,
				EventType:   event.Type,
			})
		}
	}
}

func changedTopic(aggregateType string) string {
	switch aggregateType {
	case domain.AggregateAgent:
		return notifications.TopicAgentChanged
	case domain.AggregateTask:
		return notifications.TopicTaskChanged
	case domain.AggregateMemory:
		return notifications.TopicMemoryChanged
	default:
		return ""
	}
}

// Stop halts event processing
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	done := p.doneChan
	p.mu.Unlock()

	<-done
	log.Info().Msg("Projection processor stopped")
}
