package search

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/notifications"
)

// Indexer follows the event log and mirrors new events into
// Elasticsearch. It keeps its own cursor, so an indexing failure is
// retried on the next append rather than lost.
type Indexer struct {
	client *ElasticClient
	store  eventstore.EventStore
	bus    *notifications.Bus

	mu       sync.Mutex
	running  bool
	lastSeq  uint64
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewIndexer creates an event indexer
func NewIndexer(client *ElasticClient, store eventstore.EventStore, bus *notifications.Bus) *Indexer {
	return &Indexer{
		client: client,
		store:  store,
		bus:    bus,
	}
}

// Start begins mirroring events into the search index
func (i *Indexer) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = true
	i.stopChan = make(chan struct{})
	i.doneChan = make(chan struct{})
	i.mu.Unlock()

	appended := i.bus.Subscribe(notifications.TopicEventAppended)

	if err := i.catchUp(ctx); err != nil {
		log.Error().Err(err).Msg("Initial index catch-up failed")
	}

	go i.run(appended)

	log.Info().Msg("Event indexer started")
	return nil
}

func (i *Indexer) run(appended <-chan notifications.Notification) {
	defer close(i.doneChan)

	for {
		select {
		case _, ok := <-appended:
			if !ok {
				return
			}
			if err := i.catchUp(context.Background()); err != nil {
				log.Error().Err(err).Msg("Event indexing failed")
			}
		case <-i.stopChan:
			return
		}
	}
}

// catchUp indexes every event past the cursor. The cursor only
// advances past events that were indexed successfully.
func (i *Indexer) catchUp(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	replayer, err := i.store.Replay(ctx, i.lastSeq)
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

		if err := i.client.IndexEvent(ctx, event); err != nil {
			return err
		}
		i.lastSeq = event.Sequence
	}
}

// Stop halts indexing
func (i *Indexer) Stop() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	close(i.stopChan)
	done := i.doneChan
	i.mu.Unlock()

	<-done
	log.Info().Msg("Event indexer stopped")
}
