package notifications

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Topic constants for store and projection notifications
const (
	TopicStoreInitialized    = "store:initialized"
	TopicStoreShutdown       = "store:shutdown"
	TopicEventAppended       = "event:appended"
	TopicSnapshotRecommended = "snapshot:recommended"
	TopicSnapshotSaved       = "snapshot:saved"
	TopicStorePersisted      = "store:persisted"
	TopicPersistError        = "store:persist-error"
	TopicAgentChanged        = "projection:agent-changed"
	TopicTaskChanged         = "projection:task-changed"
	TopicMemoryChanged       = "projection:memory-changed"
)

// Notification is a single message published on the bus
type Notification struct {
	Topic       string
	AggregateID string
	EventType   string
	Err         error
}

// Bus is an in-process publish/subscribe hub. Publish never blocks; a
// subscriber that falls behind loses notifications rather than stalling
// the store's append path.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Notification
	bufferSize  int
	closed      bool
}

// NewBus creates a notification bus with the given per-subscriber buffer
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[string][]chan Notification),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a listener for one or more topics. The returned
// channel is closed when the bus is closed.
func (b *Bus) Subscribe(topics ...string) <-chan Notification {
	ch := make(chan Notification, b.bufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	for _, topic := range topics {
		b.subscribers[topic] = append(b.subscribers[topic], ch)
	}

	return ch
}

// Publish delivers a notification to every subscriber of its topic
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[n.Topic] {
		select {
		case ch <- n:
		default:
			log.Warn().
				Str("topic", n.Topic).
				Str("aggregateID", n.AggregateID).
				Msg("Notification dropped, subscriber buffer full")
		}
	}
}

// Close shuts the bus down and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[chan Notification]bool)
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			if !seen[ch] {
				close(ch)
				seen[ch] = true
			}
		}
	}
	b.subscribers = nil
}
