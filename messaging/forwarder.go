package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/notifications"
)

// notificationMessage is the wire shape forwarded to the queue
type notificationMessage struct {
	Topic       string `json:"topic"`
	AggregateID string `json:"aggregate_id,omitempty"`
	EventType   string `json:"event_type,omitempty"`
	Error       string `json:"error,omitempty"`
	Time        string `json:"time"`
}

// Forwarder relays store and projection notifications to Azure Service
// Bus so external consumers can follow swarm activity live.
type Forwarder struct {
	client ServiceBusClient
	bus    *notifications.Bus
	done   chan struct{}
}

// NewForwarder creates a notification forwarder
func NewForwarder(client ServiceBusClient, bus *notifications.Bus) *Forwarder {
	return &Forwarder{
		client: client,
		bus:    bus,
		done:   make(chan struct{}),
	}
}

// Start begins relaying notifications. It returns immediately; the
// relay stops when the bus is closed.
func (f *Forwarder) Start() {
	ch := f.bus.Subscribe(
		notifications.TopicStoreInitialized,
		notifications.TopicStoreShutdown,
		notifications.TopicSnapshotSaved,
		notifications.TopicPersistError,
		notifications.TopicAgentChanged,
		notifications.TopicTaskChanged,
		notifications.TopicMemoryChanged,
	)

	go func() {
		defer close(f.done)

		for n := range ch {
			msg := notificationMessage{
				Topic:       n.Topic,
				AggregateID: n.AggregateID,
				EventType:   n.EventType,
				Time:        time.Now().UTC().Format(time.RFC3339),
			}
			if n.Err != nil {
				msg.Error = n.Err.Error()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := f.client.SendMessage(ctx, msg); err != nil {
				log.Error().Err(err).
					Str("topic", n.Topic).
					Msg("Failed to forward notification")
			}
			cancel()
		}
	}()

	log.Info().Msg("Notification forwarder started")
}

// Wait blocks until the relay has drained after the bus closed
func (f *Forwarder) Wait() {
	<-f.done
}
