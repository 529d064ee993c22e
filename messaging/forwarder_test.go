package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orchestrator/notifications"
)

// fakeServiceBusClient captures sent messages
type fakeServiceBusClient struct {
	mu       sync.Mutex
	messages []notificationMessage
	failNext bool
}

func (f *fakeServiceBusClient) SendMessage(ctx context.Context, body interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext {
		f.failNext = false
		return errors.New("queue unavailable")
	}
	f.messages = append(f.messages, body.(notificationMessage))
	return nil
}

func (f *fakeServiceBusClient) Close() error { return nil }

func (f *fakeServiceBusClient) sent() []notificationMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notificationMessage(nil), f.messages...)
}

func TestForwarderRelaysNotifications(t *testing.T) {
	bus := notifications.NewBus(16)
	client := &fakeServiceBusClient{}

	forwarder := NewForwarder(client, bus)
	forwarder.Start()

	bus.Publish(notifications.Notification{
		Topic:       notifications.TopicAgentChanged,
		AggregateID: "a1",
		EventType:   "agent:spawned",
	})
	bus.Publish(notifications.Notification{
		Topic: notifications.TopicPersistError,
		Err:   errors.New("disk full"),
	})
	bus.Publish(notifications.Notification{
		Topic: notifications.TopicEventAppended, // not a forwarded topic
	})

	bus.Close()
	forwarder.Wait()

	messages := client.sent()
	require.Len(t, messages, 2)
	require.Equal(t, notifications.TopicAgentChanged, messages[0].Topic)
	require.Equal(t, "a1", messages[0].AggregateID)
	require.Equal(t, "agent:spawned", messages[0].EventType)
	require.NotEmpty(t, messages[0].Time)
	require.Equal(t, "disk full", messages[1].Error)
}

func TestForwarderSurvivesSendFailure(t *testing.T) {
	bus := notifications.NewBus(16)
	client := &fakeServiceBusClient{failNext: true}

	forwarder := NewForwarder(client, bus)
	forwarder.Start()

	bus.Publish(notifications.Notification{Topic: notifications.TopicAgentChanged, AggregateID: "a1"})
	bus.Publish(notifications.Notification{Topic: notifications.TopicAgentChanged, AggregateID: "a2"})

	bus.Close()

	done := make(chan struct{})
	go func() {
		forwarder.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not drain after a send failure")
	}

	messages := client.sent()
	require.Len(t, messages, 1)
	require.Equal(t, "a2", messages[0].AggregateID)
}
