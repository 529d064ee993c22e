package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()

	agentChanges := bus.Subscribe(TopicAgentChanged)
	storeEvents := bus.Subscribe(TopicStoreInitialized, TopicStoreShutdown)

	bus.Publish(Notification{Topic: TopicAgentChanged, AggregateID: "a1"})
	bus.Publish(Notification{Topic: TopicStoreInitialized})
	bus.Publish(Notification{Topic: TopicTaskChanged, AggregateID: "t1"}) // nobody listens

	select {
	case n := <-agentChanges:
		require.Equal(t, "a1", n.AggregateID)
	case <-time.After(time.Second):
		t.Fatal("expected an agent-changed notification")
	}

	select {
	case n := <-storeEvents:
		require.Equal(t, TopicStoreInitialized, n.Topic)
	case <-time.After(time.Second):
		t.Fatal("expected a store-initialized notification")
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(2)
	defer bus.Close()

	_ = bus.Subscribe(TopicEventAppended)

	// Nobody drains the channel; publishes past the buffer are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Notification{Topic: TopicEventAppended})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus(16)

	// The same channel on two topics must only be closed once
	ch := bus.Subscribe(TopicAgentChanged, TopicTaskChanged)
	bus.Close()
	bus.Close()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing and subscribing after close are no-ops
	bus.Publish(Notification{Topic: TopicAgentChanged})
	late := bus.Subscribe(TopicAgentChanged)
	_, ok = <-late
	require.False(t, ok)
}
