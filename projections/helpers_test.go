package projections

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/notifications"
)

func newTestStore(t *testing.T) (eventstore.EventStore, *notifications.Bus) {
	t.Helper()

	cfg := config.Config{
		DBSource:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		SnapshotFrequency: 100,
		MaxReplayEvents:   10000,
	}

	bus := notifications.NewBus(256)
	store := eventstore.NewGormStore(cfg, bus)
	require.NoError(t, store.Initialize(context.Background()))

	t.Cleanup(func() {
		_ = store.Shutdown(context.Background())
		bus.Close()
	})

	return store, bus
}

// appender returns a function that takes a factory result directly, so
// tests can write add(domain.NewTaskCreatedEvent(...)) in one line.
func appender(t *testing.T, store eventstore.EventStore) func(domain.Event, error) domain.Event {
	t.Helper()

	return func(event domain.Event, err error) domain.Event {
		t.Helper()
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), &event))
		return event
	}
}
