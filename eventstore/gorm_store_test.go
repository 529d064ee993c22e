package eventstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/notifications"
)

func testConfig() config.Config {
	return config.Config{
		DBSource:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		SnapshotFrequency: 100,
		MaxReplayEvents:   10000,
	}
}

func newTestStore(t *testing.T) (*GormStore, *notifications.Bus) {
	t.Helper()

	bus := notifications.NewBus(256)
	store := NewGormStore(testConfig(), bus)
	require.NoError(t, store.Initialize(context.Background()))

	t.Cleanup(func() {
		_ = store.Shutdown(context.Background())
		bus.Close()
	})

	return store, bus
}

func appendEvent(t *testing.T, store *GormStore, eventType, aggregateID string) domain.Event {
	t.Helper()

	var (
		event domain.Event
		err   error
	)
	switch eventType {
	case domain.AgentSpawned:
		event, err = domain.NewAgentSpawnedEvent(aggregateID, domain.SourceCoordinator, "worker", "default")
	case domain.AgentStarted:
		event, err = domain.NewAgentStartedEvent(aggregateID, domain.SourceCoordinator)
	default:
		event, err = domain.NewAgentStatusChangedEvent(aggregateID, domain.SourceCoordinator, domain.AgentStatusIdle)
	}
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), &event))
	return event
}

func TestAppendAssignsSequentialVersions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Interleave appends for two aggregates
	for i := 0; i < 5; i++ {
		appendEvent(t, store, domain.AgentStatusChanged, "agent-a")
		appendEvent(t, store, domain.AgentStatusChanged, "agent-b")
	}

	for _, id := range []string{"agent-a", "agent-b"} {
		events, err := store.GetEvents(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, events, 5)
		for i, event := range events {
			require.Equal(t, i+1, event.Version)
			require.Equal(t, id, event.AggregateID)
		}
	}
}

func TestAppendSerializesConcurrentWriters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event, err := domain.NewAgentStatusChangedEvent("task-7", domain.SourceCoordinator, domain.AgentStatusBusy)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = store.Append(ctx, &event)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	events, err := store.GetEvents(ctx, "task-7", 0)
	require.NoError(t, err)
	require.Len(t, events, writers)

	seen := make(map[int]bool)
	for _, event := range events {
		require.False(t, seen[event.Version], "version %d assigned twice", event.Version)
		seen[event.Version] = true
	}
	for v := 1; v <= writers; v++ {
		require.True(t, seen[v], "version %d missing", v)
	}
}

func TestAppendPublishesNotifications(t *testing.T) {
	bus := notifications.NewBus(256)
	cfg := testConfig()
	cfg.SnapshotFrequency = 2
	store := NewGormStore(cfg, bus)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() {
		_ = store.Shutdown(context.Background())
		bus.Close()
	})

	appended := bus.Subscribe(notifications.TopicEventAppended)
	recommended := bus.Subscribe(notifications.TopicSnapshotRecommended)

	appendEvent(t, store, domain.AgentSpawned, "agent-1")
	appendEvent(t, store, domain.AgentStarted, "agent-1")

	require.Len(t, appended, 2)

	select {
	case n := <-recommended:
		require.Equal(t, "agent-1", n.AggregateID)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot recommendation at version 2")
	}
}

func TestGetEventsFromVersion(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		appendEvent(t, store, domain.AgentStatusChanged, "agent-1")
	}

	events, err := store.GetEvents(ctx, "agent-1", 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, 4, events[0].Version)
	require.Equal(t, 6, events[2].Version)
}

func TestGetEventsUnknownAggregateReturnsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	events, err := store.GetEvents(context.Background(), "nobody", 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestQueryFilters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendEvent(t, store, domain.AgentSpawned, "agent-1")
	appendEvent(t, store, domain.AgentStarted, "agent-1")
	appendEvent(t, store, domain.AgentSpawned, "agent-2")

	byType, err := store.GetEventsByType(ctx, domain.AgentSpawned)
	require.NoError(t, err)
	require.Len(t, byType, 2)

	byAggregate, err := store.Query(ctx, Filter{AggregateID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, byAggregate, 2)

	limited, err := store.Query(ctx, Filter{AggregateType: domain.AggregateAgent, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestReplayIsBoundedAtCallTime(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		appendEvent(t, store, domain.AgentStatusChanged, "agent-1")
	}

	replayer, err := store.Replay(ctx, 0)
	require.NoError(t, err)

	// Events appended after the Replay call are not observed
	appendEvent(t, store, domain.AgentStatusChanged, "agent-1")

	count := 0
	var lastSeq uint64
	for {
		event, ok, err := replayer.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Greater(t, event.Sequence, lastSeq)
		lastSeq = event.Sequence
		count++
	}
	require.Equal(t, 3, count)
}

func TestReplayFromSequence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var events []domain.Event
	for i := 0; i < 5; i++ {
		events = append(events, appendEvent(t, store, domain.AgentStatusChanged, "agent-1"))
	}

	replayer, err := store.Replay(ctx, events[1].Sequence)
	require.NoError(t, err)

	count := 0
	for {
		_, ok, err := replayer.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 3, count)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendEvent(t, store, domain.AgentSpawned, "agent-1")
	appendEvent(t, store, domain.AgentStarted, "agent-1")

	missing, err := store.GetSnapshot(ctx, "agent-1")
	require.NoError(t, err)
	require.Nil(t, missing)

	snapshot := domain.Snapshot{
		AggregateID:   "agent-1",
		AggregateType: domain.AggregateAgent,
		Version:       2,
		State:         []byte(`{"status":"active"}`),
		Timestamp:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	loaded, err := store.GetSnapshot(ctx, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, 2, loaded.Version)
	require.JSONEq(t, `{"status":"active"}`, string(loaded.State))

	// Newer snapshot overwrites the older one
	snapshot.Version = 1
	snapshot.State = []byte(`{"status":"idle"}`)
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	loaded, err = store.GetSnapshot(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Version)
}

func TestSaveSnapshotRejectsFutureVersion(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendEvent(t, store, domain.AgentSpawned, "agent-1")

	err := store.SaveSnapshot(ctx, domain.Snapshot{
		AggregateID:   "agent-1",
		AggregateType: domain.AggregateAgent,
		Version:       5,
		State:         []byte(`{}`),
		Timestamp:     time.Now().UTC(),
	})
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestGetStats(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendEvent(t, store, domain.AgentSpawned, "agent-1")
	appendEvent(t, store, domain.AgentStarted, "agent-1")
	appendEvent(t, store, domain.AgentSpawned, "agent-2")

	require.NoError(t, store.SaveSnapshot(ctx, domain.Snapshot{
		AggregateID:   "agent-1",
		AggregateType: domain.AggregateAgent,
		Version:       1,
		State:         []byte(`{}`),
		Timestamp:     time.Now().UTC(),
	}))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalEvents)
	require.Equal(t, int64(2), stats.EventsByType[domain.AgentSpawned])
	require.Equal(t, int64(3), stats.EventsByAggType[domain.AggregateAgent])
	require.Equal(t, int64(2), stats.AggregateCount)
	require.Equal(t, int64(1), stats.SnapshotCount)
	require.False(t, stats.OldestTimestamp.IsZero())
	require.False(t, stats.NewestTimestamp.After(time.Now().Add(time.Minute)))
}

func TestVersionTrackerSurvivesRestart(t *testing.T) {
	cfg := testConfig()
	bus := notifications.NewBus(256)

	store := NewGormStore(cfg, bus)
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))

	// Keep a second handle open so the shared in-memory database
	// survives the first store shutting down.
	keeper := NewGormStore(cfg, notifications.NewBus(16))
	require.NoError(t, keeper.Initialize(ctx))
	defer keeper.Shutdown(ctx)

	for i := 0; i < 3; i++ {
		appendEvent(t, store, domain.AgentStatusChanged, "agent-1")
	}
	require.NoError(t, store.Shutdown(ctx))

	reopened := NewGormStore(cfg, bus)
	require.NoError(t, reopened.Initialize(ctx))
	defer reopened.Shutdown(ctx)

	event, err := domain.NewAgentStatusChangedEvent("agent-1", domain.SourceCoordinator, domain.AgentStatusBusy)
	require.NoError(t, err)
	require.NoError(t, reopened.Append(ctx, &event))
	require.Equal(t, 4, event.Version)
}

func TestOperationsFailWhenNotInitialized(t *testing.T) {
	bus := notifications.NewBus(16)
	store := NewGormStore(testConfig(), bus)
	ctx := context.Background()

	event, err := domain.NewAgentStartedEvent("agent-1", domain.SourceCoordinator)
	require.NoError(t, err)

	require.ErrorIs(t, store.Append(ctx, &event), ErrNotInitialized)
	_, err = store.GetEvents(ctx, "agent-1", 0)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = store.Replay(ctx, 0)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, store.Persist(ctx), ErrNotInitialized)

	// Initialize, shut down, and every operation fails again
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Shutdown(ctx))
	require.ErrorIs(t, store.Append(ctx, &event), ErrNotInitialized)
	require.ErrorIs(t, store.Shutdown(ctx), ErrNotInitialized)
}

func TestInitializeIsReentrant(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize(context.Background()))
}
