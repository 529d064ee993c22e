package handlers

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

func newTestStore(t *testing.T) eventstore.EventStore {
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

	return store
}

func TestAgentHandlerAppendsEvents(t *testing.T) {
	store := newTestStore(t)
	handler := NewAgentHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleSpawnAgent(ctx, SpawnAgentCommand{
		AgentID: "a1",
		Name:    "worker",
		Profile: "default",
	}))
	require.NoError(t, handler.HandleAssignTask(ctx, AssignTaskCommand{
		AgentID:       "a1",
		TaskID:        "t1",
		Source:        "scheduler",
		CausationID:   "cmd-1",
		CorrelationID: "run-1",
	}))

	events, err := store.GetEvents(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, domain.AgentSpawned, events[0].Type)
	require.Equal(t, domain.SourceCoordinator, events[0].Source)

	require.Equal(t, domain.AgentTaskAssigned, events[1].Type)
	require.Equal(t, "scheduler", events[1].Source)
	require.Equal(t, "cmd-1", events[1].CausationID)
	require.Equal(t, "run-1", events[1].CorrelationID)
	require.Equal(t, 2, events[1].Version)
}

func TestAgentHandlerLifecycle(t *testing.T) {
	store := newTestStore(t)
	handler := NewAgentHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleSpawnAgent(ctx, SpawnAgentCommand{AgentID: "a1"}))
	require.NoError(t, handler.HandleStartAgent(ctx, StartAgentCommand{AgentID: "a1"}))
	require.NoError(t, handler.HandleFailAgent(ctx, FailAgentCommand{AgentID: "a1", Error: "boom", TaskID: "t1"}))
	require.NoError(t, handler.HandleChangeAgentStatus(ctx, ChangeAgentStatusCommand{AgentID: "a1", Status: domain.AgentStatusIdle}))
	require.NoError(t, handler.HandleCompleteAgentTask(ctx, CompleteAgentTaskCommand{AgentID: "a1", TaskID: "t1"}))
	require.NoError(t, handler.HandleStopAgent(ctx, StopAgentCommand{AgentID: "a1", Reason: "done"}))

	events, err := store.GetEvents(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, events, 6)
	require.Equal(t, domain.AgentStopped, events[5].Type)
}

func TestTaskHandlerAppendsEvents(t *testing.T) {
	store := newTestStore(t)
	handler := NewTaskHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleCreateTask(ctx, CreateTaskCommand{TaskID: "t1", Description: "work", Priority: 3}))
	require.NoError(t, handler.HandleQueueTask(ctx, QueueTaskCommand{TaskID: "t1"}))
	require.NoError(t, handler.HandleStartTask(ctx, StartTaskCommand{TaskID: "t1", AgentID: "a1"}))
	require.NoError(t, handler.HandleCompleteTask(ctx, CompleteTaskCommand{TaskID: "t1", Duration: 42, Result: "ok"}))

	events, err := store.GetEvents(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, domain.TaskCompleted, events[3].Type)
	require.Equal(t, 4, events[3].Version)
}

func TestTaskHandlerFailureAndBlocking(t *testing.T) {
	store := newTestStore(t)
	handler := NewTaskHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleCreateTask(ctx, CreateTaskCommand{TaskID: "t1", Description: "work"}))
	require.NoError(t, handler.HandleFailTask(ctx, FailTaskCommand{TaskID: "t1", Error: "timeout"}))
	require.NoError(t, handler.HandleBlockTask(ctx, BlockTaskCommand{TaskID: "t1", Reason: "dependency", BlockedOn: "t0"}))

	events, err := store.GetEventsByType(ctx, domain.TaskBlocked)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMemoryHandlerAppendsEvents(t *testing.T) {
	store := newTestStore(t)
	handler := NewMemoryHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleStoreMemory(ctx, StoreMemoryCommand{Key: "k1", Namespace: "plans", Size: 128}))
	require.NoError(t, handler.HandleRetrieveMemory(ctx, RetrieveMemoryCommand{Key: "k1"}))
	require.NoError(t, handler.HandleDeleteMemory(ctx, DeleteMemoryCommand{Key: "k1"}))
	require.NoError(t, handler.HandleExpireMemory(ctx, ExpireMemoryCommand{Key: "k1"}))

	events, err := store.GetEvents(ctx, "k1", 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, domain.AggregateMemory, events[0].AggregateType)
}

func TestSwarmHandlerAppendsEvents(t *testing.T) {
	store := newTestStore(t)
	handler := NewSwarmHandler(store)
	ctx := context.Background()

	require.NoError(t, handler.HandleInitializeSwarm(ctx, InitializeSwarmCommand{SwarmID: "s1", Topology: "mesh", MaxAgents: 8}))
	require.NoError(t, handler.HandleScaleSwarm(ctx, ScaleSwarmCommand{SwarmID: "s1", TargetAgents: 4}))
	require.NoError(t, handler.HandleTerminateSwarm(ctx, TerminateSwarmCommand{SwarmID: "s1", Reason: "done"}))

	events, err := store.GetEvents(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, domain.SwarmTerminated, events[2].Type)
}
