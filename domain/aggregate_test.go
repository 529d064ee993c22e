package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func versionedEvent(t *testing.T, build func() (Event, error), version int) Event {
	t.Helper()
	event, err := build()
	require.NoError(t, err)
	event.Version = version
	return event
}

func TestAgentAggregateApply(t *testing.T) {
	aggregate := NewAgentAggregate("a1")
	src := SourceCoordinator

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentSpawnedEvent("a1", src, "worker", "default")
	}, 1)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentTaskAssignedEvent("a1", src, "t1")
	}, 2)))

	require.Equal(t, 2, aggregate.GetVersion())
	require.Equal(t, AgentStatusBusy, aggregate.State.Status)
	require.Equal(t, "t1", aggregate.State.CurrentTask)
}

func TestAggregateRejectsOutOfOrderEvents(t *testing.T) {
	aggregate := NewAgentAggregate("a1")

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentSpawnedEvent("a1", SourceCoordinator, "worker", "default")
	}, 1)))

	// Same version again
	err := aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentStartedEvent("a1", SourceCoordinator)
	}, 1))
	require.Error(t, err)
	require.Equal(t, 1, aggregate.GetVersion())
}

func TestAggregateRejectsForeignEvents(t *testing.T) {
	aggregate := NewAgentAggregate("a1")

	err := aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentSpawnedEvent("a2", SourceCoordinator, "worker", "default")
	}, 1))
	require.Error(t, err)
}

func TestAggregateRestoreFromSnapshot(t *testing.T) {
	seed := NewAgentAggregate("a1")
	require.NoError(t, seed.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentSpawnedEvent("a1", SourceCoordinator, "worker", "default")
	}, 1)))
	require.NoError(t, seed.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentTaskAssignedEvent("a1", SourceCoordinator, "t1")
	}, 2)))

	state, err := seed.GetState()
	require.NoError(t, err)

	restored := NewAgentAggregate("a1")
	require.NoError(t, restored.RestoreFromSnapshot(Snapshot{
		AggregateID:   "a1",
		AggregateType: AggregateAgent,
		Version:       2,
		State:         state,
		Timestamp:     time.Now().UTC(),
	}))

	require.Equal(t, 2, restored.GetVersion())
	require.Equal(t, seed.State, restored.State)

	// Replay resumes after the snapshot version
	require.NoError(t, restored.Apply(versionedEvent(t, func() (Event, error) {
		return NewAgentTaskCompletedEvent("a1", SourceCoordinator, "t1")
	}, 3)))
	require.Equal(t, AgentStatusIdle, restored.State.Status)
	require.Equal(t, []string{"t1"}, restored.State.CompletedTasks)
}

func TestAggregateRestoreRejectsForeignSnapshot(t *testing.T) {
	aggregate := NewAgentAggregate("a1")
	err := aggregate.RestoreFromSnapshot(Snapshot{
		AggregateID: "a2",
		Version:     1,
		State:       []byte(`{}`),
	})
	require.Error(t, err)
}

func TestNewAggregateForType(t *testing.T) {
	for aggregateType, wantType := range map[string]string{
		AggregateAgent:  AggregateAgent,
		AggregateTask:   AggregateTask,
		AggregateMemory: AggregateMemory,
		AggregateSwarm:  AggregateSwarm,
	} {
		aggregate, err := NewAggregateForType(aggregateType, "x1")
		require.NoError(t, err)
		require.Equal(t, wantType, aggregate.GetType())
		require.Equal(t, "x1", aggregate.GetID())
		require.Equal(t, 0, aggregate.GetVersion())
	}

	_, err := NewAggregateForType("widget", "x1")
	require.Error(t, err)
}

func TestTaskAggregateRetryAndDuration(t *testing.T) {
	aggregate := NewTaskAggregate("t1")
	src := SourceCoordinator

	started := versionedEvent(t, func() (Event, error) {
		return NewTaskStartedEvent("t1", src, "a1")
	}, 3)

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewTaskCreatedEvent("t1", src, "work", 1)
	}, 1)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewTaskQueuedEvent("t1", src)
	}, 2)))
	require.NoError(t, aggregate.Apply(started))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewTaskFailedEvent("t1", src, "timeout")
	}, 4)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewTaskQueuedEvent("t1", src)
	}, 5)))

	require.Equal(t, 1, aggregate.State.RetryCount)
	require.Equal(t, TaskStatusQueued, aggregate.State.Status)

	completed := versionedEvent(t, func() (Event, error) {
		return NewTaskCompletedEvent("t1", src, 0, "ok")
	}, 6)
	completed.Timestamp = started.Timestamp.Add(2 * time.Second)
	require.NoError(t, aggregate.Apply(completed))
	require.Equal(t, int64(2000), aggregate.State.Duration)
}

func TestMemoryAggregateSoftDelete(t *testing.T) {
	aggregate := NewMemoryAggregate("k1")
	src := SourceCoordinator

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewMemoryStoredEvent("k1", src, "plans", 64)
	}, 1)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewMemoryRetrievedEvent("k1", src)
	}, 2)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewMemoryDeletedEvent("k1", src)
	}, 3)))

	require.True(t, aggregate.State.Deleted)
	require.Equal(t, 1, aggregate.State.AccessCount)
	require.Equal(t, "plans", aggregate.State.Namespace)
}

func TestSwarmAggregateLifecycle(t *testing.T) {
	aggregate := NewSwarmAggregate("s1")
	src := SourceCoordinator

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewSwarmInitializedEvent("s1", src, "mesh", 8)
	}, 1)))
	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewSwarmScaledEvent("s1", src, 4)
	}, 2)))

	require.True(t, aggregate.State.Running)
	require.Equal(t, "mesh", aggregate.State.Topology)
	require.Equal(t, 4, aggregate.State.TargetAgents)

	require.NoError(t, aggregate.Apply(versionedEvent(t, func() (Event, error) {
		return NewSwarmTerminatedEvent("s1", src, "done")
	}, 3)))
	require.False(t, aggregate.State.Running)
}

func TestEventFactoriesPopulateEnvelope(t *testing.T) {
	event, err := NewAgentSpawnedEvent("a1", SourceCoordinator, "worker", "default")
	require.NoError(t, err)

	require.NotEmpty(t, event.ID)
	require.Equal(t, AgentSpawned, event.Type)
	require.Equal(t, "a1", event.AggregateID)
	require.Equal(t, AggregateAgent, event.AggregateType)
	require.Equal(t, SourceCoordinator, event.Source)
	require.Zero(t, event.Version)
	require.Zero(t, event.Sequence)
	require.False(t, event.Timestamp.IsZero())
	require.NotEmpty(t, event.Payload)
}
