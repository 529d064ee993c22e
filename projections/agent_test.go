package projections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orchestrator/domain"
)

func appendAgentLifecycle(t *testing.T, store interface {
	Append(ctx context.Context, event *domain.Event) error
}, agentID string) {
	t.Helper()
	src := domain.SourceCoordinator

	for _, build := range []func() (domain.Event, error){
		func() (domain.Event, error) { return domain.NewAgentSpawnedEvent(agentID, src, "worker", "default") },
		func() (domain.Event, error) { return domain.NewAgentStartedEvent(agentID, src) },
		func() (domain.Event, error) { return domain.NewAgentTaskAssignedEvent(agentID, src, "t1") },
		func() (domain.Event, error) { return domain.NewAgentTaskCompletedEvent(agentID, src, "t1") },
	} {
		event, err := build()
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), &event))
	}
}

func TestAgentProjectionTaskLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendAgentLifecycle(t, store, "a1")

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))

	agent, ok := p.GetAgent("a1")
	require.True(t, ok)
	require.Equal(t, domain.AgentStatusIdle, agent.Status)
	require.Empty(t, agent.CurrentTask)
	require.Equal(t, []string{"t1"}, agent.CompletedTasks)
}

func TestAgentProjectionFailureKeepsCurrentTask(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	src := domain.SourceCoordinator
	add := appender(t, store)

	add(domain.NewAgentSpawnedEvent("a1", src, "worker", "default"))
	add(domain.NewAgentTaskAssignedEvent("a1", src, "t9"))
	add(domain.NewAgentFailedEvent("a1", src, "out of memory", "t9"))

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))

	agent, ok := p.GetAgent("a1")
	require.True(t, ok)
	require.Equal(t, domain.AgentStatusError, agent.Status)
	require.Equal(t, "t9", agent.CurrentTask)
	require.Equal(t, 1, agent.ErrorCount)
	require.Equal(t, "out of memory", agent.LastError)
	require.Equal(t, []string{"t9"}, agent.FailedTasks)
}

func TestAgentProjectionStopCompletes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	src := domain.SourceCoordinator
	add := appender(t, store)

	add(domain.NewAgentSpawnedEvent("a1", src, "worker", "default"))
	add(domain.NewAgentStartedEvent("a1", src))
	add(domain.NewAgentStoppedEvent("a1", src, "done"))

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))

	agent, ok := p.GetAgent("a1")
	require.True(t, ok)
	require.Equal(t, domain.AgentStatusCompleted, agent.Status)
}

func TestAgentProjectionReplayMatchesLiveHandling(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	src := domain.SourceCoordinator
	add := appender(t, store)

	live := NewAgentProjection(store)
	require.NoError(t, live.Initialize(ctx))

	events := []domain.Event{
		add(domain.NewAgentSpawnedEvent("a1", src, "worker", "default")),
		add(domain.NewAgentStartedEvent("a1", src)),
		add(domain.NewAgentTaskAssignedEvent("a1", src, "t1")),
		add(domain.NewAgentFailedEvent("a1", src, "boom", "t1")),
		add(domain.NewAgentSpawnedEvent("a2", src, "scout", "research")),
	}
	for _, event := range events {
		live.Handle(event)
	}

	replayed := NewAgentProjection(store)
	require.NoError(t, replayed.Initialize(ctx))

	require.Equal(t, replayed.ListAgents(""), live.ListAgents(""))
	require.Equal(t, replayed.CountByStatus(), live.CountByStatus())
}

func TestAgentProjectionHandleSkipsReplayedEvents(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	src := domain.SourceCoordinator
	add := appender(t, store)

	add(domain.NewAgentSpawnedEvent("a1", src, "worker", "default"))
	failed := add(domain.NewAgentFailedEvent("a1", src, "boom", ""))

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))

	// Re-delivering an already replayed event must not double-count
	p.Handle(failed)

	agent, ok := p.GetAgent("a1")
	require.True(t, ok)
	require.Equal(t, 1, agent.ErrorCount)
}

func TestAgentProjectionResetAndRebuild(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	appendAgentLifecycle(t, store, "a1")

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))
	before := p.ListAgents("")

	p.Reset()
	require.Empty(t, p.ListAgents(""))

	require.NoError(t, p.Initialize(ctx))
	require.Equal(t, before, p.ListAgents(""))
}

func TestAgentProjectionCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	src := domain.SourceCoordinator
	add := appender(t, store)

	add(domain.NewAgentSpawnedEvent("a1", src, "worker", "default"))
	add(domain.NewAgentStartedEvent("a1", src))
	add(domain.NewAgentSpawnedEvent("a2", src, "worker", "default"))
	add(domain.NewAgentTaskAssignedEvent("a2", src, "t1"))
	add(domain.NewAgentSpawnedEvent("a3", src, "worker", "default"))

	p := NewAgentProjection(store)
	require.NoError(t, p.Initialize(ctx))

	counts := p.CountByStatus()
	require.Equal(t, 1, counts[domain.AgentStatusActive])
	require.Equal(t, 1, counts[domain.AgentStatusBusy])
	require.Equal(t, 1, counts[domain.AgentStatusIdle])
	require.Equal(t, 2, p.ActiveCount())

	idle := p.ListAgents(domain.AgentStatusIdle)
	require.Len(t, idle, 1)
	require.Equal(t, "a3", idle[0].AgentID)
}
