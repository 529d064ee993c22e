package projections

import (
	"encoding/json"
	"sort"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// AgentProjection maintains the current state of every agent
type AgentProjection struct {
	base
	agents map[string]*domain.AgentState
}

// NewAgentProjection creates an agent state projection
func NewAgentProjection(store eventstore.EventStore) *AgentProjection {
	p := &AgentProjection{
		agents: make(map[string]*domain.AgentState),
	}
	p.base = base{
		name:  "agent-state",
		store: store,
		apply: p.applyEvent,
		clear: func() { p.agents = make(map[string]*domain.AgentState) },
	}
	return p
}

func (p *AgentProjection) applyEvent(event domain.Event) {
	if event.AggregateType != domain.AggregateAgent {
		return
	}

	agent, ok := p.agents[event.AggregateID]
	if !ok {
		agent = &domain.AgentState{AgentID: event.AggregateID}
		p.agents[event.AggregateID] = agent
	}
	agent.LastActiveAt = event.Timestamp

	switch event.Type {
	case domain.AgentSpawned:
		var payload domain.AgentSpawnedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		agent.Name = payload.Name
		agent.Profile = payload.Profile
		agent.Status = domain.AgentStatusIdle
		agent.SpawnedAt = event.Timestamp

	case domain.AgentStarted:
		agent.Status = domain.AgentStatusActive

	case domain.AgentStopped:
		agent.Status = domain.AgentStatusCompleted
		agent.CurrentTask = ""

	case domain.AgentFailed:
		var payload domain.AgentFailedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		agent.Status = domain.AgentStatusError
		agent.LastError = payload.Error
		agent.ErrorCount++
		if payload.TaskID != "" {
			agent.FailedTasks = append(agent.FailedTasks, payload.TaskID)
		}

	case domain.AgentStatusChanged:
		var payload domain.AgentStatusChangedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		agent.Status = payload.Status

	case domain.AgentTaskAssigned:
		var payload domain.AgentTaskAssignedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		agent.Status = domain.AgentStatusBusy
		agent.CurrentTask = payload.TaskID

	case domain.AgentTaskCompleted:
		var payload domain.AgentTaskCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		agent.Status = domain.AgentStatusIdle
		agent.CurrentTask = ""
		agent.CompletedTasks = append(agent.CompletedTasks, payload.TaskID)
	}
}

// GetAgent returns one agent's state
func (p *AgentProjection) GetAgent(agentID string) (domain.AgentState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return domain.AgentState{}, false
	}
	return cloneAgent(agent), true
}

// ListAgents returns all agents, optionally filtered by status,
// ordered by agent ID for stable output
func (p *AgentProjection) ListAgents(status string) []domain.AgentState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	agents := make([]domain.AgentState, 0, len(p.agents))
	for _, agent := range p.agents {
		if status != "" && agent.Status != status {
			continue
		}
		agents = append(agents, cloneAgent(agent))
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID < agents[j].AgentID })
	return agents
}

// CountByStatus returns agent counts keyed by status
func (p *AgentProjection) CountByStatus() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	counts := make(map[string]int)
	for _, agent := range p.agents {
		counts[agent.Status]++
	}
	return counts
}

// ActiveCount returns the number of agents currently active or busy
func (p *AgentProjection) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, agent := range p.agents {
		if agent.Status == domain.AgentStatusActive || agent.Status == domain.AgentStatusBusy {
			count++
		}
	}
	return count
}

func cloneAgent(agent *domain.AgentState) domain.AgentState {
	clone := *agent
	clone.CompletedTasks = append([]string(nil), agent.CompletedTasks...)
	clone.FailedTasks = append([]string(nil), agent.FailedTasks...)
	return clone
}
