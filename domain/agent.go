package domain

import (
	"encoding/json"
	"time"
)

// AgentState represents the current state of an agent
type AgentState struct {
	AgentID        string    `json:"agent_id"`
	Name           string    `json:"name,omitempty"`
	Profile        string    `json:"profile,omitempty"`
	Status         string    `json:"status"`
	CurrentTask    string    `json:"current_task,omitempty"`
	CompletedTasks []string  `json:"completed_tasks,omitempty"`
	FailedTasks    []string  `json:"failed_tasks,omitempty"`
	ErrorCount     int       `json:"error_count"`
	LastError      string    `json:"last_error,omitempty"`
	SpawnedAt      time.Time `json:"spawned_at,omitempty"`
	LastActiveAt   time.Time `json:"last_active_at,omitempty"`
}

// AgentAggregate is the aggregate for an agent
type AgentAggregate struct {
	*AggregateBase
	State AgentState
}

// NewAgentAggregate creates a new agent aggregate
func NewAgentAggregate(id string) *AgentAggregate {
	aggregate := &AgentAggregate{
		State: AgentState{
			AgentID: id,
		},
	}

	aggregate.AggregateBase = NewAggregateBase(id, AggregateAgent, aggregate.applyEvent, aggregate.restoreState)
	return aggregate
}

// GetState returns the marshaled agent state for snapshotting
func (a *AgentAggregate) GetState() (json.RawMessage, error) {
	return json.Marshal(a.State)
}

func (a *AgentAggregate) restoreState(state json.RawMessage) error {
	return json.Unmarshal(state, &a.State)
}

// applyEvent applies an event to the agent aggregate
func (a *AgentAggregate) applyEvent(event Event) error {
	a.State.LastActiveAt = event.Timestamp

	switch event.Type {
	case AgentSpawned:
		var payload AgentSpawnedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Name = payload.Name
		a.State.Profile = payload.Profile
		a.State.Status = AgentStatusIdle
		a.State.SpawnedAt = event.Timestamp

	case AgentStarted:
		a.State.Status = AgentStatusActive

	case AgentStopped:
		a.State.Status = AgentStatusCompleted
		a.State.CurrentTask = ""

	case AgentFailed:
		// The current task is kept so the coordinator can see what
		// the agent was working on when it failed.
		var payload AgentFailedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = AgentStatusError
		a.State.LastError = payload.Error
		a.State.ErrorCount++
		if payload.TaskID != "" {
			a.State.FailedTasks = append(a.State.FailedTasks, payload.TaskID)
		}

	case AgentStatusChanged:
		var payload AgentStatusChangedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = payload.Status

	case AgentTaskAssigned:
		var payload AgentTaskAssignedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = AgentStatusBusy
		a.State.CurrentTask = payload.TaskID

	case AgentTaskCompleted:
		var payload AgentTaskCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = AgentStatusIdle
		a.State.CurrentTask = ""
		a.State.CompletedTasks = append(a.State.CompletedTasks, payload.TaskID)
	}

	return nil
}
