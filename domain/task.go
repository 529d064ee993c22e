package domain

import (
	"encoding/json"
	"time"
)

// TaskState represents the current state of a task
type TaskState struct {
	TaskID      string    `json:"task_id"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	Status      string    `json:"status"`
	AgentID     string    `json:"agent_id,omitempty"`
	RetryCount  int       `json:"retry_count"`
	Error       string    `json:"error,omitempty"`
	Result      string    `json:"result,omitempty"`
	BlockedOn   string    `json:"blocked_on,omitempty"`
	Duration    int64     `json:"duration,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// TaskAggregate is the aggregate for a task
type TaskAggregate struct {
	*AggregateBase
	State TaskState
}

// NewTaskAggregate creates a new task aggregate
func NewTaskAggregate(id string) *TaskAggregate {
	aggregate := &TaskAggregate{
		State: TaskState{
			TaskID: id,
		},
	}

	aggregate.AggregateBase = NewAggregateBase(id, AggregateTask, aggregate.applyEvent, aggregate.restoreState)
	return aggregate
}

// GetState returns the marshaled task state for snapshotting
func (a *TaskAggregate) GetState() (json.RawMessage, error) {
	return json.Marshal(a.State)
}

func (a *TaskAggregate) restoreState(state json.RawMessage) error {
	return json.Unmarshal(state, &a.State)
}

// applyEvent applies an event to the task aggregate
func (a *TaskAggregate) applyEvent(event Event) error {
	switch event.Type {
	case TaskCreated:
		var payload TaskCreatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Description = payload.Description
		a.State.Priority = payload.Priority
		a.State.Status = TaskStatusPending
		a.State.CreatedAt = event.Timestamp

	case TaskQueued:
		// Re-queueing after a failure counts as a retry.
		if a.State.Status == TaskStatusFailed || a.State.Status == TaskStatusBlocked {
			a.State.RetryCount++
		}
		a.State.Status = TaskStatusQueued

	case TaskStarted:
		var payload TaskStartedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = TaskStatusInProgress
		a.State.AgentID = payload.AgentID
		a.State.StartedAt = event.Timestamp

	case TaskCompleted:
		var payload TaskCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = TaskStatusCompleted
		a.State.Result = payload.Result
		a.State.FinishedAt = event.Timestamp
		a.State.Duration = payload.Duration
		if a.State.Duration == 0 && !a.State.StartedAt.IsZero() {
			a.State.Duration = event.Timestamp.Sub(a.State.StartedAt).Milliseconds()
		}

	case TaskFailed:
		var payload TaskFailedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = TaskStatusFailed
		a.State.Error = payload.Error
		a.State.FinishedAt = event.Timestamp

	case TaskBlocked:
		var payload TaskBlockedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Status = TaskStatusBlocked
		a.State.BlockedOn = payload.BlockedOn
	}

	return nil
}
