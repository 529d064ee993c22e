package projections

import (
	"encoding/json"
	"sort"
	"time"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// TaskTransition records one status change in a task's history
type TaskTransition struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskRecord is a task's current state plus its status history
type TaskRecord struct {
	domain.TaskState
	History []TaskTransition `json:"history,omitempty"`
}

// TaskProjection maintains the status history of every task
type TaskProjection struct {
	base
	tasks map[string]*TaskRecord
}

// NewTaskProjection creates a task history projection
func NewTaskProjection(store eventstore.EventStore) *TaskProjection {
	p := &TaskProjection{
		tasks: make(map[string]*TaskRecord),
	}
	p.base = base{
		name:  "task-history",
		store: store,
		apply: p.applyEvent,
		clear: func() { p.tasks = make(map[string]*TaskRecord) },
	}
	return p
}

func (p *TaskProjection) applyEvent(event domain.Event) {
	if event.AggregateType != domain.AggregateTask {
		return
	}

	task, ok := p.tasks[event.AggregateID]
	if !ok {
		task = &TaskRecord{TaskState: domain.TaskState{TaskID: event.AggregateID}}
		p.tasks[event.AggregateID] = task
	}

	switch event.Type {
	case domain.TaskCreated:
		var payload domain.TaskCreatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		task.Description = payload.Description
		task.Priority = payload.Priority
		task.Status = domain.TaskStatusPending
		task.CreatedAt = event.Timestamp

	case domain.TaskQueued:
		if task.Status == domain.TaskStatusFailed || task.Status == domain.TaskStatusBlocked {
			task.RetryCount++
		}
		task.Status = domain.TaskStatusQueued

	case domain.TaskStarted:
		var payload domain.TaskStartedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		task.Status = domain.TaskStatusInProgress
		task.AgentID = payload.AgentID
		task.StartedAt = event.Timestamp

	case domain.TaskCompleted:
		var payload domain.TaskCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		task.Status = domain.TaskStatusCompleted
		task.Result = payload.Result
		task.FinishedAt = event.Timestamp
		task.Duration = payload.Duration
		if task.Duration == 0 && !task.StartedAt.IsZero() {
			task.Duration = event.Timestamp.Sub(task.StartedAt).Milliseconds()
		}

	case domain.TaskFailed:
		var payload domain.TaskFailedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		task.Status = domain.TaskStatusFailed
		task.Error = payload.Error
		task.FinishedAt = event.Timestamp

	case domain.TaskBlocked:
		var payload domain.TaskBlockedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		task.Status = domain.TaskStatusBlocked
		task.BlockedOn = payload.BlockedOn

	default:
		return
	}

	task.History = append(task.History, TaskTransition{
		Status:    task.Status,
		Timestamp: event.Timestamp,
	})
}

// GetTask returns one task's record
func (p *TaskProjection) GetTask(taskID string) (TaskRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	task, ok := p.tasks[taskID]
	if !ok {
		return TaskRecord{}, false
	}
	return cloneTask(task), true
}

// ListTasks returns tasks filtered by status and assigned agent,
// ordered by creation time
func (p *TaskProjection) ListTasks(status, agentID string) []TaskRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tasks := make([]TaskRecord, 0, len(p.tasks))
	for _, task := range p.tasks {
		if status != "" && task.Status != status {
			continue
		}
		if agentID != "" && task.AgentID != agentID {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].TaskID < tasks[j].TaskID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// CountByStatus returns task counts keyed by status
func (p *TaskProjection) CountByStatus() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	counts := make(map[string]int)
	for _, task := range p.tasks {
		counts[task.Status]++
	}
	return counts
}

// CompletedCount returns the number of completed tasks
func (p *TaskProjection) CompletedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, task := range p.tasks {
		if task.Status == domain.TaskStatusCompleted {
			count++
		}
	}
	return count
}

func cloneTask(task *TaskRecord) TaskRecord {
	clone := *task
	clone.History = append([]TaskTransition(nil), task.History...)
	return clone
}
