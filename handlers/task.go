package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Command structs
type CreateTaskCommand struct {
	TaskID        string `json:"task_id"`
	Description   string `json:"description"`
	Priority      int    `json:"priority"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type QueueTaskCommand struct {
	TaskID        string `json:"task_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type StartTaskCommand struct {
	TaskID        string `json:"task_id"`
	AgentID       string `json:"agent_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type CompleteTaskCommand struct {
	TaskID        string `json:"task_id"`
	Duration      int64  `json:"duration"`
	Result        string `json:"result"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type FailTaskCommand struct {
	TaskID        string `json:"task_id"`
	Error         string `json:"error"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type BlockTaskCommand struct {
	TaskID        string `json:"task_id"`
	Reason        string `json:"reason"`
	BlockedOn     string `json:"blocked_on"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

// TaskHandler turns task lifecycle commands into appended events
type TaskHandler struct {
	store eventstore.EventStore
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store eventstore.EventStore) *TaskHandler {
	return &TaskHandler{store: store}
}

func (h *TaskHandler) append(ctx context.Context, event domain.Event, err error, causationID, correlationID string) error {
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}

	event.CausationID = causationID
	event.CorrelationID = correlationID

	if err := h.store.Append(ctx, &event); err != nil {
		return fmt.Errorf("failed to append %s: %w", event.Type, err)
	}
	return nil
}

// HandleCreateTask records a new task
func (h *TaskHandler) HandleCreateTask(ctx context.Context, cmd CreateTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Msg("Handling CreateTask command")

	event, err := domain.NewTaskCreatedEvent(cmd.TaskID, eventSource(cmd.Source), cmd.Description, cmd.Priority)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleQueueTask records a task entering the queue
func (h *TaskHandler) HandleQueueTask(ctx context.Context, cmd QueueTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Msg("Handling QueueTask command")

	event, err := domain.NewTaskQueuedEvent(cmd.TaskID, eventSource(cmd.Source))
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleStartTask records a task starting on an agent
func (h *TaskHandler) HandleStartTask(ctx context.Context, cmd StartTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Str("agentID", cmd.AgentID).Msg("Handling StartTask command")

	event, err := domain.NewTaskStartedEvent(cmd.TaskID, eventSource(cmd.Source), cmd.AgentID)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleCompleteTask records a task completing
func (h *TaskHandler) HandleCompleteTask(ctx context.Context, cmd CompleteTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Msg("Handling CompleteTask command")

	event, err := domain.NewTaskCompletedEvent(cmd.TaskID, eventSource(cmd.Source), cmd.Duration, cmd.Result)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleFailTask records a task failure
func (h *TaskHandler) HandleFailTask(ctx context.Context, cmd FailTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Msg("Handling FailTask command")

	event, err := domain.NewTaskFailedEvent(cmd.TaskID, eventSource(cmd.Source), cmd.Error)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleBlockTask records a task blocked on a dependency
func (h *TaskHandler) HandleBlockTask(ctx context.Context, cmd BlockTaskCommand) error {
	log.Info().Str("taskID", cmd.TaskID).Msg("Handling BlockTask command")

	event, err := domain.NewTaskBlockedEvent(cmd.TaskID, eventSource(cmd.Source), cmd.Reason, cmd.BlockedOn)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}
