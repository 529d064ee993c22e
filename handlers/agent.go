package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Command structs
type SpawnAgentCommand struct {
	AgentID       string `json:"agent_id"`
	Name          string `json:"name"`
	Profile       string `json:"profile"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type StartAgentCommand struct {
	AgentID       string `json:"agent_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type StopAgentCommand struct {
	AgentID       string `json:"agent_id"`
	Reason        string `json:"reason"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type FailAgentCommand struct {
	AgentID       string `json:"agent_id"`
	Error         string `json:"error"`
	TaskID        string `json:"task_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type ChangeAgentStatusCommand struct {
	AgentID       string `json:"agent_id"`
	Status        string `json:"status"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type AssignTaskCommand struct {
	AgentID       string `json:"agent_id"`
	TaskID        string `json:"task_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type CompleteAgentTaskCommand struct {
	AgentID       string `json:"agent_id"`
	TaskID        string `json:"task_id"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

// AgentHandler turns agent lifecycle commands into appended events
type AgentHandler struct {
	store eventstore.EventStore
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(store eventstore.EventStore) *AgentHandler {
	return &AgentHandler{store: store}
}

func (h *AgentHandler) append(ctx context.Context, event domain.Event, err error, causationID, correlationID string) error {
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

// HandleSpawnAgent records a new agent joining the swarm
func (h *AgentHandler) HandleSpawnAgent(ctx context.Context, cmd SpawnAgentCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Msg("Handling SpawnAgent command")

	event, err := domain.NewAgentSpawnedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.Name, cmd.Profile)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleStartAgent records an agent beginning work
func (h *AgentHandler) HandleStartAgent(ctx context.Context, cmd StartAgentCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Msg("Handling StartAgent command")

	event, err := domain.NewAgentStartedEvent(cmd.AgentID, eventSource(cmd.Source))
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleStopAgent records an agent finishing its lifecycle
func (h *AgentHandler) HandleStopAgent(ctx context.Context, cmd StopAgentCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Msg("Handling StopAgent command")

	event, err := domain.NewAgentStoppedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.Reason)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleFailAgent records an agent error
func (h *AgentHandler) HandleFailAgent(ctx context.Context, cmd FailAgentCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Msg("Handling FailAgent command")

	event, err := domain.NewAgentFailedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.Error, cmd.TaskID)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleChangeAgentStatus records an explicit status transition
func (h *AgentHandler) HandleChangeAgentStatus(ctx context.Context, cmd ChangeAgentStatusCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Str("status", cmd.Status).Msg("Handling ChangeAgentStatus command")

	event, err := domain.NewAgentStatusChangedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.Status)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleAssignTask records a task being handed to an agent
func (h *AgentHandler) HandleAssignTask(ctx context.Context, cmd AssignTaskCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Str("taskID", cmd.TaskID).Msg("Handling AssignTask command")

	event, err := domain.NewAgentTaskAssignedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.TaskID)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleCompleteAgentTask records an agent completing its task
func (h *AgentHandler) HandleCompleteAgentTask(ctx context.Context, cmd CompleteAgentTaskCommand) error {
	log.Info().Str("agentID", cmd.AgentID).Str("taskID", cmd.TaskID).Msg("Handling CompleteAgentTask command")

	event, err := domain.NewAgentTaskCompletedEvent(cmd.AgentID, eventSource(cmd.Source), cmd.TaskID)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// eventSource defaults a missing source to the swarm coordinator
func eventSource(source string) string {
	if source == "" {
		return domain.SourceCoordinator
	}
	return source
}
