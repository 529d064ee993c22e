package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Command structs
type InitializeSwarmCommand struct {
	SwarmID       string `json:"swarm_id"`
	Topology      string `json:"topology"`
	MaxAgents     int    `json:"max_agents"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type ScaleSwarmCommand struct {
	SwarmID       string `json:"swarm_id"`
	TargetAgents  int    `json:"target_agents"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type TerminateSwarmCommand struct {
	SwarmID       string `json:"swarm_id"`
	Reason        string `json:"reason"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

// SwarmHandler turns swarm lifecycle commands into appended events
type SwarmHandler struct {
	store eventstore.EventStore
}

// NewSwarmHandler creates a new swarm handler
func NewSwarmHandler(store eventstore.EventStore) *SwarmHandler {
	return &SwarmHandler{store: store}
}

func (h *SwarmHandler) append(ctx context.Context, event domain.Event, err error, causationID, correlationID string) error {
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

// HandleInitializeSwarm records the swarm coming up
func (h *SwarmHandler) HandleInitializeSwarm(ctx context.Context, cmd InitializeSwarmCommand) error {
	log.Info().Str("swarmID", cmd.SwarmID).Str("topology", cmd.Topology).Msg("Handling InitializeSwarm command")

	event, err := domain.NewSwarmInitializedEvent(cmd.SwarmID, eventSource(cmd.Source), cmd.Topology, cmd.MaxAgents)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleScaleSwarm records a change in target agent count
func (h *SwarmHandler) HandleScaleSwarm(ctx context.Context, cmd ScaleSwarmCommand) error {
	log.Info().Str("swarmID", cmd.SwarmID).Int("targetAgents", cmd.TargetAgents).Msg("Handling ScaleSwarm command")

	event, err := domain.NewSwarmScaledEvent(cmd.SwarmID, eventSource(cmd.Source), cmd.TargetAgents)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleTerminateSwarm records the swarm shutting down
func (h *SwarmHandler) HandleTerminateSwarm(ctx context.Context, cmd TerminateSwarmCommand) error {
	log.Info().Str("swarmID", cmd.SwarmID).Msg("Handling TerminateSwarm command")

	event, err := domain.NewSwarmTerminatedEvent(cmd.SwarmID, eventSource(cmd.Source), cmd.Reason)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}
