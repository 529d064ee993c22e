package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
)

// Command structs
type StoreMemoryCommand struct {
	Key           string `json:"key"`
	Namespace     string `json:"namespace"`
	Size          int64  `json:"size"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type RetrieveMemoryCommand struct {
	Key           string `json:"key"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type DeleteMemoryCommand struct {
	Key           string `json:"key"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

type ExpireMemoryCommand struct {
	Key           string `json:"key"`
	Source        string `json:"source"`
	CausationID   string `json:"causation_id"`
	CorrelationID string `json:"correlation_id"`
}

// MemoryHandler turns memory layer commands into appended events.
// Deletion and expiry are recorded as events; no row is ever removed.
type MemoryHandler struct {
	store eventstore.EventStore
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(store eventstore.EventStore) *MemoryHandler {
	return &MemoryHandler{store: store}
}

func (h *MemoryHandler) append(ctx context.Context, event domain.Event, err error, causationID, correlationID string) error {
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

// HandleStoreMemory records an entry written to the memory layer
func (h *MemoryHandler) HandleStoreMemory(ctx context.Context, cmd StoreMemoryCommand) error {
	log.Info().Str("key", cmd.Key).Str("namespace", cmd.Namespace).Msg("Handling StoreMemory command")

	event, err := domain.NewMemoryStoredEvent(cmd.Key, eventSource(cmd.Source), cmd.Namespace, cmd.Size)
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleRetrieveMemory records an entry read
func (h *MemoryHandler) HandleRetrieveMemory(ctx context.Context, cmd RetrieveMemoryCommand) error {
	log.Debug().Str("key", cmd.Key).Msg("Handling RetrieveMemory command")

	event, err := domain.NewMemoryRetrievedEvent(cmd.Key, eventSource(cmd.Source))
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleDeleteMemory records an entry soft-deleted by a caller
func (h *MemoryHandler) HandleDeleteMemory(ctx context.Context, cmd DeleteMemoryCommand) error {
	log.Info().Str("key", cmd.Key).Msg("Handling DeleteMemory command")

	event, err := domain.NewMemoryDeletedEvent(cmd.Key, eventSource(cmd.Source))
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}

// HandleExpireMemory records an entry soft-deleted by TTL expiry
func (h *MemoryHandler) HandleExpireMemory(ctx context.Context, cmd ExpireMemoryCommand) error {
	log.Info().Str("key", cmd.Key).Msg("Handling ExpireMemory command")

	event, err := domain.NewMemoryExpiredEvent(cmd.Key, eventSource(cmd.Source))
	return h.append(ctx, event, err, cmd.CausationID, cmd.CorrelationID)
}
