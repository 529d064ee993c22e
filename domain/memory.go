package domain

import (
	"encoding/json"
	"time"
)

// MemoryState represents the current state of a memory entry
type MemoryState struct {
	Key          string    `json:"key"`
	Namespace    string    `json:"namespace,omitempty"`
	Size         int64     `json:"size"`
	AccessCount  int       `json:"access_count"`
	Deleted      bool      `json:"deleted"`
	StoredAt     time.Time `json:"stored_at,omitempty"`
	LastAccessAt time.Time `json:"last_access_at,omitempty"`
}

// MemoryAggregate is the aggregate for a memory entry
type MemoryAggregate struct {
	*AggregateBase
	State MemoryState
}

// NewMemoryAggregate creates a new memory aggregate
func NewMemoryAggregate(key string) *MemoryAggregate {
	aggregate := &MemoryAggregate{
		State: MemoryState{
			Key: key,
		},
	}

	aggregate.AggregateBase = NewAggregateBase(key, AggregateMemory, aggregate.applyEvent, aggregate.restoreState)
	return aggregate
}

// GetState returns the marshaled memory state for snapshotting
func (a *MemoryAggregate) GetState() (json.RawMessage, error) {
	return json.Marshal(a.State)
}

func (a *MemoryAggregate) restoreState(state json.RawMessage) error {
	return json.Unmarshal(state, &a.State)
}

// applyEvent applies an event to the memory aggregate
func (a *MemoryAggregate) applyEvent(event Event) error {
	switch event.Type {
	case MemoryStored:
		var payload MemoryStoredPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Namespace = payload.Namespace
		a.State.Size = payload.Size
		a.State.Deleted = false
		a.State.StoredAt = event.Timestamp

	case MemoryRetrieved:
		a.State.AccessCount++
		a.State.LastAccessAt = event.Timestamp

	case MemoryDeleted, MemoryExpired:
		a.State.Deleted = true
	}

	return nil
}
