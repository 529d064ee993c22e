package domain

import (
	"encoding/json"
	"fmt"
)

// Aggregate is the interface for all aggregates
type Aggregate interface {
	GetID() string
	GetType() string
	GetVersion() int
	Apply(event Event) error
	GetState() (json.RawMessage, error)
	RestoreFromSnapshot(snapshot Snapshot) error
}

// AggregateBase provides common aggregate functionality
type AggregateBase struct {
	id            string
	aggregateType string
	version       int
	applier       func(event Event) error
	restorer      func(state json.RawMessage) error
}

// NewAggregateBase creates a new aggregate base
func NewAggregateBase(id, aggregateType string, applier func(Event) error, restorer func(json.RawMessage) error) *AggregateBase {
	return &AggregateBase{
		id:            id,
		aggregateType: aggregateType,
		version:       0,
		applier:       applier,
		restorer:      restorer,
	}
}

// GetID returns the aggregate ID
func (a *AggregateBase) GetID() string {
	return a.id
}

// GetType returns the aggregate type
func (a *AggregateBase) GetType() string {
	return a.aggregateType
}

// GetVersion returns the version of the last applied event
func (a *AggregateBase) GetVersion() int {
	return a.version
}

// Apply folds a stored event into the aggregate state. Events must
// arrive in version order; out-of-order events are rejected.
func (a *AggregateBase) Apply(event Event) error {
	if a.applier == nil {
		return fmt.Errorf("applier is not set")
	}
	if event.AggregateID != a.id {
		return fmt.Errorf("event aggregate %s does not match aggregate %s", event.AggregateID, a.id)
	}
	if event.Version <= a.version {
		return fmt.Errorf("event version %d is not after aggregate version %d", event.Version, a.version)
	}

	if err := a.applier(event); err != nil {
		return fmt.Errorf("failed to apply event %s: %w", event.Type, err)
	}

	a.version = event.Version
	return nil
}

// RestoreFromSnapshot seeds the aggregate from a snapshot so replay can
// resume from the snapshot version instead of version zero.
func (a *AggregateBase) RestoreFromSnapshot(snapshot Snapshot) error {
	if a.restorer == nil {
		return fmt.Errorf("restorer is not set")
	}
	if snapshot.AggregateID != a.id {
		return fmt.Errorf("snapshot aggregate %s does not match aggregate %s", snapshot.AggregateID, a.id)
	}

	if err := a.restorer(snapshot.State); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	a.version = snapshot.Version
	return nil
}

// NewAggregateForType creates an empty aggregate of the given type
func NewAggregateForType(aggregateType, id string) (Aggregate, error) {
	switch aggregateType {
	case AggregateAgent:
		return NewAgentAggregate(id), nil
	case AggregateTask:
		return NewTaskAggregate(id), nil
	case AggregateMemory:
		return NewMemoryAggregate(id), nil
	case AggregateSwarm:
		return NewSwarmAggregate(id), nil
	default:
		return nil, fmt.Errorf("unknown aggregate type: %s", aggregateType)
	}
}
