package domain

import (
	"encoding/json"
	"time"
)

// SwarmState represents the current state of the swarm
type SwarmState struct {
	SwarmID       string    `json:"swarm_id"`
	Topology      string    `json:"topology,omitempty"`
	MaxAgents     int       `json:"max_agents,omitempty"`
	TargetAgents  int       `json:"target_agents,omitempty"`
	Running       bool      `json:"running"`
	InitializedAt time.Time `json:"initialized_at,omitempty"`
	TerminatedAt  time.Time `json:"terminated_at,omitempty"`
}

// SwarmAggregate is the aggregate for a swarm
type SwarmAggregate struct {
	*AggregateBase
	State SwarmState
}

// NewSwarmAggregate creates a new swarm aggregate
func NewSwarmAggregate(id string) *SwarmAggregate {
	aggregate := &SwarmAggregate{
		State: SwarmState{
			SwarmID: id,
		},
	}

	aggregate.AggregateBase = NewAggregateBase(id, AggregateSwarm, aggregate.applyEvent, aggregate.restoreState)
	return aggregate
}

// GetState returns the marshaled swarm state for snapshotting
func (a *SwarmAggregate) GetState() (json.RawMessage, error) {
	return json.Marshal(a.State)
}

func (a *SwarmAggregate) restoreState(state json.RawMessage) error {
	return json.Unmarshal(state, &a.State)
}

// applyEvent applies an event to the swarm aggregate
func (a *SwarmAggregate) applyEvent(event Event) error {
	switch event.Type {
	case SwarmInitialized:
		var payload SwarmInitializedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.Topology = payload.Topology
		a.State.MaxAgents = payload.MaxAgents
		a.State.TargetAgents = payload.MaxAgents
		a.State.Running = true
		a.State.InitializedAt = event.Timestamp

	case SwarmScaled:
		var payload SwarmScaledPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		a.State.TargetAgents = payload.TargetAgents

	case SwarmTerminated:
		a.State.Running = false
		a.State.TerminatedAt = event.Timestamp
	}

	return nil
}
