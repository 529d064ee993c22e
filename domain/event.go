package domain

import (
	"encoding/json"
	"time"
)

// EventType constants
const (
	// Agent events
	AgentSpawned       = "agent:spawned"
	AgentStarted       = "agent:started"
	AgentStopped       = "agent:stopped"
	AgentFailed        = "agent:failed"
	AgentStatusChanged = "agent:status-changed"
	AgentTaskAssigned  = "agent:task-assigned"
	AgentTaskCompleted = "agent:task-completed"

	// Task events
	TaskCreated   = "task:created"
	TaskQueued    = "task:queued"
	TaskStarted   = "task:started"
	TaskCompleted = "task:completed"
	TaskFailed    = "task:failed"
	TaskBlocked   = "task:blocked"

	// Memory events
	MemoryStored    = "memory:stored"
	MemoryRetrieved = "memory:retrieved"
	MemoryDeleted   = "memory:deleted"
	MemoryExpired   = "memory:expired"

	// Swarm events
	SwarmInitialized = "swarm:initialized"
	SwarmScaled      = "swarm:scaled"
	SwarmTerminated  = "swarm:terminated"
)

// AggregateType constants
const (
	AggregateAgent  = "agent"
	AggregateTask   = "task"
	AggregateMemory = "memory"
	AggregateSwarm  = "swarm"
)

// SourceCoordinator identifies events produced by the swarm coordinator
// rather than an individual agent.
const SourceCoordinator = "swarm-coordinator"

// Agent status values
const (
	AgentStatusIdle       = "idle"
	AgentStatusActive     = "active"
	AgentStatusBusy       = "busy"
	AgentStatusError      = "error"
	AgentStatusCompleted  = "completed"
	AgentStatusTerminated = "terminated"
)

// Task status values
const (
	TaskStatusPending    = "pending"
	TaskStatusQueued     = "queued"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
	TaskStatusBlocked    = "blocked"
)

// Event represents an immutable domain event. Version and Sequence are
// assigned by the event store on append, never by the caller.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Sequence      uint64          `json:"sequence"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Snapshot is a point-in-time compression of an aggregate's state.
// Version is the last event folded into it.
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	Timestamp     time.Time       `json:"timestamp"`
}
