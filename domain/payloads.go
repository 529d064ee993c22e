package domain

// Payload structs, one per event type. Every payload carries a
// schema_version so a payload shape can evolve without touching the
// events table schema; readers branch on it when a second version of a
// shape is introduced. All current shapes are version 1.

const payloadSchemaVersion = 1

// Agent payloads

// AgentSpawnedPayload records the creation of an agent.
type AgentSpawnedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	Name          string `json:"name,omitempty"`
	Profile       string `json:"profile,omitempty"`
}

// AgentStartedPayload records an agent beginning work.
type AgentStartedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
}

// AgentStoppedPayload records an agent finishing its lifecycle.
type AgentStoppedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	Reason        string `json:"reason,omitempty"`
}

// AgentFailedPayload records an agent error. TaskID is set when the
// failure occurred while working a task.
type AgentFailedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	Error         string `json:"error"`
	TaskID        string `json:"task_id,omitempty"`
}

// AgentStatusChangedPayload records an explicit status transition.
type AgentStatusChangedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	Status        string `json:"status"`
}

// AgentTaskAssignedPayload records a task being handed to an agent.
type AgentTaskAssignedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	TaskID        string `json:"task_id"`
}

// AgentTaskCompletedPayload records an agent completing a task.
type AgentTaskCompletedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	AgentID       string `json:"agent_id"`
	TaskID        string `json:"task_id"`
}

// Task payloads

// TaskCreatedPayload records the creation of a task.
type TaskCreatedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
	Description   string `json:"description,omitempty"`
	Priority      int    `json:"priority,omitempty"`
}

// TaskQueuedPayload records a task entering the queue.
type TaskQueuedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
}

// TaskStartedPayload records a task starting on an agent.
type TaskStartedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
	AgentID       string `json:"agent_id"`
}

// TaskCompletedPayload records a task completing. Duration is
// milliseconds when the producer measured it; zero means the
// projection computes it from the start/complete timestamps.
type TaskCompletedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
	Duration      int64  `json:"duration,omitempty"`
	Result        string `json:"result,omitempty"`
}

// TaskFailedPayload records a task failure.
type TaskFailedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
	Error         string `json:"error"`
}

// TaskBlockedPayload records a task blocked on a dependency.
type TaskBlockedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	TaskID        string `json:"task_id"`
	Reason        string `json:"reason,omitempty"`
	BlockedOn     string `json:"blocked_on,omitempty"`
}

// Memory payloads

// MemoryStoredPayload records an entry written to the memory layer.
type MemoryStoredPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Key           string `json:"key"`
	Namespace     string `json:"namespace"`
	Size          int64  `json:"size"`
}

// MemoryRetrievedPayload records an entry read.
type MemoryRetrievedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Key           string `json:"key"`
}

// MemoryDeletedPayload records an entry soft-deleted by a caller.
type MemoryDeletedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Key           string `json:"key"`
}

// MemoryExpiredPayload records an entry soft-deleted by TTL expiry.
type MemoryExpiredPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Key           string `json:"key"`
}

// Swarm payloads

// SwarmInitializedPayload records the swarm coming up.
type SwarmInitializedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	SwarmID       string `json:"swarm_id"`
	Topology      string `json:"topology,omitempty"`
	MaxAgents     int    `json:"max_agents,omitempty"`
}

// SwarmScaledPayload records a change in target agent count.
type SwarmScaledPayload struct {
	SchemaVersion int    `json:"schema_version"`
	SwarmID       string `json:"swarm_id"`
	TargetAgents  int    `json:"target_agents"`
}

// SwarmTerminatedPayload records the swarm shutting down.
type SwarmTerminatedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	SwarmID       string `json:"swarm_id"`
	Reason        string `json:"reason,omitempty"`
}
