package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newEvent builds an event envelope around a marshaled payload. The
// store fills Version and Sequence on append.
func newEvent(eventType, aggregateID, aggregateType, source string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Payload:       data,
	}, nil
}

// Agent event factories

func NewAgentSpawnedEvent(agentID, source, name, profile string) (Event, error) {
	return newEvent(AgentSpawned, agentID, AggregateAgent, source, AgentSpawnedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		Name:          name,
		Profile:       profile,
	})
}

func NewAgentStartedEvent(agentID, source string) (Event, error) {
	return newEvent(AgentStarted, agentID, AggregateAgent, source, AgentStartedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
	})
}

func NewAgentStoppedEvent(agentID, source, reason string) (Event, error) {
	return newEvent(AgentStopped, agentID, AggregateAgent, source, AgentStoppedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		Reason:        reason,
	})
}

func NewAgentFailedEvent(agentID, source, errMsg, taskID string) (Event, error) {
	return newEvent(AgentFailed, agentID, AggregateAgent, source, AgentFailedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		Error:         errMsg,
		TaskID:        taskID,
	})
}

func NewAgentStatusChangedEvent(agentID, source, status string) (Event, error) {
	return newEvent(AgentStatusChanged, agentID, AggregateAgent, source, AgentStatusChangedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		Status:        status,
	})
}

func NewAgentTaskAssignedEvent(agentID, source, taskID string) (Event, error) {
	return newEvent(AgentTaskAssigned, agentID, AggregateAgent, source, AgentTaskAssignedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		TaskID:        taskID,
	})
}

func NewAgentTaskCompletedEvent(agentID, source, taskID string) (Event, error) {
	return newEvent(AgentTaskCompleted, agentID, AggregateAgent, source, AgentTaskCompletedPayload{
		SchemaVersion: payloadSchemaVersion,
		AgentID:       agentID,
		TaskID:        taskID,
	})
}

// Task event factories

func NewTaskCreatedEvent(taskID, source, description string, priority int) (Event, error) {
	return newEvent(TaskCreated, taskID, AggregateTask, source, TaskCreatedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
		Description:   description,
		Priority:      priority,
	})
}

func NewTaskQueuedEvent(taskID, source string) (Event, error) {
	return newEvent(TaskQueued, taskID, AggregateTask, source, TaskQueuedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
	})
}

func NewTaskStartedEvent(taskID, source, agentID string) (Event, error) {
	return newEvent(TaskStarted, taskID, AggregateTask, source, TaskStartedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
		AgentID:       agentID,
	})
}

func NewTaskCompletedEvent(taskID, source string, duration int64, result string) (Event, error) {
	return newEvent(TaskCompleted, taskID, AggregateTask, source, TaskCompletedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
		Duration:      duration,
		Result:        result,
	})
}

func NewTaskFailedEvent(taskID, source, errMsg string) (Event, error) {
	return newEvent(TaskFailed, taskID, AggregateTask, source, TaskFailedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
		Error:         errMsg,
	})
}

func NewTaskBlockedEvent(taskID, source, reason, blockedOn string) (Event, error) {
	return newEvent(TaskBlocked, taskID, AggregateTask, source, TaskBlockedPayload{
		SchemaVersion: payloadSchemaVersion,
		TaskID:        taskID,
		Reason:        reason,
		BlockedOn:     blockedOn,
	})
}

// Memory event factories

func NewMemoryStoredEvent(key, source, namespace string, size int64) (Event, error) {
	return newEvent(MemoryStored, key, AggregateMemory, source, MemoryStoredPayload{
		SchemaVersion: payloadSchemaVersion,
		Key:           key,
		Namespace:     namespace,
		Size:          size,
	})
}

func NewMemoryRetrievedEvent(key, source string) (Event, error) {
	return newEvent(MemoryRetrieved, key, AggregateMemory, source, MemoryRetrievedPayload{
		SchemaVersion: payloadSchemaVersion,
		Key:           key,
	})
}

func NewMemoryDeletedEvent(key, source string) (Event, error) {
	return newEvent(MemoryDeleted, key, AggregateMemory, source, MemoryDeletedPayload{
		SchemaVersion: payloadSchemaVersion,
		Key:           key,
	})
}

func NewMemoryExpiredEvent(key, source string) (Event, error) {
	return newEvent(MemoryExpired, key, AggregateMemory, source, MemoryExpiredPayload{
		SchemaVersion: payloadSchemaVersion,
		Key:           key,
	})
}

// Swarm event factories

func NewSwarmInitializedEvent(swarmID, source, topology string, maxAgents int) (Event, error) {
	return newEvent(SwarmInitialized, swarmID, AggregateSwarm, source, SwarmInitializedPayload{
		SchemaVersion: payloadSchemaVersion,
		SwarmID:       swarmID,
		Topology:      topology,
		MaxAgents:     maxAgents,
	})
}

func NewSwarmScaledEvent(swarmID, source string, targetAgents int) (Event, error) {
	return newEvent(SwarmScaled, swarmID, AggregateSwarm, source, SwarmScaledPayload{
		SchemaVersion: payloadSchemaVersion,
		SwarmID:       swarmID,
		TargetAgents:  targetAgents,
	})
}

func NewSwarmTerminatedEvent(swarmID, source, reason string) (Event, error) {
	return newEvent(SwarmTerminated, swarmID, AggregateSwarm, source, SwarmTerminatedPayload{
		SchemaVersion: payloadSchemaVersion,
		SwarmID:       swarmID,
		Reason:        reason,
	})
}
