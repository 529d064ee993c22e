package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/handlers"
)

// EventRequest is the envelope for a command submission
type EventRequest struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// receiveAgentEvents processes agent lifecycle commands
func (s *Server) receiveAgentEvents(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	switch req.EventType {
	case "SpawnAgent":
		var cmd handlers.SpawnAgentCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cmd.AgentID == "" {
			cmd.AgentID = uuid.New().String()
		}
		if err := s.agentHandler.HandleSpawnAgent(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle SpawnAgent command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event processed successfully", "agent_id": cmd.AgentID})
		return

	case "StartAgent":
		var cmd handlers.StartAgentCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleStartAgent(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle StartAgent command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "StopAgent":
		var cmd handlers.StopAgentCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleStopAgent(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle StopAgent command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "FailAgent":
		var cmd handlers.FailAgentCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleFailAgent(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle FailAgent command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "ChangeAgentStatus":
		var cmd handlers.ChangeAgentStatusCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleChangeAgentStatus(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle ChangeAgentStatus command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "AssignTask":
		var cmd handlers.AssignTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleAssignTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle AssignTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "CompleteAgentTask":
		var cmd handlers.CompleteAgentTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.agentHandler.HandleCompleteAgentTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle CompleteAgentTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported event type"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event processed successfully"})
}

// getAgent returns one agent's projected state
func (s *Server) getAgent(c *gin.Context) {
	id := c.Param("id")

	agent, ok := s.agentProjection.GetAgent(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}

	c.JSON(http.StatusOK, agent)
}

// listAgents returns all agents, optionally filtered by status
func (s *Server) listAgents(c *gin.Context) {
	status := c.Query("status")
	c.JSON(http.StatusOK, gin.H{"agents": s.agentProjection.ListAgents(status)})
}

// getAgentStats returns agent counts by status
func (s *Server) getAgentStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"by_status": s.agentProjection.CountByStatus(),
		"active":    s.agentProjection.ActiveCount(),
	})
}
