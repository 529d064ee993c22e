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

// receiveSwarmEvents processes swarm lifecycle commands
func (s *Server) receiveSwarmEvents(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	switch req.EventType {
	case "InitializeSwarm":
		var cmd handlers.InitializeSwarmCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cmd.SwarmID == "" {
			cmd.SwarmID = uuid.New().String()
		}
		if err := s.swarmHandler.HandleInitializeSwarm(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle InitializeSwarm command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event processed successfully", "swarm_id": cmd.SwarmID})
		return

	case "ScaleSwarm":
		var cmd handlers.ScaleSwarmCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.swarmHandler.HandleScaleSwarm(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle ScaleSwarm command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "TerminateSwarm":
		var cmd handlers.TerminateSwarmCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.swarmHandler.HandleTerminateSwarm(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle TerminateSwarm command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported event type"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event processed successfully"})
}
