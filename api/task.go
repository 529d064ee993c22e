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

// receiveTaskEvents processes task lifecycle commands
func (s *Server) receiveTaskEvents(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	switch req.EventType {
	case "CreateTask":
		var cmd handlers.CreateTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cmd.TaskID == "" {
			cmd.TaskID = uuid.New().String()
		}
		if err := s.taskHandler.HandleCreateTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle CreateTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "event processed successfully", "task_id": cmd.TaskID})
		return

	case "QueueTask":
		var cmd handlers.QueueTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.taskHandler.HandleQueueTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle QueueTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "StartTask":
		var cmd handlers.StartTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.taskHandler.HandleStartTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle StartTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "CompleteTask":
		var cmd handlers.CompleteTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.taskHandler.HandleCompleteTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle CompleteTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "FailTask":
		var cmd handlers.FailTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.taskHandler.HandleFailTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle FailTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "BlockTask":
		var cmd handlers.BlockTaskCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.taskHandler.HandleBlockTask(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle BlockTask command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported event type"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event processed successfully"})
}

// getTask returns one task's projected record
func (s *Server) getTask(c *gin.Context) {
	id := c.Param("id")

	task, ok := s.taskProjection.GetTask(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// listTasks returns tasks filtered by status and assigned agent
func (s *Server) listTasks(c *gin.Context) {
	status := c.Query("status")
	agentID := c.Query("agent_id")
	c.JSON(http.StatusOK, gin.H{"tasks": s.taskProjection.ListTasks(status, agentID)})
}

// getTaskStats returns task counts by status
func (s *Server) getTaskStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"by_status": s.taskProjection.CountByStatus(),
		"completed": s.taskProjection.CompletedCount(),
	})
}
