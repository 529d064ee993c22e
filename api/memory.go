package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/handlers"
)

// receiveMemoryEvents processes memory layer commands
func (s *Server) receiveMemoryEvents(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	switch req.EventType {
	case "StoreMemory":
		var cmd handlers.StoreMemoryCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.memoryHandler.HandleStoreMemory(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle StoreMemory command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "RetrieveMemory":
		var cmd handlers.RetrieveMemoryCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.memoryHandler.HandleRetrieveMemory(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle RetrieveMemory command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "DeleteMemory":
		var cmd handlers.DeleteMemoryCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.memoryHandler.HandleDeleteMemory(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle DeleteMemory command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	case "ExpireMemory":
		var cmd handlers.ExpireMemoryCommand
		if err := json.Unmarshal(req.Data, &cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.memoryHandler.HandleExpireMemory(ctx, cmd); err != nil {
			log.Error().Err(err).Msg("Failed to handle ExpireMemory command")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported event type"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event processed successfully"})
}

// getMemoryEntry returns one memory entry
func (s *Server) getMemoryEntry(c *gin.Context) {
	key := c.Param("key")

	entry, ok := s.memoryProjection.GetEntry(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory entry not found"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// listMemoryEntries returns live entries, optionally by namespace
func (s *Server) listMemoryEntries(c *gin.Context) {
	namespace := c.Query("namespace")
	c.JSON(http.StatusOK, gin.H{"entries": s.memoryProjection.ListByNamespace(namespace)})
}

// getMostAccessedMemory returns the n most retrieved entries
func (s *Server) getMostAccessedMemory(c *gin.Context) {
	n := 10
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}

	c.JSON(http.StatusOK, gin.H{"entries": s.memoryProjection.MostAccessed(n)})
}

// getMemoryUsage returns summed entry sizes per namespace
func (s *Server) getMemoryUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"usage": s.memoryProjection.TotalSizeByNamespace()})
}
