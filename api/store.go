package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/eventstore"
)

// queryEvents returns events matching the query parameters
func (s *Server) queryEvents(c *gin.Context) {
	filter := eventstore.Filter{
		AggregateID:   c.Query("aggregate_id"),
		AggregateType: c.Query("aggregate_type"),
		EventType:     c.Query("type"),
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		filter.Since = since
	}
	if raw := c.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must be RFC3339"})
			return
		}
		filter.Until = until
	}
	if raw := c.Query("min_version"); raw != "" {
		minVersion, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_version must be an integer"})
			return
		}
		filter.MinVersion = minVersion
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
			return
		}
		filter.Offset = offset
	}

	events, err := s.store.Query(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// getStoreStats returns log statistics
func (s *Server) getStoreStats(c *gin.Context) {
	stats, err := s.store.GetStats(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get store stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// persistStore flushes the store to disk
func (s *Server) persistStore(c *gin.Context) {
	if err := s.store.Persist(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to persist store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "store persisted"})
}
