package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/handlers"
	"example.com/backstage/services/orchestrator/projections"
	"example.com/backstage/services/orchestrator/reconstructor"
	"example.com/backstage/services/orchestrator/tracing"
)

// Server is the HTTP server for the API
type Server struct {
	cfg        config.Config
	router     *gin.Engine
	httpServer *http.Server
	store      eventstore.EventStore
	tracer     tracing.Tracer

	agentHandler  *handlers.AgentHandler
	taskHandler   *handlers.TaskHandler
	memoryHandler *handlers.MemoryHandler
	swarmHandler  *handlers.SwarmHandler

	agentProjection  *projections.AgentProjection
	taskProjection   *projections.TaskProjection
	memoryProjection *projections.MemoryProjection

	reconstructor *reconstructor.Reconstructor
}

// ServerDeps bundles the collaborators the server exposes over HTTP
type ServerDeps struct {
	Store            eventstore.EventStore
	Tracer           tracing.Tracer
	AgentHandler     *handlers.AgentHandler
	TaskHandler      *handlers.TaskHandler
	MemoryHandler    *handlers.MemoryHandler
	SwarmHandler     *handlers.SwarmHandler
	AgentProjection  *projections.AgentProjection
	TaskProjection   *projections.TaskProjection
	MemoryProjection *projections.MemoryProjection
	Reconstructor    *reconstructor.Reconstructor
}

// NewServer creates a new API server
func NewServer(cfg config.Config, deps ServerDeps) *Server {
	server := &Server{
		cfg:              cfg,
		router:           gin.New(),
		store:            deps.Store,
		tracer:           deps.Tracer,
		agentHandler:     deps.AgentHandler,
		taskHandler:      deps.TaskHandler,
		memoryHandler:    deps.MemoryHandler,
		swarmHandler:     deps.SwarmHandler,
		agentProjection:  deps.AgentProjection,
		taskProjection:   deps.TaskProjection,
		memoryProjection: deps.MemoryProjection,
		reconstructor:    deps.Reconstructor,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware adds middleware to the router
func (s *Server) setupMiddleware() {
	s.router.Use(RequestIDMiddleware())

	if s.cfg.CorsEnabled {
		s.router.Use(CORSMiddleware())
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())

	if s.tracer != nil {
		s.router.Use(TracingMiddleware(s.tracer))
	}
}

// setupRoutes defines the API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	v1 := s.router.Group("/api/v1")

	// Agent routes
	agentRoutes := v1.Group("/agents")
	{
		agentRoutes.POST("/events", s.receiveAgentEvents)
		agentRoutes.GET("", s.listAgents)
		agentRoutes.GET("/stats", s.getAgentStats)
		agentRoutes.GET("/:id", s.getAgent)
	}

	// Task routes
	taskRoutes := v1.Group("/tasks")
	{
		taskRoutes.POST("/events", s.receiveTaskEvents)
		taskRoutes.GET("", s.listTasks)
		taskRoutes.GET("/stats", s.getTaskStats)
		taskRoutes.GET("/:id", s.getTask)
	}

	// Memory routes
	memoryRoutes := v1.Group("/memory")
	{
		memoryRoutes.POST("/events", s.receiveMemoryEvents)
		memoryRoutes.GET("/entries", s.listMemoryEntries)
		memoryRoutes.GET("/entries/:key", s.getMemoryEntry)
		memoryRoutes.GET("/most-accessed", s.getMostAccessedMemory)
		memoryRoutes.GET("/usage", s.getMemoryUsage)
	}

	// Swarm routes
	swarmRoutes := v1.Group("/swarm")
	{
		swarmRoutes.POST("/events", s.receiveSwarmEvents)
	}

	// Event store routes
	storeRoutes := v1.Group("/store")
	{
		storeRoutes.GET("/events", s.queryEvents)
		storeRoutes.GET("/stats", s.getStoreStats)
		storeRoutes.POST("/persist", s.persistStore)
	}

	// Aggregate reconstruction routes
	aggregateRoutes := v1.Group("/aggregates")
	{
		aggregateRoutes.GET("/:type/:id", s.reconstructAggregate)
		aggregateRoutes.GET("/:type/:id/events", s.getAggregateEvents)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPServerAddress,
		Handler: s.router,
	}

	log.Info().Msgf("HTTP server starting on %s", s.cfg.HTTPServerAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
