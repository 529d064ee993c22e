package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/orchestrator/api"
	"example.com/backstage/services/orchestrator/cache"
	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/handlers"
	"example.com/backstage/services/orchestrator/notifications"
	"example.com/backstage/services/orchestrator/projections"
	"example.com/backstage/services/orchestrator/reconstructor"
	"example.com/backstage/services/orchestrator/tracing"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting server")

	// Initialize notification bus and event store
	bus := notifications.NewBus(256)
	store := eventstore.NewGormStore(cfg, bus)

	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event store")
	}

	// Initialize projections
	agentProjection := projections.NewAgentProjection(store)
	taskProjection := projections.NewTaskProjection(store)
	memoryProjection := projections.NewMemoryProjection(store)

	processor := projections.NewProcessor(store, bus, agentProjection, taskProjection, memoryProjection)
	if err := processor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start projection processor")
	}

	// Initialize snapshot cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize reconstructor
	var snapshotCache reconstructor.SnapshotCache
	if redisCache != nil {
		snapshotCache = redisCache
	}
	recon := reconstructor.New(store, snapshotCache, cfg)

	// Initialize command handlers
	agentHandler := handlers.NewAgentHandler(store)
	taskHandler := handlers.NewTaskHandler(store)
	memoryHandler := handlers.NewMemoryHandler(store)
	swarmHandler := handlers.NewSwarmHandler(store)

	// Initialize server
	server := api.NewServer(cfg, api.ServerDeps{
		Store:            store,
		Tracer:           tracer,
		AgentHandler:     agentHandler,
		TaskHandler:      taskHandler,
		MemoryHandler:    memoryHandler,
		SwarmHandler:     swarmHandler,
		AgentProjection:  agentProjection,
		TaskProjection:   taskProjection,
		MemoryProjection: memoryProjection,
		Reconstructor:    recon,
	})

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	processor.Stop()

	if err := store.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down event store")
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if tracer != nil {
		tracer.Close()
	}
	bus.Close()

	log.Info().Msg("Server exited properly")
}
