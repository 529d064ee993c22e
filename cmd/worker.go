package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/orchestrator/cache"
	"example.com/backstage/services/orchestrator/domain"
	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/messaging"
	"example.com/backstage/services/orchestrator/notifications"
	"example.com/backstage/services/orchestrator/reconstructor"
	"example.com/backstage/services/orchestrator/search"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that takes recommended snapshots, mirrors events to search, and forwards notifications`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Initialize notification bus and event store
	bus := notifications.NewBus(256)
	store := eventstore.NewGormStore(cfg, bus)
	if err := store.Initialize(ctx); err != nil {
		return err
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	var snapshotCache reconstructor.SnapshotCache
	if redisCache != nil {
		snapshotCache = redisCache
	}
	recon := reconstructor.New(store, snapshotCache, cfg)

	// Take snapshots when the store recommends them
	recommended := bus.Subscribe(notifications.TopicSnapshotRecommended)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case n, ok := <-recommended:
				if !ok {
					return nil
				}
				takeRecommendedSnapshot(ctx, recon, n)
			}
		}
	})

	// Forward notifications to Azure Service Bus
	if cfg.Azure.Enabled {
		sbClient, err := messaging.NewServiceBusClient(cfg.Azure, domain.SourceCoordinator)
		if err != nil {
			return err
		}
		defer sbClient.Close()

		forwarder := messaging.NewForwarder(sbClient, bus)
		forwarder.Start()
	}

	// Mirror events into Elasticsearch
	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		} else {
			indexer := search.NewIndexer(elasticClient, store, bus)
			if err := indexer.Start(ctx); err != nil {
				return err
			}
			defer indexer.Stop()
		}
	}

	// Run a periodic persist as a fallback in case the store's own
	// timer is disabled, and log store stats while at it
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.FallbackInterval),
			gocron.NewTask(func() {
				if err := store.Persist(ctx); err != nil {
					log.Error().Err(err).Msg("Fallback persist failed")
					return
				}
				stats, err := store.GetStats(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to read store stats")
					return
				}
				log.Info().
					Int64("events", stats.TotalEvents).
					Int64("aggregates", stats.AggregateCount).
					Int64("snapshots", stats.SnapshotCount).
					Msg("Event store persisted")
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	bus.Close()
	if err := store.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shut down event store")
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis cache")
		}
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// takeRecommendedSnapshot reconstructs the aggregate, which persists a
// snapshot when the aggregate sits on a snapshot boundary
func takeRecommendedSnapshot(ctx context.Context, recon *reconstructor.Reconstructor, n notifications.Notification) {
	aggregateType := strings.SplitN(n.EventType, ":", 2)[0]
	if _, err := domain.NewAggregateForType(aggregateType, n.AggregateID); err != nil {
		log.Warn().Str("eventType", n.EventType).Msg("Skipping snapshot for unknown aggregate type")
		return
	}

	_, err := recon.Reconstruct(ctx, n.AggregateID, func(id string) domain.Aggregate {
		aggregate, err := domain.NewAggregateForType(aggregateType, id)
		if err != nil {
			return nil
		}
		return aggregate
	})
	if err != nil {
		log.Error().Err(err).
			Str("aggregateID", n.AggregateID).
			Msg("Failed to take recommended snapshot")
		return
	}

	log.Debug().Str("aggregateID", n.AggregateID).Msg("Recommended snapshot taken")
}
