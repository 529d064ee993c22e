package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/orchestrator/eventstore"
	"example.com/backstage/services/orchestrator/notifications"
)

var (
	replayAggregateID string
	replayFromVersion int
	replayStats       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Dump events from the store",
	Long:  `Replay the event log to stdout as JSON lines, either the full log or a single aggregate's stream`,
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayAggregateID, "aggregate-id", "", "dump one aggregate's stream")
	replayCmd.Flags().IntVar(&replayFromVersion, "from-version", 0, "start version for an aggregate stream")
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "print store statistics instead of events")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	bus := notifications.NewBus(16)
	store := eventstore.NewGormStore(cfg, bus)
	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down event store")
		}
	}()

	encoder := json.NewEncoder(os.Stdout)

	if replayStats {
		stats, err := store.GetStats(ctx)
		if err != nil {
			return err
		}
		return encoder.Encode(stats)
	}

	if replayAggregateID != "" {
		events, err := store.GetEvents(ctx, replayAggregateID, replayFromVersion)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := encoder.Encode(event); err != nil {
				return err
			}
		}
		return nil
	}

	replayer, err := store.Replay(ctx, 0)
	if err != nil {
		return err
	}

	count := 0
	for {
		event, ok, err := replayer.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := encoder.Encode(event); err != nil {
			return err
		}
		count++
	}

	fmt.Fprintf(os.Stderr, "replayed %d events\n", count)
	return nil
}
