package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	SetConfigFile("")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "orchestrator.db", cfg.DBSource)
	require.Equal(t, 100, cfg.SnapshotFrequency)
	require.Equal(t, 10000, cfg.MaxReplayEvents)
	require.Equal(t, 30*time.Second, cfg.PersistInterval)

	require.Equal(t, "0.0.0.0:8080", cfg.HTTPServerAddress)
	require.True(t, cfg.CorsEnabled)

	require.Equal(t, 5*time.Minute, cfg.FallbackInterval)

	require.False(t, cfg.Redis.Enabled)
	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, time.Hour, cfg.Redis.TTL)

	require.False(t, cfg.Azure.Enabled)
	require.Equal(t, "orchestrator-notifications", cfg.Azure.QueueName)

	require.False(t, cfg.Elastic.Enabled)
	require.Equal(t, "orchestrator", cfg.Elastic.Prefix)

	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	SetConfigFile("")
	t.Setenv("ORCHESTRATOR_DATABASE_DRIVER", "postgres")
	t.Setenv("ORCHESTRATOR_STORE_SNAPSHOT_FREQUENCY", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, 25, cfg.SnapshotFrequency)
	// Untouched keys keep their defaults
	require.Equal(t, 10000, cfg.MaxReplayEvents)
}

func TestFormatIndex(t *testing.T) {
	cfg := ElasticConfig{Prefix: "orchestrator"}
	require.Equal(t, "orchestrator-events", FormatIndex(cfg, "events"))
}
