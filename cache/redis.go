package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"example.com/backstage/services/orchestrator/config"
	"example.com/backstage/services/orchestrator/domain"
)

// RedisCache keeps recent snapshots in Redis so reconstruction does not
// hit the snapshot table on every call. A disabled or unreachable cache
// behaves as a permanent miss.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewRedisCache creates a new Redis snapshot cache
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		ttl:     cfg.TTL,
		enabled: true,
	}, nil
}

// GetSnapshotCacheKey generates a cache key for an aggregate's snapshot
func GetSnapshotCacheKey(aggregateID string) string {
	return fmt.Sprintf("snapshot:%s", aggregateID)
}

// Get retrieves a cached snapshot. A miss returns nil, not an error.
func (c *RedisCache) Get(ctx context.Context, aggregateID string) (*domain.Snapshot, error) {
	if !c.enabled {
		return nil, nil
	}

	data, err := c.client.Get(ctx, GetSnapshotCacheKey(aggregateID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get snapshot from Redis")
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal cached snapshot")
	}

	return &snapshot, nil
}

// Set stores a snapshot in the cache
func (c *RedisCache) Set(ctx context.Context, snapshot domain.Snapshot) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot for caching")
	}

	if err := c.client.Set(ctx, GetSnapshotCacheKey(snapshot.AggregateID), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set snapshot in Redis")
	}

	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}

	return c.client.Close()
}
