// internal/workspace/cache.go
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agency-workspace/internal/common/database"
	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/common/metrics"
	"agency-workspace/internal/models"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps the last successfully fetched record list in Redis so
// an outage of the agency backend degrades to stale data instead of an empty
// workspace.
type SnapshotCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSnapshotCache(redisClient *database.RedisClient, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{redis: redisClient, ttl: ttl}
}

func snapshotKey(organization string) string {
	return fmt.Sprintf("workspace:snapshot:%s", organization)
}

// Save stores the full record list for an organization.
func (c *SnapshotCache) Save(ctx context.Context, organization string, recs []models.RawRecord) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey(organization), data, c.ttl); err != nil {
		metrics.SnapshotCacheHits.WithLabelValues("error").Inc()
		return errors.NewCacheUnavailableError(err)
	}
	return nil
}

// Load returns the cached record list, or a cache-unavailable error on a
// miss or a Redis failure.
func (c *SnapshotCache) Load(ctx context.Context, organization string) ([]models.RawRecord, error) {
	data, err := c.redis.Get(ctx, snapshotKey(organization))
	if err == redis.Nil {
		metrics.SnapshotCacheHits.WithLabelValues("miss").Inc()
		return nil, errors.NewCacheUnavailableError(err)
	}
	if err != nil {
		metrics.SnapshotCacheHits.WithLabelValues("error").Inc()
		return nil, errors.NewCacheUnavailableError(err)
	}

	var recs []models.RawRecord
	if err := json.Unmarshal([]byte(data), &recs); err != nil {
		metrics.SnapshotCacheHits.WithLabelValues("error").Inc()
		return nil, errors.NewCacheUnavailableError(err)
	}

	metrics.SnapshotCacheHits.WithLabelValues("hit").Inc()
	return recs, nil
}

// Invalidate drops the cached snapshot for an organization.
func (c *SnapshotCache) Invalidate(ctx context.Context, organization string) error {
	return c.redis.Del(ctx, snapshotKey(organization))
}
