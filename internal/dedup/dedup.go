// Package dedup implements the DedupCache: a hot, TTL-bounded existence
// set keyed by (source, source_id), used by the Ingester to short-circuit
// the authoritative ArticleStore check. Every operation here is soft-fail:
// an unavailable cache must never block ingestion, only make checking more
// expensive by falling through to the authoritative store.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"contentpulse/internal/metrics"
)

const keyPrefix = "dedup:seen:"

// ttl matches spec.md §3's DedupEntry: a fixed 3600-second window.
const ttl = 3600 * time.Second

// Cache wraps a Redis client and exposes the two DedupCache operations.
type Cache struct {
	rdb *redis.Client
	log *slog.Logger
}

// New creates a Redis client and verifies the connection with a PING.
func New(addr string, log *slog.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{rdb: rdb, log: log.With("component", "dedup")}, nil
}

// Close shuts down the underlying connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func key(source, sourceID string) string {
	return keyPrefix + source + ":" + sourceID
}

// Exists reports whether (source, source_id) has been seen. Any backend
// error is treated as a miss, deferring to the authoritative ArticleStore
// check rather than blocking or erroring out.
func (c *Cache) Exists(ctx context.Context, source, sourceID string) bool {
	n, err := c.rdb.Exists(ctx, key(source, sourceID)).Result()
	if err != nil {
		c.log.Warn("dedup exists check failed, deferring to article store", "error", err, "source", source)
		metrics.DedupCacheResult.WithLabelValues("error").Inc()
		return false
	}
	if n > 0 {
		metrics.DedupCacheResult.WithLabelValues("hit").Inc()
		return true
	}
	metrics.DedupCacheResult.WithLabelValues("miss").Inc()
	return false
}

// MarkSeen sets the key with the fixed TTL. Refresh on repeated calls is
// allowed by contract. Errors are logged and swallowed.
func (c *Cache) MarkSeen(ctx context.Context, source, sourceID string) {
	if err := c.rdb.Set(ctx, key(source, sourceID), "1", ttl).Err(); err != nil {
		c.log.Warn("dedup mark_seen failed", "error", err, "source", source)
	}
}
