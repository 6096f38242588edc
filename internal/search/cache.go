package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/xplr/topicsearch/pkg/config"
	"github.com/xplr/topicsearch/pkg/logger"
	"github.com/xplr/topicsearch/pkg/metrics"
	pkgredis "github.com/xplr/topicsearch/pkg/redis"
)

const cacheKeyPrefix = "search:"

// QueryCache caches ranked URL lists in Redis, keyed by the normalized query
// terms and limit. Concurrent identical queries are deduplicated with
// singleflight. Cache problems degrade to direct search; they never fail a
// query.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		logger:  logger.WithComponent("query-cache"),
		metrics: m,
	}
}

// Get returns the cached URL list for the plan, if present.
func (c *QueryCache) Get(ctx context.Context, plan *QueryPlan, limit int) ([]string, bool) {
	key := c.buildKey(plan, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal([]byte(data), &urls); err != nil {
		c.logger.Warn("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return urls, true
}

// Set stores the URL list for the plan with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, plan *QueryPlan, limit int, urls []string) {
	key := c.buildKey(plan, limit)
	data, err := json.Marshal(urls)
	if err != nil {
		c.logger.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes, caches, and returns
// it. The second return value reports whether the result came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *QueryPlan,
	limit int,
	computeFn func() ([]string, error),
) ([]string, bool, error) {
	if urls, ok := c.Get(ctx, plan, limit); ok {
		return urls, true, nil
	}
	key := c.buildKey(plan, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		urls, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, limit, urls)
		return urls, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]string), false, nil
}

// Invalidate removes all cached query results. Called after an indexing run
// commits, so stale rankings do not outlive the data they were computed on.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts for this process.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the sorted terms and limit: the key is insensitive to term
// order and to raw-query formatting that tokenizes identically.
func (c *QueryCache) buildKey(plan *QueryPlan, limit int) string {
	terms := make([]string, len(plan.Terms))
	copy(terms, plan.Terms)
	sort.Strings(terms)
	raw := fmt.Sprintf("%s:limit=%d", strings.Join(terms, ","), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
