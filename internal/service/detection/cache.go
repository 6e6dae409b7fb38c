package detection

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/repository"
	"github.com/regionsvc/region-api/pkg/metrics"
)

const (
	cacheKey  = "region:detection:cache"
	mirrorKey = "result"
)

// Cache is the TTL-bounded persisted cache of the last detection
// result, with an in-memory mirror for I/O-free reads. Caching is
// strictly best-effort: persistence failures are logged and swallowed,
// never surfaced to the caller.
type Cache struct {
	store   repository.KVStore
	mirror  *gocache.Cache
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewCache(store repository.KVStore, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store:   store,
		mirror:  gocache.New(ttl, 10*time.Minute),
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Get returns the persisted result if it is younger than the TTL.
// Expired entries are evicted and reported as absent, as are
// malformed entries and store read failures.
func (c *Cache) Get(ctx context.Context) *model.RegionDetectionResult {
	raw, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		c.metrics.CacheMisses.Inc()
		return nil
	}

	var entry model.CachedDetection
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Debug().Err(err).Msg("malformed cached detection, treating as absent")
		c.metrics.CacheMisses.Inc()
		return nil
	}

	age := c.now().UnixMilli() - entry.Timestamp
	if age >= c.ttl.Milliseconds() {
		c.logger.Debug().Int64("age_ms", age).Msg("cached detection expired")
		c.evict(ctx)
		c.metrics.CacheMisses.Inc()
		return nil
	}

	if !entry.Result.Valid() {
		c.metrics.CacheMisses.Inc()
		return nil
	}

	c.mirror.Set(mirrorKey, entry.Result, c.ttl)
	c.metrics.CacheHits.Inc()
	return &entry.Result
}

// Set persists the result with the current timestamp and updates the
// in-memory mirror.
func (c *Cache) Set(ctx context.Context, result model.RegionDetectionResult) {
	entry := model.CachedDetection{
		Result:    result,
		Timestamp: c.now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode detection for caching")
		return
	}
	if err := c.store.Set(ctx, cacheKey, string(raw)); err != nil {
		c.metrics.StoreOperations.WithLabelValues("set", "error").Inc()
		c.logger.Warn().Err(err).Msg("failed to persist detection cache")
	} else {
		c.metrics.StoreOperations.WithLabelValues("set", "ok").Inc()
	}
	c.mirror.Set(mirrorKey, result, c.ttl)
}

// Clear removes the persisted entry and the mirror.
func (c *Cache) Clear(ctx context.Context) {
	c.evict(ctx)
	c.mirror.Delete(mirrorKey)
}

// Cached returns the in-memory mirror without touching the store.
func (c *Cache) Cached() *model.RegionDetectionResult {
	if v, ok := c.mirror.Get(mirrorKey); ok {
		if result, ok := v.(model.RegionDetectionResult); ok {
			return &result
		}
	}
	return nil
}

func (c *Cache) evict(ctx context.Context) {
	if err := c.store.Remove(ctx, cacheKey); err != nil {
		c.metrics.StoreOperations.WithLabelValues("remove", "error").Inc()
		c.logger.Warn().Err(err).Msg("failed to evict detection cache")
		return
	}
	c.metrics.StoreOperations.WithLabelValues("remove", "ok").Inc()
}
