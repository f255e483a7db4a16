package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/logger"
	redisclient "github.com/richxcame/navigator/pkg/redis"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "navigation:route:"

// Cache stores fetched routes in Redis. Every failure is logged and treated
// as a miss; the provider stays the source of truth.
type Cache struct {
	redis redisclient.ClientInterface
	ttl   time.Duration
}

// NewCache returns nil when redis is nil or ttl is not positive, which
// disables caching.
func NewCache(redis redisclient.ClientInterface, ttl time.Duration) *Cache {
	if redis == nil || ttl <= 0 {
		return nil
	}
	return &Cache{redis: redis, ttl: ttl}
}

// Key rounds coordinates to five decimals (about one meter).
func (c *Cache) Key(req Request) string {
	return fmt.Sprintf("%s%s:%.5f,%.5f:%.5f,%.5f", cacheKeyPrefix, req.Mode,
		req.Origin.Latitude, req.Origin.Longitude,
		req.Destination.Latitude, req.Destination.Longitude)
}

// Get returns a cached route for req.
func (c *Cache) Get(ctx context.Context, req Request) (navigation.Route, bool) {
	if c == nil {
		return navigation.Route{}, false
	}
	key := c.Key(req)
	raw, err := c.redis.GetString(ctx, key)
	if err != nil {
		if !redisclient.IsNil(err) {
			logger.WithContext(ctx).Warn("route cache read failed", zap.String("key", key), zap.Error(err))
		}
		return navigation.Route{}, false
	}

	var route navigation.Route
	err = json.Unmarshal([]byte(raw), &route)
	if err == nil {
		err = route.Validate()
	}
	if err != nil {
		logger.WithContext(ctx).Warn("discarding corrupt cached route", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return navigation.Route{}, false
	}
	return route, true
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.redis.Delete(ctx, key); err != nil {
		logger.WithContext(ctx).Warn("route cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

// Set stores route under req's key.
func (c *Cache) Set(ctx context.Context, req Request, route navigation.Route) {
	if c == nil {
		return
	}
	data, err := json.Marshal(route)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to encode route for cache", zap.Error(err))
		return
	}
	if err := c.redis.SetWithExpiration(ctx, c.Key(req), string(data), c.ttl); err != nil {
		logger.WithContext(ctx).Warn("route cache write failed", zap.Error(err))
	}
}
