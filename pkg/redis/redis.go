package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/navigator/pkg/config"
)

// ErrNil is returned by GetString when the key does not exist.
var ErrNil = redis.Nil

// IsNil reports whether err is a cache miss.
func IsNil(err error) bool { return errors.Is(err, redis.Nil) }

// Client wraps the Redis client. Reads and writes retry transient failures.
type Client struct {
	*redis.Client
}

// GeoMember is one result of a radius query.
type GeoMember struct {
	Name       string
	DistanceKm float64
	Longitude  float64
	Latitude   float64
}

// NewRedisClient connects and pings the configured server.
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_, err := RetryableOperation(ctx, "redis.set", func(ctx context.Context) (string, error) {
		return c.Set(ctx, key, value, expiration).Result()
	})
	return err
}

// GetString returns the value at key, or ErrNil when it is absent.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return RetryableOperation(ctx, "redis.get", func(ctx context.Context) (string, error) {
		return c.Get(ctx, key).Result()
	})
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// GeoAdd places member at the given position in the index at key.
func (c *Client) GeoAdd(ctx context.Context, key string, longitude, latitude float64, member string) error {
	return c.Client.GeoAdd(ctx, key, &redis.GeoLocation{
		Longitude: longitude,
		Latitude:  latitude,
		Name:      member,
	}).Err()
}

// GeoRadius returns up to count members within radiusKm, nearest first.
func (c *Client) GeoRadius(ctx context.Context, key string, longitude, latitude, radiusKm float64, count int) ([]GeoMember, error) {
	locations, err := RetryableOperation(ctx, "redis.georadius", func(ctx context.Context) ([]redis.GeoLocation, error) {
		return c.Client.GeoRadius(ctx, key, longitude, latitude, &redis.GeoRadiusQuery{
			Radius:    radiusKm,
			Unit:      "km",
			WithCoord: true,
			WithDist:  true,
			Count:     count,
			Sort:      "ASC",
		}).Result()
	})
	if err != nil {
		return nil, err
	}

	members := make([]GeoMember, 0, len(locations))
	for _, loc := range locations {
		members = append(members, GeoMember{
			Name:       loc.Name,
			DistanceKm: loc.Dist,
			Longitude:  loc.Longitude,
			Latitude:   loc.Latitude,
		})
	}
	return members, nil
}

// GeoRemove removes a member from the geospatial index
func (c *Client) GeoRemove(ctx context.Context, key string, member string) error {
	return c.Client.ZRem(ctx, key, member).Err()
}

// Ping checks connectivity for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}
