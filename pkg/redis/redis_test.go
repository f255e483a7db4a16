package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient() (*Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &Client{Client: db}, mock
}

func TestClient_SetAndGet(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectSet("navigation:route:abc", "payload", 10*time.Minute).SetVal("OK")
	mock.ExpectGet("navigation:route:abc").SetVal("payload")
	mock.ExpectGet("navigation:route:missing").RedisNil()

	require.NoError(t, client.SetWithExpiration(ctx, "navigation:route:abc", "payload", 10*time.Minute))

	got, err := client.GetString(ctx, "navigation:route:abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	_, err = client.GetString(ctx, "navigation:route:missing")
	assert.True(t, IsNil(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GeoIndex(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectGeoAdd("navigation:positions", &goredis.GeoLocation{
		Name: "s1", Longitude: 103.85, Latitude: 1.29,
	}).SetVal(1)
	mock.ExpectGeoRadius("navigation:positions", 103.85, 1.29, &goredis.GeoRadiusQuery{
		Radius: 2, Unit: "km", WithCoord: true, WithDist: true, Count: 10, Sort: "ASC",
	}).SetVal([]goredis.GeoLocation{{Name: "s1", Dist: 0.01, Longitude: 103.85, Latitude: 1.29}})
	mock.ExpectZRem("navigation:positions", "s1").SetVal(1)

	require.NoError(t, client.GeoAdd(ctx, "navigation:positions", 103.85, 1.29, "s1"))

	members, err := client.GeoRadius(ctx, "navigation:positions", 103.85, 1.29, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []GeoMember{{Name: "s1", DistanceKm: 0.01, Longitude: 103.85, Latitude: 1.29}}, members)

	require.NoError(t, client.GeoRemove(ctx, "navigation:positions", "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRedisRetryable(t *testing.T) {
	assert.False(t, isRedisRetryable(nil))
	assert.False(t, isRedisRetryable(goredis.Nil))
	assert.False(t, isRedisRetryable(errors.New("WRONGTYPE Operation against a key")))
	assert.True(t, isRedisRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, isRedisRetryable(errors.New("LOADING Redis is loading the dataset")))
}
