package directions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/richxcame/navigator/pkg/httpclient"
	"github.com/richxcame/navigator/pkg/resilience"
	"github.com/richxcame/navigator/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	origin      = geo.Coordinate{Latitude: 1.28, Longitude: 103.85}
	corner      = geo.Coordinate{Latitude: 1.29, Longitude: 103.85}
	destination = geo.Coordinate{Latitude: 1.29, Longitude: 103.86}
)

func toLatLng(c geo.Coordinate) latLng { return latLng{Lat: c.Latitude, Lng: c.Longitude} }

func sampleResponse() directionsResponse {
	return directionsResponse{
		Status: "OK",
		Routes: []directionsRoute{{
			Summary:          "Main St",
			OverviewPolyline: polylineData{Points: geo.EncodePolyline([]geo.Coordinate{origin, corner, destination})},
			Bounds:           boundsData{Northeast: toLatLng(destination), Southwest: toLatLng(origin)},
			Warnings:         []string{"Walking directions are in beta."},
			Legs: []routeLeg{{
				Distance: textValue{Text: "2.2 km", Value: 2225},
				Duration: textValue{Text: "5 mins", Value: 300},
				Steps: []stepData{
					{
						HTMLInstructions: "Head <b>north</b> on Main St",
						Distance:         textValue{Text: "1.1 km", Value: 1112},
						Duration:         textValue{Text: "2 mins", Value: 150},
						StartLocation:    toLatLng(origin),
						EndLocation:      toLatLng(corner),
						Polyline:         polylineData{Points: geo.EncodePolyline([]geo.Coordinate{origin, corner})},
					},
					{
						HTMLInstructions: "Turn <b>right</b> onto Orchard Rd",
						Distance:         textValue{Text: "1.1 km", Value: 1113},
						Duration:         textValue{Text: "3 mins", Value: 150},
						StartLocation:    toLatLng(corner),
						EndLocation:      toLatLng(destination),
						Polyline:         polylineData{Points: geo.EncodePolyline([]geo.Coordinate{corner, destination})},
						Maneuver:         "turn-right",
					},
				},
			}},
		}},
	}
}

type providerStub struct {
	server *httptest.Server
	hits   atomic.Int32
	last   atomic.Pointer[http.Request]
}

func newProvider(t *testing.T, status int, body interface{}) *providerStub {
	t.Helper()
	p := &providerStub{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		p.last.Store(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func newTestClient(p *providerStub, opts ...Option) *Client {
	opts = append([]Option{WithHTTPClient(httpclient.NewClient(p.server.URL, time.Second))}, opts...)
	return NewClient(Config{APIKey: "test-key", BaseURL: p.server.URL}, opts...)
}

func request() Request {
	return Request{Origin: origin, Destination: destination}
}

func TestGetRoute_ConvertsFirstRouteAndLeg(t *testing.T) {
	p := newProvider(t, http.StatusOK, sampleResponse())
	client := newTestClient(p)

	route, err := client.GetRoute(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "Main St", route.Summary)
	assert.Equal(t, navigation.Distance{Meters: 2225, Text: "2.2 km"}, route.Distance)
	assert.Equal(t, navigation.Duration{Seconds: 300, Text: "5 mins"}, route.Duration)
	assert.Equal(t, destination, route.Bounds.Northeast)
	assert.Equal(t, []string{"Walking directions are in beta."}, route.Warnings)
	require.Len(t, route.Steps, 2)

	first, second := route.Steps[0], route.Steps[1]
	assert.Equal(t, "Head <b>north</b> on Main St", first.Instruction)
	assert.Equal(t, navigation.ManeuverUnknown, first.Maneuver)
	assert.Equal(t, navigation.ManeuverTurnRight, second.Maneuver)
	assert.Equal(t, "1.1 km", second.Distance.Text)
	assert.Equal(t, corner, first.EndLocation)
	assert.Equal(t, destination, second.EndLocation)

	req := p.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "/directions/json", req.URL.Path)
	q := req.URL.Query()
	assert.Equal(t, "1.28,103.85", q.Get("origin"))
	assert.Equal(t, "1.29,103.86", q.Get("destination"))
	assert.Equal(t, "driving", q.Get("mode"))
	assert.Equal(t, "test-key", q.Get("key"))
	assert.Equal(t, "false", q.Get("alternatives"))
	assert.Equal(t, "metric", q.Get("units"))
}

func TestGetRoute_ModeOverride(t *testing.T) {
	p := newProvider(t, http.StatusOK, sampleResponse())
	client := newTestClient(p)

	req := request()
	req.Mode = ModeWalking
	_, err := client.GetRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "walking", p.last.Load().URL.Query().Get("mode"))
}

func TestGetRoute_Errors(t *testing.T) {
	noLegs := sampleResponse()
	noLegs.Routes[0].Legs = nil

	noSteps := sampleResponse()
	noSteps.Routes[0].Legs[0].Steps = nil

	tests := []struct {
		name   string
		status int
		body   interface{}
		check  func(t *testing.T, err error)
	}{
		{
			name:   "http error",
			status: http.StatusForbidden,
			body:   map[string]string{"error": "forbidden"},
			check: func(t *testing.T, err error) {
				var httpErr *httpclient.HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
			},
		},
		{
			name:   "api status",
			status: http.StatusOK,
			body:   directionsResponse{Status: "REQUEST_DENIED", ErrorMessage: "The provided API key is invalid."},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "REQUEST_DENIED", apiErr.Status)
				assert.Contains(t, err.Error(), "API key is invalid")
			},
		},
		{
			name:   "zero results",
			status: http.StatusOK,
			body:   directionsResponse{Status: "ZERO_RESULTS"},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "ZERO_RESULTS", apiErr.Status)
			},
		},
		{
			name:   "ok without routes",
			status: http.StatusOK,
			body:   directionsResponse{Status: "OK"},
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoRouteFound) },
		},
		{
			name:   "route without legs",
			status: http.StatusOK,
			body:   noLegs,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidRouteData) },
		},
		{
			name:   "leg without steps",
			status: http.StatusOK,
			body:   noSteps,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidRouteData) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, tt.status, tt.body)
			_, err := newTestClient(p).GetRoute(context.Background(), request())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetRoute_OpenBreakerSkipsProvider(t *testing.T) {
	p := newProvider(t, http.StatusForbidden, nil)
	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "directions-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, nil)
	client := newTestClient(p, WithBreaker(breaker))

	_, err := client.GetRoute(context.Background(), request())
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)

	_, err = client.GetRoute(context.Background(), request())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(1), p.hits.Load())
}

func TestGetRoute_ProviderStatusDoesNotTripBreaker(t *testing.T) {
	p := newProvider(t, http.StatusOK, directionsResponse{Status: "ZERO_RESULTS"})
	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "directions-status-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, nil)
	client := newTestClient(p, WithBreaker(breaker))

	for i := 0; i < 3; i++ {
		_, err := client.GetRoute(context.Background(), request())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}
	assert.True(t, breaker.Allow())
	assert.Equal(t, int32(3), p.hits.Load())
}

func TestGetRoute_CacheMissStoresRoute(t *testing.T) {
	p := newProvider(t, http.StatusOK, sampleResponse())
	redisMock := new(mocks.MockRedisClient)
	cache := NewCache(redisMock, 10*time.Minute)
	client := newTestClient(p, WithCache(cache))

	req := request()
	req.Mode = ModeDriving
	key := cache.Key(req)
	assert.Equal(t, "navigation:route:driving:1.28000,103.85000:1.29000,103.86000", key)

	redisMock.On("GetString", mock.Anything, key).Return("", goredis.Nil)
	redisMock.On("SetWithExpiration", mock.Anything, key, mock.AnythingOfType("string"), 10*time.Minute).Return(nil)

	_, err := client.GetRoute(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.hits.Load())
	redisMock.AssertExpectations(t)
}

func TestGetRoute_CacheHitSkipsProvider(t *testing.T) {
	p := newProvider(t, http.StatusOK, sampleResponse())
	route, err := sampleResponse().Routes[0].toRoute()
	require.NoError(t, err)
	cached, err := json.Marshal(route)
	require.NoError(t, err)

	redisMock := new(mocks.MockRedisClient)
	redisMock.On("GetString", mock.Anything, mock.Anything).Return(string(cached), nil)
	client := newTestClient(p, WithCache(NewCache(redisMock, time.Minute)))

	got, err := client.GetRoute(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, route, got)
	assert.Equal(t, int32(0), p.hits.Load())
}

func TestGetRoute_CacheFailuresAreIgnored(t *testing.T) {
	p := newProvider(t, http.StatusOK, sampleResponse())
	redisMock := new(mocks.MockRedisClient)
	redisMock.On("GetString", mock.Anything, mock.Anything).Return("{not json", nil)
	redisMock.On("Delete", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	redisMock.On("SetWithExpiration", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused"))
	cache := NewCache(redisMock, time.Minute)
	client := newTestClient(p, WithCache(cache))

	route, err := client.GetRoute(context.Background(), request())
	require.NoError(t, err)
	assert.Len(t, route.Steps, 2)
	assert.Equal(t, int32(1), p.hits.Load())

	req := request()
	req.Mode = ModeDriving
	redisMock.AssertCalled(t, "Delete", mock.Anything, []string{cache.Key(req)})
}

func TestNewCache_Disabled(t *testing.T) {
	assert.Nil(t, NewCache(nil, time.Minute))
	assert.Nil(t, NewCache(new(mocks.MockRedisClient), 0))

	var c *Cache
	_, ok := c.Get(context.Background(), request())
	assert.False(t, ok)
	c.Set(context.Background(), request(), navigation.Route{})
}

func TestParseTravelMode(t *testing.T) {
	mode, ok := ParseTravelMode("", ModeDriving)
	assert.True(t, ok)
	assert.Equal(t, ModeDriving, mode)

	mode, ok = ParseTravelMode(" Walking ", ModeDriving)
	assert.True(t, ok)
	assert.Equal(t, ModeWalking, mode)

	_, ok = ParseTravelMode("flying", ModeDriving)
	assert.False(t, ok)
}
