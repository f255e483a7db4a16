package directions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/richxcame/navigator/pkg/httpclient"
	"github.com/richxcame/navigator/pkg/logger"
	"github.com/richxcame/navigator/pkg/resilience"
	"go.uber.org/zap"
)

const (
	defaultBaseURL     = "https://maps.googleapis.com/maps/api"
	directionsEndpoint = "/directions/json"
	defaultTimeout     = 10 * time.Second
	statusOK           = "OK"
	breakerServiceName = "directions"
)

// Config configures the directions client.
type Config struct {
	APIKey  string
	BaseURL string
	Mode    TravelMode
	Timeout time.Duration
}

// Client fetches routes from the Google Directions API.
type Client struct {
	apiKey      string
	defaultMode TravelMode
	http        *httpclient.Client
	breaker     *resilience.CircuitBreaker
	cache       *Cache
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker guards provider calls with breaker.
func WithBreaker(breaker *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = breaker }
}

// WithCache serves repeated requests from cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithHTTPClient replaces the provider HTTP client.
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a directions client. Transient HTTP failures are retried
// with the default retry policy.
func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeDriving
	}

	c := &Client{
		apiKey:      cfg.APIKey,
		defaultMode: mode,
		http: httpclient.NewClient(baseURL, timeout,
			httpclient.WithName(breakerServiceName),
			httpclient.WithDefaultRetry(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRoute returns the first route's first leg between req.Origin and
// req.Destination.
func (c *Client) GetRoute(ctx context.Context, req Request) (navigation.Route, error) {
	if req.Mode == "" {
		req.Mode = c.defaultMode
	}

	if route, ok := c.cache.Get(ctx, req); ok {
		return route, nil
	}

	resp, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*directionsResponse, error) {
		return c.fetch(ctx, req)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return navigation.Route{}, err
		}
		return navigation.Route{}, fmt.Errorf("directions request failed: %w", err)
	}

	if resp.Status != statusOK {
		return navigation.Route{}, &APIError{Status: resp.Status, Message: resp.ErrorMessage}
	}
	if len(resp.Routes) == 0 {
		return navigation.Route{}, ErrNoRouteFound
	}

	route, err := resp.Routes[0].toRoute()
	if err != nil {
		return navigation.Route{}, err
	}

	logger.WithContext(ctx).Info("route fetched",
		zap.String("mode", string(req.Mode)),
		zap.Int("steps", len(route.Steps)),
		zap.Int("distance_meters", route.Distance.Meters),
		zap.Int("duration_seconds", route.Duration.Seconds),
	)

	c.cache.Set(ctx, req, route)
	return route, nil
}

// fetch performs the HTTP call. Provider statuses are inspected by the caller
// so that answers like ZERO_RESULTS never count against the breaker.
func (c *Client) fetch(ctx context.Context, req Request) (*directionsResponse, error) {
	params := url.Values{}
	params.Set("origin", formatCoordinate(req.Origin))
	params.Set("destination", formatCoordinate(req.Destination))
	params.Set("mode", string(req.Mode))
	params.Set("key", c.apiKey)
	params.Set("alternatives", "false")
	params.Set("units", "metric")

	var resp directionsResponse
	if err := c.http.GetJSON(ctx, directionsEndpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func formatCoordinate(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
