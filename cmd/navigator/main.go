package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/location"
	"github.com/richxcame/navigator/internal/session"
	"github.com/richxcame/navigator/pkg/common"
	"github.com/richxcame/navigator/pkg/config"
	"github.com/richxcame/navigator/pkg/eventbus"
	"github.com/richxcame/navigator/pkg/logger"
	"github.com/richxcame/navigator/pkg/middleware"
	redisclient "github.com/richxcame/navigator/pkg/redis"
	"github.com/richxcame/navigator/pkg/resilience"
	ws "github.com/richxcame/navigator/pkg/websocket"
)

const (
	serviceName = "navigator"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting navigation service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	var (
		redisClient *redisclient.Client
		bus         *eventbus.Bus
	)

	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}()
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))
	}

	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.Name = serviceName
		busCfg.StreamName = cfg.NATS.Stream
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()
	}

	hub := ws.NewHub(logger.Get())
	go hub.Run()
	defer hub.Stop()
	logger.Info("WebSocket hub started")

	opts := []session.Option{session.WithBroadcaster(hub)}
	if bus != nil {
		opts = append(opts, session.WithPublisher(bus))
	}
	if redisClient != nil {
		opts = append(opts, session.WithPositions(redisClient))
	}
	if routes := newDirectionsClient(cfg, redisClient); routes != nil {
		opts = append(opts, session.WithRouteSource(routes))
	}

	defaultMode, _ := directions.ParseTravelMode(cfg.Directions.Mode, directions.ModeDriving)
	service := session.NewService(session.Config{
		MaxActive:   cfg.Session.MaxActive,
		IdleTTL:     cfg.Session.IdleTTL(),
		DefaultMode: defaultMode,
		Filter: location.Config{
			MaxAge:                cfg.Location.FixMaxAge(),
			MaxAccuracyMeters:     cfg.Location.FixMaxAccuracyMeters,
			MinDisplacementMeters: cfg.Location.FixMinDisplacementMeters,
		},
		Location: time.Local,
	}, opts...)
	service.RegisterSocketHandlers(hub)
	go service.RunSweeper(rootCtx, cfg.Session.SweepInterval())

	handler := session.NewHandler(service, hub, cfg.Server.AllowedOrigins())

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName, "/health/live", "/health/ready", "/metrics"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := make(map[string]func() error)
	if redisClient != nil {
		healthChecks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		}
	}
	if bus != nil {
		healthChecks["nats"] = func() error {
			if !bus.Connected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Websocket upgrades must not sit behind the request timeout.
	stream := router.Group("/api/v1/navigation")
	handler.RegisterSocketRoute(stream)

	api := router.Group("/api/v1/navigation", middleware.RequestTimeout(cfg.Server.RequestTimeout()))
	handler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// newDirectionsClient returns nil when no API key is configured; sessions
// then need an inline route.
func newDirectionsClient(cfg *config.Config, redisClient *redisclient.Client) *directions.Client {
	if cfg.Directions.APIKey == "" {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, sessions require an inline route")
		return nil
	}

	mode, _ := directions.ParseTravelMode(cfg.Directions.Mode, directions.ModeDriving)
	var opts []directions.Option
	if cfg.Resilience.CircuitBreaker.Enabled {
		settings := cfg.Resilience.CircuitBreaker.SettingsFor("directions")
		opts = append(opts, directions.WithBreaker(resilience.NewCircuitBreaker(
			resilience.BuildSettings("directions", settings), nil,
		)))
		logger.Info("Circuit breaker configured for directions provider",
			zap.Int("failure_threshold", settings.FailureThreshold),
			zap.Int("timeout_seconds", settings.TimeoutSeconds),
		)
	}
	if redisClient != nil {
		if cache := directions.NewCache(redisClient, cfg.Directions.CacheTTL()); cache != nil {
			opts = append(opts, directions.WithCache(cache))
		}
	}

	return directions.NewClient(directions.Config{
		APIKey:  cfg.Directions.APIKey,
		BaseURL: cfg.Directions.BaseURL,
		Mode:    mode,
		Timeout: cfg.Directions.Timeout(),
	}, opts...)
}
