// Command navsim replays a route against an in-process navigation engine and
// prints the guidance a traveler would get along the way.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/guidance"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/internal/replay"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/richxcame/navigator/pkg/logger"
)

func main() {
	var (
		routeFile   = flag.String("route", "", "path to a route JSON file")
		origin      = flag.String("origin", "", "origin as lat,lng (fetches a route)")
		destination = flag.String("destination", "", "destination as lat,lng (fetches a route)")
		mode        = flag.String("mode", "driving", "travel mode for fetched routes")
		spacing     = flag.Float64("spacing", replay.DefaultSpacingMeters, "meters between simulated fixes")
		speed       = flag.Float64("speed", replay.DefaultSpeedMps, "simulated speed in m/s")
		interval    = flag.Duration("interval", 0, "wall-clock pause between fixes")
		voice       = flag.Bool("voice", true, "print spoken guidance")
		kmlOut      = flag.String("kml", "", "also write the route as KML to this file")
		verbose     = flag.Bool("v", false, "log engine internals")
	)
	flag.Parse()

	_ = godotenv.Load()
	env := "production"
	if *verbose {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	route, err := loadRoute(ctx, *routeFile, *origin, *destination, *mode)
	if err != nil {
		logger.Fatal("Failed to load route", zap.Error(err))
	}

	if *kmlOut != "" {
		if err := writeKML(*kmlOut, route); err != nil {
			logger.Fatal("Failed to write KML", zap.Error(err))
		}
	}

	engineLog := zap.NewNop()
	if *verbose {
		engineLog = logger.Get()
	}

	fmt.Printf("Route: %s, %s, %d steps\n", route.Distance.Formatted(), route.Duration.Formatted(), len(route.Steps))

	res, err := replay.Run(ctx, route, replay.Options{
		Spacing:  *spacing,
		Speed:    *speed,
		Interval: *interval,
		Voice:    *voice,
		Logger:   engineLog,
		OnEvent: func(e navigation.Event) {
			fmt.Printf("%s  %-22s %s\n", e.At.Format("15:04:05"), e.Kind, describe(e))
		},
		OnUtterance: func(u guidance.Utterance) {
			fmt.Printf("          >> %q\n", u.Text)
		},
	})
	if err != nil {
		logger.Error("Replay stopped", zap.Error(err))
	}

	final := res.Final
	fmt.Printf("\n%d fixes, state %s, step %d/%d, %.0f%% done, %s remaining\n",
		res.Fixes, final.State, final.StepIndex+1, final.StepCount,
		final.ProgressPercentage, final.RemainingDistance.Text)
}

func describe(e navigation.Event) string {
	switch e.Kind {
	case navigation.EventInstructionUpdate:
		return fmt.Sprintf("%s (%s)", e.Instruction, navigation.FormatDistance(float64(e.DistanceMeters)))
	case navigation.EventOffRoute:
		return fmt.Sprintf("%d m from route", e.DistanceMeters)
	default:
		return fmt.Sprintf("step %d", e.StepIndex+1)
	}
}

func loadRoute(ctx context.Context, file, origin, destination, mode string) (navigation.Route, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return navigation.Route{}, err
		}
		var route navigation.Route
		if err := json.Unmarshal(data, &route); err != nil {
			return navigation.Route{}, fmt.Errorf("decode %s: %w", file, err)
		}
		return route, route.Validate()
	}

	if origin == "" || destination == "" {
		return navigation.Route{}, fmt.Errorf("either -route or both -origin and -destination are required")
	}
	from, err := parseLatLng(origin)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("origin: %w", err)
	}
	to, err := parseLatLng(destination)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("destination: %w", err)
	}
	travelMode, ok := directions.ParseTravelMode(mode, directions.ModeDriving)
	if !ok {
		return navigation.Route{}, fmt.Errorf("unknown travel mode %q", mode)
	}

	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return navigation.Route{}, fmt.Errorf("GOOGLE_MAPS_API_KEY is required to fetch a route")
	}
	client := directions.NewClient(directions.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("DIRECTIONS_BASE_URL"),
		Timeout: 15 * time.Second,
	})
	return client.GetRoute(ctx, directions.Request{Origin: from, Destination: to, Mode: travelMode})
}

func parseLatLng(raw string) (geo.Coordinate, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("expected lat,lng, got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude %q", parts[1])
	}
	return geo.Coordinate{Latitude: lat, Longitude: lng}, nil
}

func writeKML(path string, route navigation.Route) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := directions.WriteKML(f, "navsim route", route); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
