// Package replay drives a navigation engine along a route's own geometry,
// producing the fixes a traveler following the route would report.
package replay

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/richxcame/navigator/internal/guidance"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"go.uber.org/zap"
)

const (
	DefaultSpacingMeters = 20.0
	DefaultSpeedMps      = 13.9 // 50 km/h
	fixAccuracyMeters    = 5.0
	samePointMeters      = 0.5
)

var ErrNoTrack = errors.New("route has no geometry to replay")

// Options controls a replay. Zero values take the defaults.
type Options struct {
	Spacing     float64       // meters between fixes
	Speed       float64       // m/s, sets the simulated fix timestamps
	Interval    time.Duration // wall-clock pause between fixes, 0 replays at once
	Start       time.Time     // simulated time of the first fix
	Voice       bool
	Logger      *zap.Logger
	OnFix       func(i int, fix navigation.Fix)
	OnEvent     func(navigation.Event)
	OnUtterance func(guidance.Utterance)
}

// Result summarizes a finished replay.
type Result struct {
	Fixes      int
	Events     []navigation.Event
	Utterances []guidance.Utterance
	Final      navigation.Snapshot
}

// Track samples the route step by step so that consecutive points are at
// most spacing meters apart. Steps whose polyline cannot be decoded fall
// back to their start and end locations.
func Track(route navigation.Route, spacing float64) ([]geo.Coordinate, error) {
	if spacing <= 0 {
		spacing = DefaultSpacingMeters
	}

	var track []geo.Coordinate
	for _, step := range route.Steps {
		path, err := geo.DecodePolyline(step.Polyline)
		if err != nil || len(path) < 2 {
			path = []geo.Coordinate{step.StartLocation, step.EndLocation}
		}
		for i, p := range path {
			if len(track) == 0 {
				track = append(track, p)
				continue
			}
			if i == 0 && geo.Haversine(track[len(track)-1], p) < samePointMeters {
				continue
			}
			track = appendDensified(track, p, spacing)
		}
	}
	if len(track) == 0 {
		return nil, ErrNoTrack
	}
	return track, nil
}

func appendDensified(track []geo.Coordinate, to geo.Coordinate, spacing float64) []geo.Coordinate {
	from := track[len(track)-1]
	n := int(math.Ceil(geo.Haversine(from, to) / spacing))
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		track = append(track, geo.Interpolate(from, to, float64(i)/float64(n)))
	}
	return track
}

// Run replays route against a fresh engine until navigation completes, the
// track runs out or ctx is done.
func Run(ctx context.Context, route navigation.Route, opts Options) (Result, error) {
	if opts.Speed <= 0 {
		opts.Speed = DefaultSpeedMps
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	track, err := Track(route, opts.Spacing)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := opts.Start
	speaker := guidance.NewSpeaker()
	speaker.SetEnabled(opts.Voice)

	engine, err := navigation.NewEngine(route,
		navigation.WithClock(func() time.Time { return now }),
		navigation.WithLogger(opts.Logger),
		navigation.WithListener(navigation.ListenerFunc(func(e navigation.Event) {
			res.Events = append(res.Events, e)
			if opts.OnEvent != nil {
				opts.OnEvent(e)
			}
		})),
		navigation.WithListener(speaker.Listener(func(u guidance.Utterance) {
			res.Utterances = append(res.Utterances, u)
			if opts.OnUtterance != nil {
				opts.OnUtterance(u)
			}
		})),
	)
	if err != nil {
		return Result{}, err
	}

	var ticker *time.Ticker
	if opts.Interval > 0 {
		ticker = time.NewTicker(opts.Interval)
		defer ticker.Stop()
	}

	for i, p := range track {
		if i > 0 {
			step := geo.Haversine(track[i-1], p) / opts.Speed
			now = now.Add(time.Duration(step * float64(time.Second)))
		}
		if ticker != nil && i > 0 {
			select {
			case <-ctx.Done():
				return finish(res, engine), ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return finish(res, engine), err
		}

		fix := navigation.Fix{Position: p, Accuracy: fixAccuracyMeters, Speed: opts.Speed, Timestamp: now}
		if opts.OnFix != nil {
			opts.OnFix(i, fix)
		}
		if err := engine.OnPositionUpdate(fix); err != nil {
			return finish(res, engine), err
		}
		res.Fixes++
		if engine.State() != navigation.StateActive {
			break
		}
	}

	opts.Logger.Debug("replay finished",
		zap.Int("fixes", res.Fixes),
		zap.Int("events", len(res.Events)),
		zap.String("state", string(engine.State())),
	)
	return finish(res, engine), nil
}

func finish(res Result, engine *navigation.Engine) Result {
	res.Final = engine.Snapshot()
	return res
}
