package replay

import (
	"context"
	"testing"
	"time"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pointA = geo.Coordinate{Latitude: 1.28, Longitude: 103.85}
	pointB = geo.Coordinate{Latitude: 1.29, Longitude: 103.85}
	pointC = geo.Coordinate{Latitude: 1.30, Longitude: 103.85}
)

func step(instruction string, from, to geo.Coordinate, polyline string) navigation.Step {
	meters := geo.Haversine(from, to)
	return navigation.Step{
		Instruction:   instruction,
		Distance:      navigation.NewDistance(meters),
		Duration:      navigation.NewDuration(int(meters / 10)),
		StartLocation: from,
		EndLocation:   to,
		Polyline:      polyline,
	}
}

func line(from, to geo.Coordinate, segments int) string {
	points := make([]geo.Coordinate, segments+1)
	for i := range points {
		points[i] = geo.Interpolate(from, to, float64(i)/float64(segments))
	}
	return geo.EncodePolyline(points)
}

// testRoute runs due north from A through B to C. Each step polyline has the
// given number of segments.
func testRoute(segments int) navigation.Route {
	steps := []navigation.Step{
		step("Head north", pointA, pointB, line(pointA, pointB, segments)),
		step("Continue onto Orchard Rd", pointB, pointC, line(pointB, pointC, segments)),
	}
	return navigation.Route{
		Distance: navigation.NewDistance(float64(steps[0].Distance.Meters + steps[1].Distance.Meters)),
		Duration: navigation.NewDuration(240),
		Steps:    steps,
	}
}

func TestTrack(t *testing.T) {
	track, err := Track(testRoute(1), 100)
	require.NoError(t, err)

	// 12 samples per 1.1 km step plus the start point
	require.Len(t, track, 25)
	assert.InDelta(t, 0, geo.Haversine(track[0], pointA), 0.01)
	assert.InDelta(t, 0, geo.Haversine(track[12], pointB), 0.01)
	assert.InDelta(t, 0, geo.Haversine(track[len(track)-1], pointC), 0.01)

	for i := 1; i < len(track); i++ {
		assert.LessOrEqual(t, geo.Haversine(track[i-1], track[i]), 100.0)
	}
}

func TestTrack_FallsBackToStepEndpoints(t *testing.T) {
	route := testRoute(1)
	route.Steps[1].Polyline = "!!!"

	track, err := Track(route, 500)
	require.NoError(t, err)
	require.Len(t, track, 7)
	assert.InDelta(t, 0, geo.Haversine(track[len(track)-1], pointC), 0.01)

	_, err = Track(navigation.Route{}, 10)
	assert.ErrorIs(t, err, ErrNoTrack)
}

func TestRun_CompletesRoute(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var fixes int

	res, err := Run(context.Background(), testRoute(20), Options{
		Spacing: 10,
		Start:   start,
		Voice:   true,
		OnFix:   func(int, navigation.Fix) { fixes++ },
	})
	require.NoError(t, err)

	assert.Equal(t, navigation.StateCompleted, res.Final.State)
	assert.Equal(t, fixes, res.Fixes)

	var kinds []navigation.EventKind
	for _, e := range res.Events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, navigation.EventStepCompleted)
	assert.Contains(t, kinds, navigation.EventInstructionUpdate)
	assert.NotContains(t, kinds, navigation.EventOffRoute)
	assert.Equal(t, navigation.EventNavigationCompleted, kinds[len(kinds)-1])

	require.NotEmpty(t, res.Utterances)
	assert.Equal(t, "You have arrived at your destination", res.Utterances[len(res.Utterances)-1].Text)

	require.NotNil(t, res.Final.LastFix)
	assert.True(t, res.Final.LastFix.Timestamp.After(start))
}

func TestRun_VoiceOff(t *testing.T) {
	res, err := Run(context.Background(), testRoute(20), Options{Spacing: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Events)
	assert.Empty(t, res.Utterances)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, testRoute(20), Options{Spacing: 50})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Fixes)
	assert.Equal(t, navigation.StateActive, res.Final.State)
}

func TestRun_InvalidRoute(t *testing.T) {
	route := testRoute(20)
	route.Steps[0].Distance.Meters = -1
	_, err := Run(context.Background(), route, Options{})
	assert.ErrorIs(t, err, navigation.ErrInvalidRoute)
}
