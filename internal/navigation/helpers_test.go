package navigation

import (
	"time"

	"github.com/richxcame/navigator/pkg/geo"
)

var (
	pointA = geo.Coordinate{Latitude: 1.28, Longitude: 103.85}
	pointB = geo.Coordinate{Latitude: 1.29, Longitude: 103.85}
	pointC = geo.Coordinate{Latitude: 1.30, Longitude: 103.85}

	baseTime = time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: baseTime} }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// straightLine returns n+1 evenly spaced points from a to b.
func straightLine(a, b geo.Coordinate, n int) []geo.Coordinate {
	points := make([]geo.Coordinate, n+1)
	for i := 0; i <= n; i++ {
		points[i] = geo.Interpolate(a, b, float64(i)/float64(n))
	}
	return points
}

func makeStep(instruction string, kind ManeuverKind, from, to geo.Coordinate) Step {
	meters := geo.Haversine(from, to)
	return Step{
		Instruction:   instruction,
		Maneuver:      kind,
		Distance:      NewDistance(meters),
		Duration:      NewDuration(int(meters / 10)),
		StartLocation: from,
		EndLocation:   to,
		Polyline:      geo.EncodePolyline(straightLine(from, to, 20)),
	}
}

// twoStepRoute runs due north from A through B to C, roughly 1.1 km per step.
func twoStepRoute() Route {
	steps := []Step{
		makeStep("Head <b>north</b> on Main St", ManeuverStraight, pointA, pointB),
		makeStep("Turn <b>left</b> onto <div style=\"font-size:0.9em\">Orchard Rd</div>", ManeuverTurnLeft, pointB, pointC),
	}
	total := 0
	for _, s := range steps {
		total += s.Distance.Meters
	}
	return Route{
		Summary:  "Main St",
		Distance: NewDistance(float64(total)),
		Duration: NewDuration(300),
		Steps:    steps,
		Polyline: geo.EncodePolyline(straightLine(pointA, pointC, 40)),
		Bounds:   BoundingBox{Northeast: pointC, Southwest: pointA},
	}
}

// fixBefore returns a fix on the route, meters south of target.
func fixBefore(target geo.Coordinate, meters float64) Fix {
	return Fix{Position: geo.Offset(target, -meters, 0), Accuracy: 5, Timestamp: baseTime}
}

// fixEastOf returns a fix displaced sideways from the route.
func fixEastOf(origin geo.Coordinate, meters float64) Fix {
	return Fix{Position: geo.Offset(origin, 0, meters), Accuracy: 5, Timestamp: baseTime}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func announcements(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == EventInstructionUpdate {
			out = append(out, e)
		}
	}
	return out
}
