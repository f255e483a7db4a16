package session

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/eventbus"
	"github.com/richxcame/navigator/pkg/geo"
	ws "github.com/richxcame/navigator/pkg/websocket"
)

var (
	pointA = geo.Coordinate{Latitude: 1.28, Longitude: 103.85}
	pointB = geo.Coordinate{Latitude: 1.29, Longitude: 103.85}
	pointC = geo.Coordinate{Latitude: 1.30, Longitude: 103.85}

	baseTime = time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func makeStep(instruction string, kind navigation.ManeuverKind, from, to geo.Coordinate) navigation.Step {
	meters := geo.Haversine(from, to)
	points := make([]geo.Coordinate, 21)
	for i := range points {
		points[i] = geo.Interpolate(from, to, float64(i)/20)
	}
	return navigation.Step{
		Instruction:   instruction,
		Maneuver:      kind,
		Distance:      navigation.NewDistance(meters),
		Duration:      navigation.NewDuration(int(meters / 10)),
		StartLocation: from,
		EndLocation:   to,
		Polyline:      geo.EncodePolyline(points),
	}
}

func testRoute() navigation.Route {
	steps := []navigation.Step{
		makeStep("Head <b>north</b> on Main St", navigation.ManeuverStraight, pointA, pointB),
		makeStep("Turn <b>left</b> onto Orchard Rd", navigation.ManeuverTurnLeft, pointB, pointC),
	}
	total := steps[0].Distance.Meters + steps[1].Distance.Meters
	return navigation.Route{
		Summary:  "Main St",
		Distance: navigation.NewDistance(float64(total)),
		Duration: navigation.NewDuration(300),
		Steps:    steps,
		Polyline: geo.EncodePolyline([]geo.Coordinate{pointA, pointB, pointC}),
		Bounds:   navigation.BoundingBox{Northeast: pointC, Southwest: pointA},
	}
}

// fixAt returns a fix request meters south of target.
func fixAt(target geo.Coordinate, meters float64) FixRequest {
	p := geo.Offset(target, -meters, 0)
	return FixRequest{Latitude: p.Latitude, Longitude: p.Longitude, Accuracy: 5}
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
	events   []*eventbus.Event
	err      error
}

func (b *recordingBus) Publish(_ context.Context, subject string, event *eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	b.events = append(b.events, event)
	return b.err
}

func (b *recordingBus) Subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subjects...)
}

func (b *recordingBus) Reset() {
	b.mu.Lock()
	b.subjects, b.events = nil, nil
	b.mu.Unlock()
}

type recordingHub struct {
	mu     sync.Mutex
	frames []*ws.Message
	closed []string
}

func (h *recordingHub) SendToSession(_ string, msg *ws.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, msg)
	return true
}

func (h *recordingHub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, sessionID)
}

func (h *recordingHub) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.frames))
	for i, f := range h.frames {
		out[i] = f.Type
	}
	return out
}

func (h *recordingHub) Reset() {
	h.mu.Lock()
	h.frames = nil
	h.mu.Unlock()
}

type stubRoutes struct {
	route navigation.Route
	err   error
	got   []directions.Request
}

func (s *stubRoutes) GetRoute(_ context.Context, req directions.Request) (navigation.Route, error) {
	s.got = append(s.got, req)
	return s.route, s.err
}

func boolPtr(b bool) *bool { return &b }
