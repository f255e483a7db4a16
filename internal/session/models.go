package session

import (
	"errors"
	"time"

	"github.com/richxcame/navigator/internal/guidance"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
)

var (
	ErrSessionNotFound = errors.New("navigation session not found")
	ErrSessionLimit    = errors.New("too many active navigation sessions")
	// ErrRouteRequired is returned when a start request has neither an
	// inline route nor both endpoints.
	ErrRouteRequired = errors.New("either route or origin and destination are required")
	// ErrDirectionsUnavailable is returned when a route must be fetched but
	// no directions client is configured.
	ErrDirectionsUnavailable = errors.New("directions provider not configured")
	// ErrNearbyUnavailable is returned when the live position index is off.
	ErrNearbyUnavailable = errors.New("live position index not configured")
)

// LatLng is a coordinate as submitted by API clients.
type LatLng struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (l LatLng) coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// StartRequest starts a session on an inline route, or on a route fetched
// from the directions provider between Origin and Destination.
type StartRequest struct {
	Route       *navigation.Route `json:"route,omitempty"`
	Origin      *LatLng           `json:"origin,omitempty"`
	Destination *LatLng           `json:"destination,omitempty"`
	Mode        string            `json:"mode,omitempty" validate:"omitempty,travel_mode"`
	Voice       *bool             `json:"voice,omitempty"`
}

// FixRequest is one position report. A missing timestamp means "now".
type FixRequest struct {
	Latitude  float64    `json:"latitude" validate:"latitude"`
	Longitude float64    `json:"longitude" validate:"longitude"`
	Accuracy  float64    `json:"accuracy" validate:"gte=0"`
	Speed     float64    `json:"speed" validate:"gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (r FixRequest) toFix(now time.Time) navigation.Fix {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return navigation.Fix{
		Position:  geo.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude},
		Accuracy:  r.Accuracy,
		Speed:     r.Speed,
		Timestamp: ts,
	}
}

// View is the API representation of a session.
type View struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode,omitempty"`
	Voice     bool      `json:"voice"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	H3Cell    string    `json:"h3_cell,omitempty"`
	navigation.Snapshot
}

// FixResult reports what one fix did. Rejected fixes leave the session
// untouched and carry the rejection reason.
type FixResult struct {
	Accepted   bool                 `json:"accepted"`
	Reason     string               `json:"reason,omitempty"`
	Session    View                 `json:"session"`
	Events     []navigation.Event   `json:"events"`
	Utterances []guidance.Utterance `json:"utterances"`
}

// AdvanceResult is the outcome of a manual step advance.
type AdvanceResult struct {
	Session View               `json:"session"`
	Events  []navigation.Event `json:"events"`
}

// NearbySession is an active session near a query point.
type NearbySession struct {
	SessionID  string         `json:"session_id"`
	DistanceKm float64        `json:"distance_km"`
	Position   geo.Coordinate `json:"position"`
}
