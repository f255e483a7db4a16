package directions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
)

var (
	// ErrNoRouteFound is returned when the provider answers OK without routes.
	ErrNoRouteFound = errors.New("no route found between the locations")
	// ErrInvalidRouteData is returned when the first route has no usable leg.
	ErrInvalidRouteData = errors.New("invalid route data received")
)

// APIError is a provider status other than OK, such as ZERO_RESULTS or
// REQUEST_DENIED.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("directions API error: %s", e.Status)
	}
	return fmt.Sprintf("directions API error: %s - %s", e.Status, e.Message)
}

// TravelMode selects the provider's routing profile.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeBicycling TravelMode = "bicycling"
	ModeTransit   TravelMode = "transit"
)

// ParseTravelMode returns def for an empty string and false for unknown modes.
func ParseTravelMode(raw string, def TravelMode) (TravelMode, bool) {
	switch mode := TravelMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return def, true
	case ModeDriving, ModeWalking, ModeBicycling, ModeTransit:
		return mode, true
	default:
		return "", false
	}
}

// Request asks for a single route between two points.
type Request struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Mode        TravelMode
}

// Provider wire format.

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Routes       []directionsRoute `json:"routes"`
}

type directionsRoute struct {
	Summary          string       `json:"summary"`
	Legs             []routeLeg   `json:"legs"`
	OverviewPolyline polylineData `json:"overview_polyline"`
	Bounds           boundsData   `json:"bounds"`
	Warnings         []string     `json:"warnings"`
}

type routeLeg struct {
	Distance textValue  `json:"distance"`
	Duration textValue  `json:"duration"`
	Steps    []stepData `json:"steps"`
}

type stepData struct {
	HTMLInstructions string       `json:"html_instructions"`
	Distance         textValue    `json:"distance"`
	Duration         textValue    `json:"duration"`
	StartLocation    latLng       `json:"start_location"`
	EndLocation      latLng       `json:"end_location"`
	Polyline         polylineData `json:"polyline"`
	Maneuver         string       `json:"maneuver,omitempty"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type polylineData struct {
	Points string `json:"points"`
}

type boundsData struct {
	Northeast latLng `json:"northeast"`
	Southwest latLng `json:"southwest"`
}

func (l latLng) coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: l.Lat, Longitude: l.Lng}
}

// toRoute converts the first route's first leg. Totals come from the leg,
// geometry and bounds from the route.
func (r directionsRoute) toRoute() (navigation.Route, error) {
	if len(r.Legs) == 0 || len(r.Legs[0].Steps) == 0 {
		return navigation.Route{}, ErrInvalidRouteData
	}
	leg := r.Legs[0]

	steps := make([]navigation.Step, len(leg.Steps))
	for i, s := range leg.Steps {
		steps[i] = navigation.Step{
			Instruction:   s.HTMLInstructions,
			Maneuver:      navigation.ParseManeuver(s.Maneuver),
			Distance:      navigation.Distance{Meters: s.Distance.Value, Text: s.Distance.Text},
			Duration:      navigation.Duration{Seconds: s.Duration.Value, Text: s.Duration.Text},
			StartLocation: s.StartLocation.coordinate(),
			EndLocation:   s.EndLocation.coordinate(),
			Polyline:      s.Polyline.Points,
		}
	}

	route := navigation.Route{
		Summary:  r.Summary,
		Distance: navigation.Distance{Meters: leg.Distance.Value, Text: leg.Distance.Text},
		Duration: navigation.Duration{Seconds: leg.Duration.Value, Text: leg.Duration.Text},
		Steps:    steps,
		Polyline: r.OverviewPolyline.Points,
		Bounds: navigation.BoundingBox{
			Northeast: r.Bounds.Northeast.coordinate(),
			Southwest: r.Bounds.Southwest.coordinate(),
		},
		Warnings: r.Warnings,
	}
	if err := route.Validate(); err != nil {
		return navigation.Route{}, fmt.Errorf("%w: %v", ErrInvalidRouteData, err)
	}
	return route, nil
}
