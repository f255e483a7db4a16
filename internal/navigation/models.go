package navigation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/richxcame/navigator/pkg/geo"
)

var (
	// ErrEmptyRoute is returned when a route without steps is handed to the engine.
	ErrEmptyRoute = errors.New("route has no steps")
	// ErrInvalidRoute wraps other structural problems with a route.
	ErrInvalidRoute = errors.New("invalid route")
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// StripHTML removes markup tags from a provider instruction.
func StripHTML(s string) string {
	return htmlTagPattern.ReplaceAllString(s, "")
}

// Distance is a whole number of meters plus its display text.
type Distance struct {
	Meters int    `json:"meters"`
	Text   string `json:"text"`
}

// NewDistance truncates meters to an integer and formats the display text
// from the untruncated value. Negative input is clamped to zero.
func NewDistance(meters float64) Distance {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	return Distance{Meters: int(meters), Text: FormatDistance(meters)}
}

// Kilometers returns the distance in kilometers.
func (d Distance) Kilometers() float64 {
	return float64(d.Meters) / 1000.0
}

// Formatted renders the distance from Meters, ignoring Text.
func (d Distance) Formatted() string {
	return FormatDistance(float64(d.Meters))
}

// Duration is a whole number of seconds plus its display text.
type Duration struct {
	Seconds int    `json:"seconds"`
	Text    string `json:"text"`
}

// NewDuration builds a Duration with formatted text. Negative input is
// clamped to zero.
func NewDuration(seconds int) Duration {
	if seconds < 0 {
		seconds = 0
	}
	return Duration{Seconds: seconds, Text: FormatDuration(seconds)}
}

// Minutes returns the whole minutes in the duration.
func (d Duration) Minutes() int {
	return d.Seconds / 60
}

// Formatted renders the duration from Seconds, ignoring Text.
func (d Duration) Formatted() string {
	return FormatDuration(d.Seconds)
}

// ManeuverKind identifies the maneuver at the end of a step. It only drives
// icons and phrasing.
type ManeuverKind string

const (
	ManeuverTurnLeft        ManeuverKind = "turn-left"
	ManeuverTurnRight       ManeuverKind = "turn-right"
	ManeuverTurnSlightLeft  ManeuverKind = "turn-slight-left"
	ManeuverTurnSlightRight ManeuverKind = "turn-slight-right"
	ManeuverTurnSharpLeft   ManeuverKind = "turn-sharp-left"
	ManeuverTurnSharpRight  ManeuverKind = "turn-sharp-right"
	ManeuverUTurnLeft       ManeuverKind = "uturn-left"
	ManeuverUTurnRight      ManeuverKind = "uturn-right"
	ManeuverMerge           ManeuverKind = "merge"
	ManeuverStraight        ManeuverKind = "straight"
	ManeuverRampLeft        ManeuverKind = "ramp-left"
	ManeuverRampRight       ManeuverKind = "ramp-right"
	ManeuverFork            ManeuverKind = "fork"
	ManeuverRoundaboutLeft  ManeuverKind = "roundabout-left"
	ManeuverRoundaboutRight ManeuverKind = "roundabout-right"
	ManeuverFerry           ManeuverKind = "ferry"
	ManeuverFerryTrain      ManeuverKind = "ferry-train"
	ManeuverKeep            ManeuverKind = "keep"
	ManeuverUnknown         ManeuverKind = ""
)

var knownManeuvers = map[ManeuverKind]struct{}{
	ManeuverTurnLeft: {}, ManeuverTurnRight: {},
	ManeuverTurnSlightLeft: {}, ManeuverTurnSlightRight: {},
	ManeuverTurnSharpLeft: {}, ManeuverTurnSharpRight: {},
	ManeuverUTurnLeft: {}, ManeuverUTurnRight: {},
	ManeuverMerge: {}, ManeuverStraight: {},
	ManeuverRampLeft: {}, ManeuverRampRight: {},
	ManeuverFork:           {},
	ManeuverRoundaboutLeft: {}, ManeuverRoundaboutRight: {},
	ManeuverFerry: {}, ManeuverFerryTrain: {},
	ManeuverKeep: {},
}

// ParseManeuver maps a provider maneuver string to a ManeuverKind. Values
// outside the closed set map to ManeuverUnknown.
func ParseManeuver(raw string) ManeuverKind {
	kind := ManeuverKind(strings.TrimSpace(raw))
	if _, ok := knownManeuvers[kind]; ok {
		return kind
	}
	return ManeuverUnknown
}

// Icon returns the display icon name for the maneuver.
func (m ManeuverKind) Icon() string {
	switch m {
	case ManeuverTurnLeft, ManeuverTurnSlightLeft, ManeuverRampLeft:
		return "arrow.turn.up.left"
	case ManeuverTurnRight, ManeuverTurnSlightRight, ManeuverRampRight:
		return "arrow.turn.up.right"
	case ManeuverTurnSharpLeft:
		return "arrow.uturn.left"
	case ManeuverTurnSharpRight:
		return "arrow.uturn.right"
	case ManeuverUTurnLeft, ManeuverUTurnRight:
		return "arrow.uturn.backward"
	case ManeuverMerge:
		return "arrow.triangle.merge"
	case ManeuverFork:
		return "arrow.triangle.branch"
	case ManeuverRoundaboutLeft, ManeuverRoundaboutRight:
		return "arrow.triangle.turn.up.right.circle"
	case ManeuverFerry, ManeuverFerryTrain:
		return "ferry"
	default:
		return "arrow.up"
	}
}

// Step is one maneuver-bounded leg of a route.
type Step struct {
	Instruction   string         `json:"instruction"` // provider HTML
	Maneuver      ManeuverKind   `json:"maneuver"`
	Distance      Distance       `json:"distance"`
	Duration      Duration       `json:"duration"`
	StartLocation geo.Coordinate `json:"start_location"`
	EndLocation   geo.Coordinate `json:"end_location"`
	Polyline      string         `json:"polyline"`
}

// PlainInstruction returns the instruction with HTML tags removed.
func (s Step) PlainInstruction() string {
	return StripHTML(s.Instruction)
}

// BoundingBox is the geographic extent of a route.
type BoundingBox struct {
	Northeast geo.Coordinate `json:"northeast"`
	Southwest geo.Coordinate `json:"southwest"`
}

// Route is an immutable, precomputed trip from origin to destination.
type Route struct {
	Summary  string      `json:"summary,omitempty"`
	Distance Distance    `json:"distance"`
	Duration Duration    `json:"duration"`
	Steps    []Step      `json:"steps"`
	Polyline string      `json:"polyline,omitempty"`
	Bounds   BoundingBox `json:"bounds"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Validate checks the structural invariants the engine relies on.
func (r Route) Validate() error {
	if len(r.Steps) == 0 {
		return ErrEmptyRoute
	}
	if r.Distance.Meters < 0 || r.Duration.Seconds < 0 {
		return fmt.Errorf("%w: negative route totals", ErrInvalidRoute)
	}
	for i, step := range r.Steps {
		if step.Distance.Meters < 0 || step.Duration.Seconds < 0 {
			return fmt.Errorf("%w: step %d has negative distance or duration", ErrInvalidRoute, i)
		}
	}
	return nil
}

// Destination returns the end location of the final step.
func (r Route) Destination() geo.Coordinate {
	if len(r.Steps) == 0 {
		return geo.Coordinate{}
	}
	return r.Steps[len(r.Steps)-1].EndLocation
}

// clone copies the slices so callers cannot mutate the engine's route.
func (r Route) clone() Route {
	out := r
	out.Steps = append([]Step(nil), r.Steps...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return out
}
