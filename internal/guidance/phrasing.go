// Package guidance turns navigation events into spoken phrases.
package guidance

import (
	"fmt"
	"strings"

	"github.com/richxcame/navigator/internal/navigation"
)

const (
	arrivalPhrase  = "You have arrived at your destination"
	offRoutePhrase = "You are off route. Recalculating..."
)

// Announcement renders an instruction for speech. A positive distance is
// spoken as a lead-in, e.g. "In 200 meters, Turn left onto Main St".
func Announcement(instruction string, distanceMeters int) string {
	clean := strings.TrimSpace(navigation.StripHTML(instruction))
	if distanceMeters <= 0 {
		return clean
	}
	return fmt.Sprintf("In %s, %s", SpeechDistance(distanceMeters), clean)
}

// SpeechDistance phrases a distance the way a driver hears it. Distances
// between 100 m and 1 km are rounded down to a multiple of 50.
func SpeechDistance(meters int) string {
	switch {
	case meters < 100:
		return fmt.Sprintf("%d meters", meters)
	case meters < 1000:
		return fmt.Sprintf("%d meters", meters/50*50)
	}
	km := float64(meters) / 1000.0
	if km < 2.0 {
		return fmt.Sprintf("%.1f kilometers", km)
	}
	return fmt.Sprintf("%.0f kilometers", km)
}

// Arrival is spoken when navigation completes.
func Arrival() string { return arrivalPhrase }

// OffRoute is spoken when the traveler leaves the route.
func OffRoute() string { return offRoutePhrase }
