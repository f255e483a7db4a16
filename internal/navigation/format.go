package navigation

import "fmt"

// FormatDistance renders meters as "950 m" below one kilometer and as
// "5.2 km" from there on.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.1f km", meters/1000.0)
}

// FormatDuration renders seconds as "1h 30m" when at least an hour, else
// "5 min".
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
