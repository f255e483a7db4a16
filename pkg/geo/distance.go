package geo

import "math"

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// Haversine calculates the great-circle distance in meters between two
// coordinates. The result is symmetric and zero for identical points.
func Haversine(a, b Coordinate) float64 {
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180.0
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180.0)*math.Cos(b.Latitude*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// MinDistanceToPolyline returns the smallest distance in meters from point to
// any vertex of path. Segments between vertices are not projected onto, so
// long sparse segments overstate the true distance. An empty path yields
// +Inf.
func MinDistanceToPolyline(point Coordinate, path []Coordinate) float64 {
	min := math.Inf(1)
	for _, vertex := range path {
		if d := Haversine(point, vertex); d < min {
			min = d
		}
	}
	return min
}

// Offset moves c by the given number of meters north and east. Used by the
// simulator and by tests to build fixes at a known distance from a path.
func Offset(c Coordinate, northMeters, eastMeters float64) Coordinate {
	dLat := northMeters / earthRadiusMeters * 180.0 / math.Pi
	dLon := eastMeters / (earthRadiusMeters * math.Cos(c.Latitude*math.Pi/180.0)) * 180.0 / math.Pi
	return Coordinate{Latitude: c.Latitude + dLat, Longitude: c.Longitude + dLon}
}

// Interpolate returns the point at fraction t (0..1) along the straight line
// between a and b in coordinate space.
func Interpolate(a, b Coordinate, t float64) Coordinate {
	return Coordinate{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*t,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*t,
	}
}
