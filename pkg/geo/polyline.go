package geo

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// ErrMalformedPolyline is returned when an encoded polyline cannot be decoded
// completely.
var ErrMalformedPolyline = errors.New("malformed polyline")

// DecodePolyline decodes a Google encoded polyline. An empty string decodes
// to an empty slice. Truncated or out-of-range input is an error, never a
// partial result.
func DecodePolyline(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return []Coordinate{}, nil
	}

	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPolyline, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPolyline, len(rest))
	}

	points := make([]Coordinate, len(coords))
	for i, coord := range coords {
		if len(coord) != 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d values", ErrMalformedPolyline, i, len(coord))
		}
		points[i] = Coordinate{Latitude: coord[0], Longitude: coord[1]}
	}
	return points, nil
}

// EncodePolyline encodes points with 5 decimal digits of precision.
func EncodePolyline(points []Coordinate) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}
