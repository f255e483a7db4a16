package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolutions used when tagging fixes.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionStreet is roughly a city block (~175m edge).
	H3ResolutionStreet = 9

	// H3ResolutionDistrict groups fixes for coarse sharing (~1.2 km edge).
	H3ResolutionDistrict = 7
)

// LatLngToCell converts a coordinate to an H3 cell index at the given resolution.
// Returns 0 for input the library rejects.
func LatLngToCell(c Coordinate, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Latitude, c.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellToCoordinate returns the center of an H3 cell.
func CellToCoordinate(cell h3.Cell) Coordinate {
	latLng, err := cell.LatLng()
	if err != nil {
		return Coordinate{}
	}
	return Coordinate{Latitude: latLng.Lat, Longitude: latLng.Lng}
}

// StreetCell returns the street-level cell of c as a hex string, or "" when
// the coordinate cannot be indexed.
func StreetCell(c Coordinate) string {
	cell := LatLngToCell(c, H3ResolutionStreet)
	if cell == 0 {
		return ""
	}
	return cell.String()
}

// CellDistance returns the grid distance between two cells at the same
// resolution, or -1 if it cannot be computed.
func CellDistance(a, b h3.Cell) int {
	dist, err := a.GridDistance(b)
	if err != nil {
		return -1
	}
	return dist
}
