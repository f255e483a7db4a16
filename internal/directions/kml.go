package directions

import (
	"fmt"
	"io"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/twpayne/go-kml"
)

// WriteKML writes route as a KML document: one line string for the whole
// path and one placemark per maneuver point.
func WriteKML(w io.Writer, name string, route navigation.Route) error {
	path, err := routePath(route)
	if err != nil {
		return err
	}

	children := []kml.Element{
		kml.Name(name),
		kml.Placemark(
			kml.Name(route.Summary),
			kml.Description(fmt.Sprintf("%s, %s", route.Distance.Formatted(), route.Duration.Formatted())),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(toKMLCoordinates(path)...),
			),
		),
	}
	for i, step := range route.Steps {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("%d. %s", i+1, step.PlainInstruction())),
			kml.Description(step.Distance.Formatted()),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: step.EndLocation.Longitude, Lat: step.EndLocation.Latitude}),
			),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

// routePath decodes the overview polyline, or joins the step polylines when
// the route has no overview.
func routePath(route navigation.Route) ([]geo.Coordinate, error) {
	if route.Polyline != "" {
		return geo.DecodePolyline(route.Polyline)
	}
	var path []geo.Coordinate
	for i, step := range route.Steps {
		points, err := geo.DecodePolyline(step.Polyline)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if len(path) > 0 && len(points) > 0 && path[len(path)-1] == points[0] {
			points = points[1:]
		}
		path = append(path, points...)
	}
	return path, nil
}

func toKMLCoordinates(points []geo.Coordinate) []kml.Coordinate {
	out := make([]kml.Coordinate, len(points))
	for i, p := range points {
		out[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}
	return out
}
