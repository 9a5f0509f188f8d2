package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// ValidCoordinate reports whether a nullable lat/lon pair can be plotted.
// Missing values, out-of-range values and the 0,0 placeholder are rejected.
func ValidCoordinate(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if *lat == 0 || *lon == 0 {
		return false
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		return false
	}
	return s2.LatLngFromDegrees(*lat, *lon).IsValid()
}

// View is a map viewport.
type View struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      float64 `json:"zoom"`
}

const (
	minZoom = 1.0
	maxZoom = 12.0
)

// DefaultView shows the whole world.
var DefaultView = View{Zoom: minZoom}

// Point is a plotted location in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// FitView centers on the bounding rectangle of points and picks the largest
// web-mercator zoom that still shows its widest side.
func FitView(points []Point) View {
	if len(points) == 0 {
		return DefaultView
	}

	rect := s2.EmptyRect()
	for _, p := range points {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lon))
	}
	center := rect.Center()
	size := rect.Size()

	span := math.Max(size.Lat.Degrees(), size.Lng.Degrees())
	zoom := maxZoom
	if span > 0 {
		zoom = math.Floor(math.Log2(360 / span))
	}
	zoom = math.Max(minZoom, math.Min(maxZoom, zoom))

	return View{
		CenterLat: center.Lat.Degrees(),
		CenterLon: center.Lng.Degrees(),
		Zoom:      zoom,
	}
}

// FocusZoom is the zoom used when the map centers on a single selected point.
const FocusZoom = 10.0

// FocusView centers on one point. ok is false for an invalid coordinate.
func FocusView(lat, lon float64) (View, bool) {
	if !ValidCoordinate(&lat, &lon) {
		return View{}, false
	}
	return View{CenterLat: lat, CenterLon: lon, Zoom: FocusZoom}, true
}
