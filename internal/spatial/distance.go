package spatial

import (
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusKm     = 6372.8 // radius used by the mobility analyses
	EarthRadiusMeters = EarthRadiusKm * 1000
)

// Coordinate is a (longitude, latitude) pair in degrees. It is comparable and
// is used directly as a map key and graph node identity.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// LatLng converts the coordinate to an s2 LatLng
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

// Distance returns the great-circle distance between two coordinates in kilometers
func Distance(a, b Coordinate) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians() * EarthRadiusKm
}

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(Coordinate{Lon: lon1, Lat: lat1}, Coordinate{Lon: lon2, Lat: lat2}) * 1000
}

// Midpoint calculates the weighted geographic midpoint of a set of coordinates.
// Points are averaged as unit vectors on the sphere, so the result is stable
// across the antimeridian. weights may be nil for equal weights.
func Midpoint(coords []Coordinate, weights []float64) Coordinate {
	if len(coords) == 0 {
		return Coordinate{}
	}

	var sum r3.Vector
	var total float64
	for i, c := range coords {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		sum = sum.Add(s2.PointFromLatLng(c.LatLng()).Vector.Mul(w))
		total += w
	}
	if total == 0 {
		return Midpoint(coords, nil)
	}

	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Mul(1 / total)})
	return Coordinate{Lon: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}
}
