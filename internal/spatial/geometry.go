package spatial

import (
	"math"

	"github.com/paulmach/orb"
)

// Area is a lon/lat bounding box. Bounds are inclusive.
type Area struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Bound returns the area as an orb bound
func (a Area) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{a.MinLon, a.MinLat},
		Max: orb.Point{a.MaxLon, a.MaxLat},
	}
}

// Contains reports whether c lies inside the area, borders included
func (a Area) Contains(c Coordinate) bool {
	return a.Bound().Contains(orb.Point{c.Lon, c.Lat})
}

// Center returns the center of the area
func (a Area) Center() Coordinate {
	p := a.Bound().Center()
	return Coordinate{Lon: p[0], Lat: p[1]}
}

// IsZero reports whether the area is unset
func (a Area) IsZero() bool {
	return a == Area{}
}

// Distinct returns the coordinates with duplicates removed, keeping first-seen order
func Distinct(coords []Coordinate) []Coordinate {
	seen := make(map[Coordinate]struct{}, len(coords))
	out := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// RadiusOfGyration calculates the radius of gyration (km) of the distinct
// coordinates around their midpoint. Repeated visits to the same place do not
// pull the centre towards it.
func RadiusOfGyration(coords []Coordinate) float64 {
	points := Distinct(coords)
	if len(points) == 0 {
		return 0
	}

	center := Midpoint(points, nil)

	var sumSquaredDist float64
	for _, p := range points {
		d := Distance(center, p)
		sumSquaredDist += d * d
	}

	return math.Sqrt(sumSquaredDist / float64(len(points)))
}

// PathLength calculates the total length (km) of a sequence of coordinates
func PathLength(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// BoundingBox returns the smallest area containing all coordinates
func BoundingBox(coords []Coordinate) Area {
	if len(coords) == 0 {
		return Area{}
	}

	b := orb.Bound{Min: orb.Point{coords[0].Lon, coords[0].Lat}, Max: orb.Point{coords[0].Lon, coords[0].Lat}}
	for _, c := range coords[1:] {
		b = b.Extend(orb.Point{c.Lon, c.Lat})
	}
	return Area{MinLon: b.Min[0], MinLat: b.Min[1], MaxLon: b.Max[0], MaxLat: b.Max[1]}
}
