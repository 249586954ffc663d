package mobgraph

import (
	"github.com/jengzang/mobility-backend-go/internal/mobility"
	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// DistanceFunc measures the travel distance between two places in km
type DistanceFunc func(a, b spatial.Coordinate) float64

// GreatCircle is the default DistanceFunc
func GreatCircle(a, b spatial.Coordinate) float64 {
	return spatial.Distance(a, b)
}

// Build converts a person-day into its mobility graph. Every distinct place
// becomes a node weighted by its accumulated dwelling time; every move between
// consecutive distinct places becomes an edge weighted by dist, with repeated
// moves counted in the edge frequency. A nil dist means GreatCircle.
func Build(day *mobility.PersonDay, dist DistanceFunc) *Graph {
	if dist == nil {
		dist = GreatCircle
	}

	g := New()
	acc := day.AccDwelling()
	coords := day.Coordinates()

	ids := make([]int, len(coords))
	for i, c := range coords {
		ids[i] = g.AddPlace(c, float64(acc[c]))
	}

	for i := 1; i < len(coords); i++ {
		if coords[i] == coords[i-1] {
			continue
		}
		if _, ok := g.EdgeIndex(ids[i-1], ids[i]); ok {
			g.AddEdge(ids[i-1], ids[i], 0)
			continue
		}
		g.AddEdge(ids[i-1], ids[i], dist(coords[i-1], coords[i]))
	}

	return g
}
