// Package roadnet measures travel distances over a road network instead of
// straight lines.
package roadnet

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// ErrEmptyNetwork is returned when no usable road segment was supplied
var ErrEmptyNetwork = errors.New("road network has no segments")

// Network is an undirected road graph. Vertices are segment endpoints and
// edges are weighted by the segment length in km. Only the largest connected
// component is kept. A Network is read-only after construction.
type Network struct {
	graph    *simple.WeightedUndirectedGraph
	vertices []orb.Point // indexed by graph node id
}

// New builds a network from road polylines
func New(segments []orb.LineString) (*Network, error) {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	ids := make(map[orb.Point]int64)
	var vertices []orb.Point

	vertex := func(p orb.Point) graph.Node {
		if id, ok := ids[p]; ok {
			return g.Node(id)
		}
		n := simple.Node(len(vertices))
		ids[p] = n.ID()
		vertices = append(vertices, p)
		g.AddNode(n)
		return n
	}

	for _, ls := range segments {
		if len(ls) < 2 {
			continue
		}
		from, to := vertex(ls[0]), vertex(ls[len(ls)-1])
		if from.ID() == to.ID() {
			continue
		}
		length := spatial.PathLength(toCoordinates(ls))
		if w, ok := g.Weight(from.ID(), to.ID()); ok && w <= length {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(from, to, length))
	}

	if g.Edges().Len() == 0 {
		return nil, ErrEmptyNetwork
	}

	var largest []graph.Node
	for _, cc := range topo.ConnectedComponents(g) {
		if len(cc) > len(largest) {
			largest = cc
		}
	}
	keep := make(map[int64]bool, len(largest))
	for _, n := range largest {
		keep[n.ID()] = true
	}
	for id := range vertices {
		if !keep[int64(id)] {
			g.RemoveNode(int64(id))
		}
	}

	return &Network{graph: g, vertices: vertices}, nil
}

// FromGeoJSON builds a network from a FeatureCollection of LineString or
// MultiLineString features. Other geometries are ignored.
func FromGeoJSON(data []byte) (*Network, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse road geojson: %w", err)
	}
	var segments []orb.LineString
	for _, f := range fc.Features {
		segments = append(segments, LineStrings(f.Geometry)...)
	}
	return New(segments)
}

// LineStrings flattens a geometry into its polylines
func LineStrings(geom orb.Geometry) []orb.LineString {
	switch g := geom.(type) {
	case orb.LineString:
		return []orb.LineString{g}
	case orb.MultiLineString:
		return g
	default:
		return nil
	}
}

// VertexCount returns the number of vertices in the kept component
func (n *Network) VertexCount() int { return n.graph.Nodes().Len() }

// EdgeCount returns the number of road edges in the kept component
func (n *Network) EdgeCount() int { return n.graph.Edges().Len() }

// Nearest returns the network vertex closest to c in plain lon/lat space
func (n *Network) Nearest(c spatial.Coordinate) (int64, spatial.Coordinate) {
	target := orb.Point{c.Lon, c.Lat}
	best, bestDist := int64(-1), math.Inf(1)

	nodes := n.graph.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if d := planar.DistanceSquared(n.vertices[id], target); d < bestDist {
			best, bestDist = id, d
		}
	}

	p := n.vertices[best]
	return best, spatial.Coordinate{Lon: p[0], Lat: p[1]}
}

// ShortestPathDistance returns the road distance in km between the vertices
// nearest to a and b. Unreachable pairs fall back to the great-circle distance.
func (n *Network) ShortestPathDistance(a, b spatial.Coordinate) float64 {
	from, _ := n.Nearest(a)
	to, _ := n.Nearest(b)
	if from == to {
		return 0
	}

	shortest := path.DijkstraFrom(n.graph.Node(from), n.graph)
	if d := shortest.WeightTo(to); !math.IsInf(d, 1) {
		return d
	}
	return spatial.Distance(a, b)
}

func toCoordinates(ls orb.LineString) []spatial.Coordinate {
	coords := make([]spatial.Coordinate, len(ls))
	for i, p := range ls {
		coords[i] = spatial.Coordinate{Lon: p[0], Lat: p[1]}
	}
	return coords
}
