// Package mobgraph holds the directed, weighted graph of one person-day's
// movement and its text codec.
package mobgraph

import (
	"slices"

	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// Node is a visited place. Weight is the accumulated dwelling time.
type Node struct {
	ID     int     `json:"id"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Edge is a move between two distinct places. Weight is the travel distance in
// km; Frequency counts how often the move was made.
type Edge struct {
	From      int     `json:"from"`
	To        int     `json:"to"`
	Weight    float64 `json:"weight"`
	Frequency int     `json:"frequency"`
}

// NodeAttr selects the numeric node attribute used for comparison
type NodeAttr func(Node) float64

// EdgeAttr selects the numeric edge attribute used for comparison
type EdgeAttr func(Edge) float64

// Attribute selectors
var (
	NodeWeight    NodeAttr = func(n Node) float64 { return n.Weight }
	EdgeWeight    EdgeAttr = func(e Edge) float64 { return e.Weight }
	EdgeFrequency EdgeAttr = func(e Edge) float64 { return float64(e.Frequency) }
)

// Graph is a directed graph stored as node and edge arenas. Node and edge ids
// are their positions in first-insertion order.
type Graph struct {
	nodes  []Node
	coords []spatial.Coordinate
	edges  []Edge

	byLabel map[string]int
	byPair  map[[2]int]int
	out     [][]int // edge ids leaving each node
	in      [][]int // edge ids entering each node
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		byLabel: make(map[string]int),
		byPair:  make(map[[2]int]int),
	}
}

// AddNode inserts a node, or overwrites the weight of the node with the same label
func (g *Graph) AddNode(label string, weight float64) int {
	if id, ok := g.byLabel[label]; ok {
		g.nodes[id].Weight = weight
		return id
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Label: label, Weight: weight})
	g.coords = append(g.coords, spatial.Coordinate{})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.byLabel[label] = id
	return id
}

// AddPlace inserts a node labelled by the geohash of c and remembers c
func (g *Graph) AddPlace(c spatial.Coordinate, weight float64) int {
	id := g.AddNode(spatial.EncodeGeohash(c, spatial.GeohashPrecision), weight)
	g.coords[id] = c
	return id
}

// AddEdge inserts the edge from -> to. Adding an existing edge increments its
// frequency and keeps its weight.
func (g *Graph) AddEdge(from, to int, weight float64) int {
	key := [2]int{from, to}
	if id, ok := g.byPair[key]; ok {
		g.edges[id].Frequency++
		return id
	}
	id := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Weight: weight, Frequency: 1})
	g.byPair[key] = id
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
	return id
}

// SetNodeWeight assigns the weight of node id
func (g *Graph) SetNodeWeight(id int, w float64) { g.nodes[id].Weight = w }

// SetEdgeWeight assigns the weight of edge id
func (g *Graph) SetEdgeWeight(id int, w float64) { g.edges[id].Weight = w }

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) Node(id int) Node { return g.nodes[id] }
func (g *Graph) Edge(id int) Edge { return g.edges[id] }

// Nodes returns a copy of all nodes in id order
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Edges returns a copy of all edges in id order
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeIndex looks a node up by label
func (g *Graph) NodeIndex(label string) (int, bool) {
	id, ok := g.byLabel[label]
	return id, ok
}

// EdgeIndex looks an edge up by its endpoints
func (g *Graph) EdgeIndex(from, to int) (int, bool) {
	id, ok := g.byPair[[2]int{from, to}]
	return id, ok
}

// Coordinate returns the place of a node added with AddPlace. Nodes parsed
// from text fall back to their geohash label.
func (g *Graph) Coordinate(id int) (spatial.Coordinate, bool) {
	if c := g.coords[id]; c != (spatial.Coordinate{}) {
		return c, true
	}
	return spatial.DecodeGeohash(g.nodes[id].Label)
}

// OutEdges returns the ids of edges leaving u
func (g *Graph) OutEdges(u int) []int { return g.out[u] }

// InEdges returns the ids of edges entering u
func (g *Graph) InEdges(u int) []int { return g.in[u] }

// Successors returns the nodes reachable from u in one move
func (g *Graph) Successors(u int) []int {
	out := make([]int, len(g.out[u]))
	for i, e := range g.out[u] {
		out[i] = g.edges[e].To
	}
	return out
}

// Predecessors returns the nodes that reach u in one move
func (g *Graph) Predecessors(u int) []int {
	in := make([]int, len(g.in[u]))
	for i, e := range g.in[u] {
		in[i] = g.edges[e].From
	}
	return in
}

func (g *Graph) OutDegree(u int) int { return len(g.out[u]) }
func (g *Graph) InDegree(u int) int  { return len(g.in[u]) }

// DegreeSequence returns the sorted (in, out) degree pairs of all nodes.
// Isomorphic graphs have equal degree sequences.
func (g *Graph) DegreeSequence() [][2]int {
	seq := make([][2]int, len(g.nodes))
	for u := range g.nodes {
		seq[u] = [2]int{len(g.in[u]), len(g.out[u])}
	}
	slices.SortFunc(seq, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	return seq
}

// Clone returns a deep copy
func (g *Graph) Clone() *Graph {
	c := New()
	for _, n := range g.nodes {
		c.AddNode(n.Label, n.Weight)
	}
	copy(c.coords, g.coords)
	for _, e := range g.edges {
		id := c.AddEdge(e.From, e.To, e.Weight)
		c.edges[id].Frequency = e.Frequency
	}
	return c
}
