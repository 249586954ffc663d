// Package motif groups mobility graphs into motifs: classes of graphs with the
// same directed shape, regardless of places and weights.
package motif

import (
	"slices"

	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
)

// Motif is one class of isomorphic graphs
type Motif struct {
	Graph *mobgraph.Graph // first graph seen of the class
	Count int

	degrees [][2]int
}

// Bucket collects motifs by node count, then edge count
type Bucket struct {
	// Nodes restricts the bucket to graphs with this many nodes; 0 accepts all
	Nodes int

	all map[int]map[int][]*Motif
}

// NewBucket creates a bucket, optionally restricted to graphs of n nodes
func NewBucket(n int) *Bucket {
	return &Bucket{Nodes: n, all: make(map[int]map[int][]*Motif)}
}

// Add files g under its motif, creating a new motif if no known one is
// isomorphic to it. It reports false when g is outside the node restriction.
func (b *Bucket) Add(g *mobgraph.Graph) bool {
	nn, ne := g.NodeCount(), g.EdgeCount()
	if b.Nodes > 0 && nn != b.Nodes {
		return false
	}

	byEdges, ok := b.all[nn]
	if !ok {
		byEdges = make(map[int][]*Motif)
		b.all[nn] = byEdges
	}

	degrees := g.DegreeSequence()
	for _, m := range byEdges[ne] {
		if CouldBeIsomorphic(degrees, m.degrees) && IsIsomorphic(g, m.Graph) {
			m.Count++
			return true
		}
	}

	byEdges[ne] = append(byEdges[ne], &Motif{Graph: g, Count: 1, degrees: degrees})
	return true
}

// Motifs returns the motifs with n nodes, or all motifs when n is 0, ordered
// by node count, edge count, then decreasing frequency.
func (b *Bucket) Motifs(n int) []*Motif {
	var out []*Motif
	for _, nn := range b.nodeCounts(n) {
		edgeCounts := make([]int, 0, len(b.all[nn]))
		for ne := range b.all[nn] {
			edgeCounts = append(edgeCounts, ne)
		}
		slices.Sort(edgeCounts)

		for _, ne := range edgeCounts {
			ms := slices.Clone(b.all[nn][ne])
			slices.SortStableFunc(ms, func(a, b *Motif) int { return b.Count - a.Count })
			out = append(out, ms...)
		}
	}
	return out
}

// Count returns the number of graphs filed under motifs with n nodes, or
// under all motifs when n is 0
func (b *Bucket) Count(n int) int {
	total := 0
	for _, m := range b.Motifs(n) {
		total += m.Count
	}
	return total
}

// Stat is one row of the motif statistics
type Stat struct {
	Nodes int `json:"nodes"`
	Index int `json:"index"` // rank by frequency among motifs of the same node count
	Edges int `json:"edges"`
	Count int `json:"count"`
}

// Stats ranks the motifs of every node count by frequency
func (b *Bucket) Stats() []Stat {
	var stats []Stat
	for _, nn := range b.nodeCounts(0) {
		ms := b.Motifs(nn)
		slices.SortStableFunc(ms, func(a, b *Motif) int { return b.Count - a.Count })
		for i, m := range ms {
			stats = append(stats, Stat{Nodes: nn, Index: i, Edges: m.Graph.EdgeCount(), Count: m.Count})
		}
	}
	return stats
}

func (b *Bucket) nodeCounts(n int) []int {
	if n > 0 {
		if _, ok := b.all[n]; ok {
			return []int{n}
		}
		return nil
	}
	counts := make([]int, 0, len(b.all))
	for nn := range b.all {
		counts = append(counts, nn)
	}
	slices.Sort(counts)
	return counts
}
