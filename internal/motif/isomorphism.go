package motif

import (
	"slices"

	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
)

// CouldBeIsomorphic compares sorted (in, out) degree sequences. False means
// the graphs are certainly not isomorphic; true is only a candidate.
func CouldBeIsomorphic(d1, d2 [][2]int) bool {
	return slices.Equal(d1, d2)
}

// IsIsomorphic reports whether the directed graphs have the same shape.
// Weights and labels are ignored.
func IsIsomorphic(g1, g2 *mobgraph.Graph) bool {
	n := g1.NodeCount()
	if n != g2.NodeCount() || g1.EdgeCount() != g2.EdgeCount() {
		return false
	}
	if !CouldBeIsomorphic(g1.DegreeSequence(), g2.DegreeSequence()) {
		return false
	}

	m := &matcher{
		g1:      g1,
		g2:      g2,
		mapping: make([]int, n),
		used:    make([]bool, n),
	}
	for i := range m.mapping {
		m.mapping[i] = -1
	}

	// most constrained nodes first
	m.order = make([]int, n)
	for i := range m.order {
		m.order[i] = i
	}
	slices.SortStableFunc(m.order, func(a, b int) int {
		return g1.InDegree(b) + g1.OutDegree(b) - g1.InDegree(a) - g1.OutDegree(a)
	})

	return m.extend(0)
}

type matcher struct {
	g1, g2  *mobgraph.Graph
	order   []int
	mapping []int // g1 node -> g2 node
	used    []bool
}

func (m *matcher) extend(depth int) bool {
	if depth == len(m.order) {
		return true
	}
	u := m.order[depth]
	for v := 0; v < m.g2.NodeCount(); v++ {
		if m.used[v] || !m.feasible(u, v) {
			continue
		}
		m.mapping[u], m.used[v] = v, true
		if m.extend(depth + 1) {
			return true
		}
		m.mapping[u], m.used[v] = -1, false
	}
	return false
}

// feasible checks degrees and every edge between u and already mapped nodes
func (m *matcher) feasible(u, v int) bool {
	if m.g1.InDegree(u) != m.g2.InDegree(v) || m.g1.OutDegree(u) != m.g2.OutDegree(v) {
		return false
	}
	for w, x := range m.mapping {
		if x < 0 && w != u {
			continue
		}
		if w == u {
			x = v
		}
		_, e1 := m.g1.EdgeIndex(u, w)
		_, e2 := m.g2.EdgeIndex(v, x)
		if e1 != e2 {
			return false
		}
		_, e1 = m.g1.EdgeIndex(w, u)
		_, e2 = m.g2.EdgeIndex(x, v)
		if e1 != e2 {
			return false
		}
	}
	return true
}
