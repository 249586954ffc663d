// Package mesos extracts the mesostructure of two mobility graphs: the
// averaged graph induced by an optimal matching of their edges, together with
// a structural distance between them.
package mesos

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
)

const (
	// DistanceEpsilon absorbs floating point noise: smaller distances are 0
	DistanceEpsilon = 1e-3
	// DefaultLambda mixes edge and endpoint similarity evenly
	DefaultLambda = 0.5

	// frobenius norms below this are treated as an all-zero similarity
	minNorm = 1e-12
)

// Options configures Match
type Options struct {
	NodeAttr mobgraph.NodeAttr
	EdgeAttr mobgraph.EdgeAttr
	Lambda   float64
	Kernel   Kernel
	Solver   Solver
}

// DefaultOptions compares dwelling times on nodes and distances on edges
func DefaultOptions() Options {
	return Options{
		NodeAttr: mobgraph.NodeWeight,
		EdgeAttr: mobgraph.EdgeWeight,
		Lambda:   DefaultLambda,
		Kernel:   NewTACSim(DefaultSharpness, DefaultIterations),
		Solver:   Hungarian{},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NodeAttr == nil {
		o.NodeAttr = def.NodeAttr
	}
	if o.EdgeAttr == nil {
		o.EdgeAttr = def.EdgeAttr
	}
	if o.Kernel == nil {
		o.Kernel = def.Kernel
	}
	if o.Solver == nil {
		o.Solver = def.Solver
	}
	return o
}

// Mesos is the mesostructure of a graph pair. It is immutable.
type Mesos struct {
	g1, g2   *mobgraph.Graph
	opts     Options
	csim     *mat.Dense // Frobenius-normalized similarity, nil when degenerate
	matching []Pair
	graph    *mobgraph.Graph
}

// Match aligns two mobility graphs. The graph with fewer nodes plays the
// first role (ties keep the argument order), its edges are matched one-to-one
// against the other's with minimum total cost 1 - similarity, and the matched
// pairs are averaged into the mesos graph.
//
// Graphs without edges, or with an all-zero similarity, give an empty
// matching and distance 0. A graph compared with an identical one is scored
// with the identity similarity, so its distance is exactly 0.
func Match(g1, g2 *mobgraph.Graph, opts Options) *Mesos {
	opts = opts.withDefaults()
	if g2.NodeCount() < g1.NodeCount() {
		g1, g2 = g2, g1
	}

	m := &Mesos{g1: g1, g2: g2, opts: opts}

	var sim *mat.Dense
	if Identical(g1, g2) {
		sim = identity(g1.EdgeCount())
	} else {
		sim = opts.Kernel.Similarity(g1, g2, opts.NodeAttr, opts.EdgeAttr, opts.Lambda)
	}

	if sim != nil {
		if norm := mat.Norm(sim, 2); norm > minNorm {
			sim.Scale(1/norm, sim)
			m.csim = sim
		}
	}

	if m.csim != nil {
		r, c := m.csim.Dims()
		cost := mat.NewDense(r, c, nil)
		cost.Apply(func(_, _ int, v float64) float64 { return 1 - v }, m.csim)
		m.matching = opts.Solver.Solve(cost)
	}

	m.graph = m.Synthesize(m.matching)
	return m
}

// Synthesize builds the mesos graph of a matching. Mesos node ids are handed
// out in first-seen order of the first graph's edge endpoints. Every matched
// edge pair adds an edge weighted by the mean of the two edge attributes and
// sets its endpoints to the mean of the corresponding node attributes. Node
// weights are assigned, never accumulated, so the result depends only on the
// matching.
func (m *Mesos) Synthesize(matching []Pair) *mobgraph.Graph {
	g := mobgraph.New()
	ids := make(map[int]int)
	canonical := func(node int) int {
		if id, ok := ids[node]; ok {
			return id
		}
		id := len(ids)
		ids[node] = id
		g.AddNode(strconv.Itoa(id), 0)
		return id
	}

	nodeAttr, edgeAttr := m.opts.NodeAttr, m.opts.EdgeAttr
	for _, pr := range matching {
		e1, e2 := m.g1.Edge(pr.Row), m.g2.Edge(pr.Col)
		ns, nt := canonical(e1.From), canonical(e1.To)

		id := g.AddEdge(ns, nt, 0)
		g.SetEdgeWeight(id, (edgeAttr(e1)+edgeAttr(e2))/2)
		g.SetNodeWeight(ns, (nodeAttr(m.g1.Node(e1.From))+nodeAttr(m.g2.Node(e2.From)))/2)
		g.SetNodeWeight(nt, (nodeAttr(m.g1.Node(e1.To))+nodeAttr(m.g2.Node(e2.To)))/2)
	}
	return g
}

// StructDist returns sqrt(1 - Σ csim²) over the matched edge pairs, or 0 when
// that is at most DistanceEpsilon. It lies in [0, 1].
func (m *Mesos) StructDist() float64 {
	return m.structDist(DistanceEpsilon)
}

func (m *Mesos) structDist(eps float64) float64 {
	if m.csim == nil || len(m.matching) == 0 {
		return 0
	}
	var mass float64
	for _, pr := range m.matching {
		s := m.csim.At(pr.Row, pr.Col)
		mass += s * s
	}
	dist := math.Sqrt(math.Max(0, 1-mass))
	if dist <= eps {
		return 0
	}
	return dist
}

// Similarity returns 1 - StructDist
func (m *Mesos) Similarity() float64 {
	return 1 - m.StructDist()
}

// Graph returns the mesos graph
func (m *Mesos) Graph() *mobgraph.Graph { return m.graph }

// Matching returns the matched (edge of first, edge of second) index pairs
func (m *Mesos) Matching() []Pair { return append([]Pair(nil), m.matching...) }

// Graphs returns the compared graphs in matching order (fewer nodes first)
func (m *Mesos) Graphs() (*mobgraph.Graph, *mobgraph.Graph) { return m.g1, m.g2 }

// CSim returns the normalized similarity of an edge pair, 0 when degenerate
func (m *Mesos) CSim(e1, e2 int) float64 {
	if m.csim == nil {
		return 0
	}
	return m.csim.At(e1, e2)
}

// Identical reports whether two graphs have the same nodes and edges in the
// same order with equal weights. Labels are not compared.
func Identical(g1, g2 *mobgraph.Graph) bool {
	if g1 == g2 {
		return true
	}
	if g1.NodeCount() != g2.NodeCount() || g1.EdgeCount() != g2.EdgeCount() {
		return false
	}
	for i := 0; i < g1.NodeCount(); i++ {
		if g1.Node(i).Weight != g2.Node(i).Weight {
			return false
		}
	}
	for i := 0; i < g1.EdgeCount(); i++ {
		a, b := g1.Edge(i), g2.Edge(i)
		if a.From != b.From || a.To != b.To || a.Weight != b.Weight || a.Frequency != b.Frequency {
			return false
		}
	}
	return true
}

func identity(n int) *mat.Dense {
	if n == 0 {
		return nil
	}
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
