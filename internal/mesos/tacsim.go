package mesos

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
)

// Kernel computes the combined node-and-edge similarity of two attributed
// graphs. The result is indexed by (edge of g1, edge of g2), has no negative
// entries, and swapping the graphs transposes it. It is nil when either graph
// has no edges.
type Kernel interface {
	Similarity(g1, g2 *mobgraph.Graph, nodeAttr mobgraph.NodeAttr, edgeAttr mobgraph.EdgeAttr, lambda float64) *mat.Dense
}

// Kernel defaults
const (
	DefaultSharpness  = 0.25
	DefaultIterations = 5
)

// TACSim is a topology-attribute coupled similarity. Node and edge
// similarities are refined against each other: two edges are alike when their
// attributes and their endpoints are alike, and two nodes are alike when their
// attributes and the edges around them are alike.
type TACSim struct {
	// Sharpness scales how fast attribute similarity decays with the relative
	// difference of two values. Smaller is stricter.
	Sharpness float64
	// Iterations of the node/edge refinement
	Iterations int
}

// NewTACSim returns the kernel with the given settings. A non-positive
// sharpness or a negative iteration count falls back to the default; zero
// iterations compares attributes only.
func NewTACSim(sharpness float64, iterations int) TACSim {
	if sharpness <= 0 {
		sharpness = DefaultSharpness
	}
	if iterations < 0 {
		iterations = DefaultIterations
	}
	return TACSim{Sharpness: sharpness, Iterations: iterations}
}

// Similarity implements Kernel. lambda weights the edge similarity against the
// similarity of the endpoints.
func (k TACSim) Similarity(g1, g2 *mobgraph.Graph, nodeAttr mobgraph.NodeAttr, edgeAttr mobgraph.EdgeAttr, lambda float64) *mat.Dense {
	n1, n2 := g1.NodeCount(), g2.NodeCount()
	m1, m2 := g1.EdgeCount(), g2.EdgeCount()
	if m1 == 0 || m2 == 0 {
		return nil
	}
	if nodeAttr == nil {
		nodeAttr = mobgraph.NodeWeight
	}
	if edgeAttr == nil {
		edgeAttr = mobgraph.EdgeWeight
	}
	sharp := k.Sharpness
	if sharp <= 0 {
		sharp = DefaultSharpness
	}

	nodeStr := mat.NewDense(n1, n2, nil)
	for u := 0; u < n1; u++ {
		for x := 0; x < n2; x++ {
			nodeStr.Set(u, x, attrSim(nodeAttr(g1.Node(u)), nodeAttr(g2.Node(x)), sharp))
		}
	}
	edgeStr := mat.NewDense(m1, m2, nil)
	for e := 0; e < m1; e++ {
		for f := 0; f < m2; f++ {
			edgeStr.Set(e, f, attrSim(edgeAttr(g1.Edge(e)), edgeAttr(g2.Edge(f)), sharp))
		}
	}

	nodeSim := mat.DenseCopyOf(nodeStr)
	edgeSim := mat.DenseCopyOf(edgeStr)

	for it := 0; it < k.Iterations; it++ {
		nextEdge := mat.NewDense(m1, m2, nil)
		for e := 0; e < m1; e++ {
			a := g1.Edge(e)
			for f := 0; f < m2; f++ {
				b := g2.Edge(f)
				ends := (nodeSim.At(a.From, b.From) + nodeSim.At(a.To, b.To)) / 2
				nextEdge.Set(e, f, edgeStr.At(e, f)*ends)
			}
		}

		nextNode := mat.NewDense(n1, n2, nil)
		for u := 0; u < n1; u++ {
			for x := 0; x < n2; x++ {
				sum, cnt := 0.0, 0
				for _, e := range g1.InEdges(u) {
					for _, f := range g2.InEdges(x) {
						sum += edgeSim.At(e, f)
						cnt++
					}
				}
				for _, e := range g1.OutEdges(u) {
					for _, f := range g2.OutEdges(x) {
						sum += edgeSim.At(e, f)
						cnt++
					}
				}
				if cnt > 0 {
					nextNode.Set(u, x, nodeStr.At(u, x)*sum/float64(cnt))
				}
			}
		}

		scaleToUnit(nextEdge)
		scaleToUnit(nextNode)
		edgeSim, nodeSim = nextEdge, nextNode
	}

	combined := mat.NewDense(m1, m2, nil)
	for e := 0; e < m1; e++ {
		a := g1.Edge(e)
		for f := 0; f < m2; f++ {
			b := g2.Edge(f)
			ends := (nodeSim.At(a.From, b.From) + nodeSim.At(a.To, b.To)) / 2
			combined.Set(e, f, lambda*edgeSim.At(e, f)+(1-lambda)*ends)
		}
	}
	return combined
}

// attrSim is 1 for equal values and decays exponentially with their relative
// difference
func attrSim(a, b, sharpness float64) float64 {
	if a == b {
		return 1
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Exp(-math.Abs(a-b) / scale / sharpness)
}

// scaleToUnit divides m by its largest entry, leaving all-zero matrices alone
func scaleToUnit(m *mat.Dense) {
	if top := mat.Max(m); top > 0 {
		m.Scale(1/top, m)
	}
}
