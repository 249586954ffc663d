package mobgraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned by Unmarshal for malformed graph text
var ErrInvalidFormat = errors.New("invalid graph format")

// Marshal encodes g as "<nodes>|<edges>". Nodes are ';'-joined "label,weight"
// and edges ';'-joined "src,dst,weight", with indices into the node list and
// weights printed with three decimals. With normalize set, node weights and
// edge weights are each scaled to sum to 1.
func Marshal(g *Graph, normalize bool) string {
	nodeScale, edgeScale := 1.0, 1.0
	if normalize {
		nodeScale = inverseSum(len(g.nodes), func(i int) float64 { return g.nodes[i].Weight })
		edgeScale = inverseSum(len(g.edges), func(i int) float64 { return g.edges[i].Weight })
	}

	var b strings.Builder
	for i, n := range g.nodes {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s,%.3f", n.Label, n.Weight*nodeScale)
	}
	b.WriteByte('|')
	for i, e := range g.edges {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%d,%d,%.3f", e.From, e.To, e.Weight*edgeScale)
	}
	return b.String()
}

func inverseSum(n int, weight func(int) float64) float64 {
	var sum float64
	for i := 0; i < n; i++ {
		sum += weight(i)
	}
	if sum == 0 {
		return 1
	}
	return 1 / sum
}

// Unmarshal parses the Marshal format. Edge frequencies are not encoded and
// come back as 1.
func Unmarshal(s string) (*Graph, error) {
	nodePart, edgePart, ok := strings.Cut(strings.TrimSpace(s), "|")
	if !ok {
		return nil, fmt.Errorf("%w: missing '|' separator", ErrInvalidFormat)
	}

	g := New()
	if nodePart != "" {
		for i, item := range strings.Split(nodePart, ";") {
			// labels may not contain ',', the weight is after the last one
			sep := strings.LastIndexByte(item, ',')
			if sep <= 0 {
				return nil, fmt.Errorf("%w: node %d %q", ErrInvalidFormat, i, item)
			}
			w, err := strconv.ParseFloat(item[sep+1:], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: node %d weight: %v", ErrInvalidFormat, i, err)
			}
			label := item[:sep]
			if _, dup := g.NodeIndex(label); dup {
				return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidFormat, label)
			}
			g.AddNode(label, w)
		}
	}

	if edgePart != "" {
		for i, item := range strings.Split(edgePart, ";") {
			fields := strings.Split(item, ",")
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: edge %d %q", ErrInvalidFormat, i, item)
			}
			from, err1 := strconv.Atoi(fields[0])
			to, err2 := strconv.Atoi(fields[1])
			w, err3 := strconv.ParseFloat(fields[2], 64)
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, fmt.Errorf("%w: edge %d: %v", ErrInvalidFormat, i, err)
			}
			if from < 0 || from >= g.NodeCount() || to < 0 || to >= g.NodeCount() {
				return nil, fmt.Errorf("%w: edge %d references unknown node", ErrInvalidFormat, i)
			}
			g.AddEdge(from, to, w)
		}
	}

	return g, nil
}
