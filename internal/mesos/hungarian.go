package mesos

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Pair matches row Row of a cost matrix with column Col
type Pair struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Solver solves the minimum-cost assignment problem on a (possibly
// rectangular) cost matrix. Every row or every column, whichever is fewer, is
// assigned exactly once. Pairs are returned ordered by row.
type Solver interface {
	Solve(cost mat.Matrix) []Pair
}

// Hungarian is the O(n²m) shortest augmenting path variant of the Hungarian
// (Kuhn-Munkres) algorithm with row and column potentials.
type Hungarian struct{}

// Solve implements Solver
func (Hungarian) Solve(cost mat.Matrix) []Pair {
	if cost == nil {
		return nil
	}
	r, c := cost.Dims()
	if r == 0 || c == 0 {
		return nil
	}
	if r > c {
		pairs := hungarian(cost.T())
		for i := range pairs {
			pairs[i].Row, pairs[i].Col = pairs[i].Col, pairs[i].Row
		}
		slices.SortFunc(pairs, func(a, b Pair) int { return a.Row - b.Row })
		return pairs
	}
	return hungarian(cost)
}

// hungarian requires rows <= cols. Arrays are 1-based; index 0 is the
// virtual row/column the augmenting paths start from.
func hungarian(a mat.Matrix) []Pair {
	n, m := a.Dims()

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j]: row assigned to column j
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		used := make([]bool, m+1)

		for {
			used[j0] = true
			i0, delta, j1 := p[j0], math.Inf(1), 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := a.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	pairs := make([]Pair, 0, n)
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			pairs = append(pairs, Pair{Row: p[j] - 1, Col: j - 1})
		}
	}
	slices.SortFunc(pairs, func(a, b Pair) int { return a.Row - b.Row })
	return pairs
}

// TotalCost sums the cost of the assigned cells
func TotalCost(cost mat.Matrix, pairs []Pair) float64 {
	var total float64
	for _, pr := range pairs {
		total += cost.At(pr.Row, pr.Col)
	}
	return total
}
