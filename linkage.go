package aucell

import (
	"math"
	"sort"
)

// Linkage selects how the distance between two groups is derived when
// building the dendrogram.
type Linkage string

const (
	LinkageSingle   Linkage = "single"
	LinkageAverage  Linkage = "average"
	LinkageComplete Linkage = "complete"
)

// Merge is one step of a dendrogram. Leaves are 0..n-1; the i-th merge
// creates node n+i joining Left and Right at Height, covering Size leaves.
type Merge struct {
	Left, Right int
	Height      float64
	Size        int
}

// buildDendrogram clusters n items from a flat n×n dissimilarity matrix and
// returns the n-1 merges in order of non-decreasing height.
func buildDendrogram(dist []float64, n int, linkage Linkage) []Merge {
	if n < 2 {
		return nil
	}
	if linkage == LinkageSingle {
		return mergesFromEdges(primEdges(dist, n), n)
	}
	return agglomerate(dist, n, linkage)
}

// primEdges returns the n-1 edges [from, to, weight] of a minimum spanning
// tree of the dense dissimilarity matrix, grown from item 0.
func primEdges(dist []float64, n int) [][3]float64 {
	inTree := make([]bool, n)
	nearest := make([]float64, n)
	inTree[0] = true
	for j := 1; j < n; j++ {
		nearest[j] = dist[j]
	}

	edges := make([][3]float64, 0, n-1)
	from := 0
	for range n - 1 {
		next, best := -1, math.Inf(1)
		for j := range n {
			if !inTree[j] && (next == -1 || nearest[j] < best) {
				next, best = j, nearest[j]
			}
		}
		edges = append(edges, [3]float64{float64(from), float64(next), best})
		inTree[next] = true
		from = next
		for j := range n {
			if !inTree[j] && dist[next*n+j] < nearest[j] {
				nearest[j] = dist[next*n+j]
			}
		}
	}
	return edges
}

// mergesFromEdges turns spanning-tree edges into single-linkage merges by
// joining components in order of increasing edge weight.
func mergesFromEdges(edges [][3]float64, n int) []Merge {
	sorted := make([][3]float64, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i][2] < sorted[j][2] })

	uf := newUnionFind(n)
	merges := make([]Merge, 0, len(sorted))
	for _, e := range sorted {
		a := uf.find(int(e[0]))
		b := uf.find(int(e[1]))
		node := uf.join(a, b)
		merges = append(merges, Merge{Left: a, Right: b, Height: e[2], Size: uf.size[node]})
	}
	return merges
}

// agglomerate performs average or complete linkage clustering with the
// Lance-Williams update. Ties are broken by the lowest pair of node IDs.
func agglomerate(dist []float64, n int, linkage Linkage) []Merge {
	d := make([]float64, len(dist))
	copy(d, dist)

	// slot i holds the current node ID and size of an active cluster.
	node := make([]int, n)
	size := make([]int, n)
	active := make([]bool, n)
	for i := range n {
		node[i], size[i], active[i] = i, 1, true
	}

	merges := make([]Merge, 0, n-1)
	for step := range n - 1 {
		a, b := -1, -1
		best := math.Inf(1)
		for i := range n {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && d[i*n+j] < best {
					a, b, best = i, j, d[i*n+j]
				}
			}
		}
		if a == -1 {
			// All remaining distances are +Inf; join the first two active slots.
			for i := range n {
				if active[i] {
					if a == -1 {
						a = i
					} else {
						b = i
						break
					}
				}
			}
			best = d[a*n+b]
		}

		merges = append(merges, Merge{Left: node[a], Right: node[b], Height: best, Size: size[a] + size[b]})

		for k := range n {
			if !active[k] || k == a || k == b {
				continue
			}
			var nd float64
			switch linkage {
			case LinkageComplete:
				nd = math.Max(d[a*n+k], d[b*n+k])
			default:
				nd = (float64(size[a])*d[a*n+k] + float64(size[b])*d[b*n+k]) / float64(size[a]+size[b])
			}
			d[a*n+k], d[k*n+a] = nd, nd
		}
		node[a] = n + step
		size[a] += size[b]
		active[b] = false
	}
	return merges
}

// leafOrder returns the leaves of the dendrogram in left-to-right order.
func leafOrder(merges []Merge, n int) []int {
	if n == 0 {
		return nil
	}
	if len(merges) == 0 {
		return []int{0}
	}
	order := make([]int, 0, n)
	stack := []int{n + len(merges) - 1}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if x < n {
			order = append(order, x)
			continue
		}
		m := merges[x-n]
		stack = append(stack, m.Right, m.Left)
	}
	return order
}
