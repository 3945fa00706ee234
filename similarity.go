package aucell

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// minDissimilarity keeps merge heights strictly positive so the inverse
// heights used by group selection stay finite.
const minDissimilarity = 1e-12

// averageRanks returns the 1-based ranks of x in increasing order, giving tied
// values the mean of the ranks they span.
func averageRanks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		// Positions i..j-1 share the average of ranks i+1..j.
		avg := float64(i+j+1) / 2
		for p := i; p < j; p++ {
			ranks[idx[p]] = avg
		}
		i = j
	}
	return ranks
}

// SpearmanCorrelation returns the rank correlation of a and b. The result is
// NaN when either input is constant.
func SpearmanCorrelation(a, b []float64) float64 {
	return stat.Correlation(averageRanks(a), averageRanks(b), nil)
}

// dissimilarityMatrix returns the flat n×n matrix of 1 - Spearman correlation
// between rows. Rows must not be constant. Off-diagonal entries are clamped to
// [minDissimilarity, 2]. Each worker fills whole rows of the upper triangle
// and their mirrored entries, so no two workers write the same slot.
func dissimilarityMatrix(rows [][]float64, workers int) []float64 {
	n := len(rows)
	ranked := make([][]float64, n)
	parallelRange(n, workers, func(from, to int) {
		for i := from; i < to; i++ {
			ranked[i] = averageRanks(rows[i])
		}
	})

	dist := make([]float64, n*n)
	parallelRange(n, workers, func(from, to int) {
		for i := from; i < to; i++ {
			for j := i + 1; j < n; j++ {
				d := 1 - stat.Correlation(ranked[i], ranked[j], nil)
				if math.IsNaN(d) {
					d = 1
				}
				d = math.Min(math.Max(d, minDissimilarity), 2)
				dist[i*n+j] = d
				dist[j*n+i] = d
			}
		}
	})
	return dist
}
