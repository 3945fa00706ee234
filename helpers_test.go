package aucell

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const floatTol = 1e-10

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

// mustMatrix builds an ExpressionMatrix from gene rows.
func mustMatrix(t testing.TB, rows [][]float64) *ExpressionMatrix {
	t.Helper()
	nGenes, nCells := len(rows), len(rows[0])
	data := make([]float64, 0, nGenes*nCells)
	for _, r := range rows {
		data = append(data, r...)
	}
	m, err := NewExpressionMatrix(ids("g", nGenes), ids("c", nCells), mat.NewDense(nGenes, nCells, data))
	if err != nil {
		t.Fatalf("NewExpressionMatrix: %v", err)
	}
	return m
}

// sparseMatrix returns a genes × cells matrix where roughly density of the
// entries are non-zero counts, seeded for reproducibility.
func sparseMatrix(t testing.TB, nGenes, nCells int, density float64, seed uint64) *ExpressionMatrix {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 1))
	rows := make([][]float64, nGenes)
	for g := range rows {
		rows[g] = make([]float64, nCells)
		for c := range rows[g] {
			if rng.Float64() < density {
				rows[g][c] = float64(1 + rng.IntN(20))
			}
		}
	}
	return mustMatrix(t, rows)
}

// mustScores wraps rows of scores in a ScoreMatrix named s1, s2, ...
func mustScores(t testing.TB, rows [][]float64) *ScoreMatrix {
	t.Helper()
	nSets, nCells := len(rows), len(rows[0])
	data := make([]float64, 0, nSets*nCells)
	for _, r := range rows {
		data = append(data, r...)
	}
	s, err := NewScoreMatrix(ids("s", nSets), ids("c", nCells), mat.NewDense(nSets, nCells, data))
	if err != nil {
		t.Fatalf("NewScoreMatrix: %v", err)
	}
	return s
}
