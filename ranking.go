package aucell

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// RankingSet holds one ranking per cell: the 1-based position of every gene
// when the cell's genes are ordered by decreasing expression. It is built once
// by BuildRankings and read-only afterwards.
type RankingSet struct {
	ranks     []int32 // cell-major: ranks[cell*nGenes+gene]
	nGenes    int
	genes     []string
	cells     []string
	geneIndex map[string]int
	seed      uint64
}

// cellStream returns the tie-breaking random stream for one cell. The stream
// depends only on (seed, cell), never on scheduling.
func cellStream(seed uint64, cell int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(cell)))
}

// BuildRankings ranks the genes of every cell by decreasing expression.
// Genes with equal values (typically the large block of zeros) are ordered by
// a pseudo-random permutation drawn from a stream seeded with (seed, cell), so
// identical inputs and seed give bit-identical rankings for any worker count.
// workers <= 0 means runtime.NumCPU().
func BuildRankings(m *ExpressionMatrix, seed uint64, workers int) (*RankingSet, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidMatrix)
	}
	nGenes, nCells := m.Dims()
	if nGenes == 0 || nCells == 0 {
		return nil, fmt.Errorf("%w: %d genes x %d cells", ErrInvalidMatrix, nGenes, nCells)
	}

	start := time.Now()
	ranks := make([]int32, nGenes*nCells)

	parallelRange(nCells, workers, func(from, to int) {
		column := make([]float64, nGenes)
		for c := from; c < to; c++ {
			m.CellColumn(column, c)
			order := rankCell(column, cellStream(seed, c))
			cellRanks := ranks[c*nGenes : (c+1)*nGenes]
			for pos, g := range order {
				cellRanks[g] = int32(pos + 1)
			}
		}
	})

	log.Debug().
		Int("genes", nGenes).
		Int("cells", nCells).
		Uint64("seed", seed).
		Dur("elapsed", time.Since(start)).
		Msg("built cell rankings")

	return &RankingSet{
		ranks:     ranks,
		nGenes:    nGenes,
		genes:     m.genes,
		cells:     m.cells,
		geneIndex: m.geneIndex,
		seed:      seed,
	}, nil
}

// rankCell returns gene indices ordered by decreasing value. The order starts
// as a random permutation and the sort is stable, so ties keep random order.
func rankCell(values []float64, rng *rand.Rand) []int {
	order := rng.Perm(len(values))
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(values[b], values[a])
	})
	return order
}

// Dims returns the number of genes and cells.
func (r *RankingSet) Dims() (genes, cells int) { return r.nGenes, len(r.cells) }

// Genes returns the gene identifiers. The slice must not be modified.
func (r *RankingSet) Genes() []string { return r.genes }

// Cells returns the cell identifiers. The slice must not be modified.
func (r *RankingSet) Cells() []string { return r.cells }

// Seed returns the seed the rankings were built with.
func (r *RankingSet) Seed() uint64 { return r.seed }

// Rank returns the 1-based rank of gene in cell.
func (r *RankingSet) Rank(gene, cell int) int {
	return int(r.ranks[cell*r.nGenes+gene])
}

// CellRanks returns the rank of every gene in cell, indexed by gene row.
// The returned slice aliases internal storage and must not be modified.
func (r *RankingSet) CellRanks(cell int) []int32 {
	return r.ranks[cell*r.nGenes : (cell+1)*r.nGenes]
}

// Order returns the gene rows of cell from rank 1 to rank nGenes.
func (r *RankingSet) Order(cell int) []int {
	order := make([]int, r.nGenes)
	for g, rank := range r.CellRanks(cell) {
		order[rank-1] = g
	}
	return order
}
