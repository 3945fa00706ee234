package aucell

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// lowCoverageFraction is the share of present genes below which a gene set is
// logged as poorly covered by the matrix.
const lowCoverageFraction = 0.8

// ScoreMatrix is the dense gene sets × cells matrix of AUC scores. Rows follow
// the order of the scored gene sets; sets that could not be scored are listed
// in Skipped instead of having a row.
type ScoreMatrix struct {
	sets   []string
	cells  []string
	scores *mat.Dense // nil when no set was scored

	// RankCutoff is the k the scores were computed with; 0 for matrices built
	// with NewScoreMatrix.
	RankCutoff int

	// Skipped lists the gene sets without a row, each wrapping ErrEmptyGeneSet
	// or ErrDuplicateGeneSet.
	Skipped []*GeneSetError

	// Coverage reports found and missing genes for every catalog set, in
	// catalog order.
	Coverage []Coverage
}

// NewScoreMatrix wraps precomputed scores (sets × cells). It is used to run
// threshold selection or clustering on scores produced elsewhere. Scores must
// be finite and in [0, 1]; errors wrap ErrInvalidScores.
func NewScoreMatrix(sets, cells []string, scores *mat.Dense) (*ScoreMatrix, error) {
	if scores == nil {
		if len(sets) != 0 {
			return nil, fmt.Errorf("aucell: %d set names but no scores", len(sets))
		}
		return &ScoreMatrix{cells: append([]string(nil), cells...)}, nil
	}
	r, c := scores.Dims()
	if r != len(sets) || c != len(cells) {
		return nil, fmt.Errorf("aucell: scores are %dx%d but got %d sets and %d cells", r, c, len(sets), len(cells))
	}
	for i := range r {
		for j := range c {
			if v := scores.At(i, j); math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: score %v for set %q in cell %q", ErrInvalidScores, v, sets[i], cells[j])
			}
		}
	}
	return &ScoreMatrix{
		sets:   append([]string(nil), sets...),
		cells:  append([]string(nil), cells...),
		scores: scores,
	}, nil
}

// ScoreGeneSets computes the AUC of every gene set in every cell using the
// first rankCutoff ranking positions.
//
// ErrInvalidCutoff is returned, before any scoring, when rankCutoff is not in
// [1, nGenes]. A set with no genes in the rankings, or reusing the name of an
// earlier set, is not fatal: it gets no row and is reported in
// ScoreMatrix.Skipped. Sets are scored in parallel,
// each worker writing only its own rows. workers <= 0 means runtime.NumCPU().
func ScoreGeneSets(r *RankingSet, catalog []GeneSet, rankCutoff, workers int) (*ScoreMatrix, error) {
	if r == nil {
		return nil, fmt.Errorf("aucell: nil rankings")
	}
	nGenes, nCells := r.Dims()
	if rankCutoff <= 0 || rankCutoff > nGenes {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCutoff, rankCutoff, nGenes)
	}

	start := time.Now()
	sm := &ScoreMatrix{
		cells:      r.cells,
		RankCutoff: rankCutoff,
		Coverage:   make([]Coverage, 0, len(catalog)),
	}

	var memberRows [][]int
	seen := make(map[string]bool, len(catalog))
	for _, s := range catalog {
		if seen[s.Name] {
			sm.Skipped = append(sm.Skipped, &GeneSetError{Set: s.Name, Err: ErrDuplicateGeneSet})
			log.Warn().Str("set", s.Name).Msg("duplicate gene set name, keeping the first")
			continue
		}
		seen[s.Name] = true

		members, missing := resolveMembers(s, r.geneIndex)
		cov := Coverage{Set: s.Name, Found: len(members), Missing: missing}
		sm.Coverage = append(sm.Coverage, cov)

		if len(members) == 0 {
			sm.Skipped = append(sm.Skipped, &GeneSetError{Set: s.Name, Err: ErrEmptyGeneSet})
			log.Warn().Str("set", s.Name).Int("missing", len(missing)).Msg("gene set has no genes in the rankings, skipping")
			continue
		}
		if cov.Fraction() < lowCoverageFraction {
			log.Warn().
				Str("set", s.Name).
				Int("found", cov.Found).
				Int("missing", len(missing)).
				Msgf("only %.0f%% of the gene set is present in the rankings", 100*cov.Fraction())
		}
		sm.sets = append(sm.sets, s.Name)
		memberRows = append(memberRows, members)
	}

	if len(memberRows) == 0 {
		log.Warn().Int("sets", len(catalog)).Msg("no gene set could be scored")
		return sm, nil
	}

	data := make([]float64, len(memberRows)*nCells)
	parallelRange(len(memberRows), workers, func(from, to int) {
		for i := from; i < to; i++ {
			members := memberRows[i]
			row := data[i*nCells : (i+1)*nCells]
			for c := range nCells {
				row[c] = AUC(r.CellRanks(c), members, rankCutoff)
			}
		}
	})
	sm.scores = mat.NewDense(len(memberRows), nCells, data)

	log.Debug().
		Int("sets", len(memberRows)).
		Int("skipped", len(sm.Skipped)).
		Int("cells", nCells).
		Int("rankCutoff", rankCutoff).
		Dur("elapsed", time.Since(start)).
		Msg("scored gene sets")

	return sm, nil
}

// Dims returns the number of scored sets and cells.
func (s *ScoreMatrix) Dims() (sets, cells int) { return len(s.sets), len(s.cells) }

// Sets returns the names of the scored sets in row order. The slice must not be modified.
func (s *ScoreMatrix) Sets() []string { return s.sets }

// Cells returns the cell identifiers in column order. The slice must not be modified.
func (s *ScoreMatrix) Cells() []string { return s.cells }

// Matrix returns the underlying scores, or nil when no set was scored.
// The matrix must not be modified.
func (s *ScoreMatrix) Matrix() *mat.Dense { return s.scores }

// At returns the score of set row i in cell j.
func (s *ScoreMatrix) At(i, j int) float64 { return s.scores.At(i, j) }

// Row returns a copy of the scores of set row i across all cells.
func (s *ScoreMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, s.scores)
}

// RowByName returns a copy of the scores of the named set.
func (s *ScoreMatrix) RowByName(name string) ([]float64, bool) {
	for i, n := range s.sets {
		if n == name {
			return s.Row(i), true
		}
	}
	return nil, false
}
