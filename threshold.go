package aucell

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// densityGridPoints is the number of points scanned between two adjacent
// component means when searching for a density minimum.
const densityGridPoints = 512

// Confidence grades how a threshold was obtained.
type Confidence string

const (
	// ConfidenceHigh: the threshold sits at a density minimum between fitted
	// mixture components and both sides hold enough cells.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow: no usable split was found and the fallback quantile was used.
	ConfidenceLow Confidence = "low"
	// ConfidenceNone: every cell has the same score; no cell is active.
	ConfidenceNone Confidence = "none"
)

// ThresholdConfig controls threshold selection.
// Start with [DefaultThresholdConfig] and override the fields you need.
type ThresholdConfig struct {
	// Seed drives the mixture initialization. Each set uses its own stream
	// derived from (Seed, set row). Default: 0.
	Seed uint64

	// MinPopulationFraction is the smallest share of cells that each side of a
	// mixture split must hold. The absolute minimum is never below 2 cells.
	// Must be in [0, 0.5]. Default: 0.01.
	MinPopulationFraction float64

	// MaxComponents is the largest mixture tried; fits use 1..MaxComponents
	// components. Must be in [1, 3]. Default: 3.
	MaxComponents int

	// MaxIterations caps each EM fit. Must be >= 1. Default: 500.
	MaxIterations int

	// Tolerance is the EM convergence threshold on the mean per-cell
	// log-likelihood change. Must be > 0. Default: 1e-6.
	Tolerance float64

	// FallbackQuantile is the quantile of a set's own scores used as its
	// threshold when no mixture split is acceptable. Must be in [0, 1].
	// Default: 0.95.
	FallbackQuantile float64

	// Workers is the number of goroutines; 0 means runtime.NumCPU().
	Workers int
}

// DefaultThresholdConfig returns a ThresholdConfig with reasonable defaults.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		MinPopulationFraction: 0.01,
		MaxComponents:         3,
		MaxIterations:         500,
		Tolerance:             1e-6,
		FallbackQuantile:      0.95,
	}
}

func (cfg ThresholdConfig) validate() error {
	if cfg.MinPopulationFraction < 0 || cfg.MinPopulationFraction > 0.5 {
		return fmt.Errorf("aucell: MinPopulationFraction must be in [0, 0.5], got %f", cfg.MinPopulationFraction)
	}
	if cfg.MaxComponents < 1 || cfg.MaxComponents > 3 {
		return fmt.Errorf("aucell: MaxComponents must be in [1, 3], got %d", cfg.MaxComponents)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("aucell: MaxIterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.Tolerance <= 0 {
		return fmt.Errorf("aucell: Tolerance must be > 0, got %g", cfg.Tolerance)
	}
	if cfg.FallbackQuantile < 0 || cfg.FallbackQuantile > 1 {
		return fmt.Errorf("aucell: FallbackQuantile must be in [0, 1], got %f", cfg.FallbackQuantile)
	}
	return nil
}

// sanitize replaces out-of-range fields with their defaults so threshold
// selection can always proceed.
func (cfg ThresholdConfig) sanitize() ThresholdConfig {
	def := DefaultThresholdConfig()
	if cfg.MinPopulationFraction < 0 || cfg.MinPopulationFraction > 0.5 {
		cfg.MinPopulationFraction = def.MinPopulationFraction
	}
	if cfg.MaxComponents < 1 || cfg.MaxComponents > 3 {
		cfg.MaxComponents = def.MaxComponents
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.FallbackQuantile < 0 || cfg.FallbackQuantile > 1 {
		cfg.FallbackQuantile = def.FallbackQuantile
	}
	return cfg
}

// Threshold is the active/inactive call for one gene set.
type Threshold struct {
	Set   string
	Value float64

	// Assignment lists, in increasing order, the cell columns whose score is
	// >= Value. It is always exactly CellsAtOrAbove(row, Value).
	Assignment []int

	Comment    string
	Confidence Confidence

	// Components is the size of the mixture the split came from; 0 for
	// fallback and constant rows.
	Components int
	Fallback   bool
}

// Recompute returns the cells of row scoring at or above the threshold. For
// the row the threshold was selected on it equals Assignment.
func (t Threshold) Recompute(row []float64) []int {
	return CellsAtOrAbove(row, t.Value)
}

// ThresholdSet holds one Threshold per ScoreMatrix row, in row order.
type ThresholdSet struct {
	Thresholds []Threshold
	cells      []string
}

// CellsAtOrAbove returns the indices of row whose value is >= threshold.
func CellsAtOrAbove(row []float64, threshold float64) []int {
	cells := make([]int, 0, len(row))
	for i, v := range row {
		if v >= threshold {
			cells = append(cells, i)
		}
	}
	return cells
}

// SelectThresholds picks an activity threshold for every row of s. It never
// fails: rows without a clear mixture split fall back to cfg.FallbackQuantile
// of their own scores and say so in the comment. Invalid config fields are
// replaced by their defaults. Rows are processed in parallel; each row uses a
// random stream derived from (cfg.Seed, row), so the result does not depend
// on the worker count.
func SelectThresholds(s *ScoreMatrix, cfg ThresholdConfig) *ThresholdSet {
	cfg = cfg.sanitize()
	nSets, _ := s.Dims()
	start := time.Now()

	ts := &ThresholdSet{
		Thresholds: make([]Threshold, nSets),
		cells:      s.cells,
	}
	parallelRange(nSets, cfg.Workers, func(from, to int) {
		for i := from; i < to; i++ {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			t := selectThreshold(s.Row(i), rng, cfg)
			t.Set = s.sets[i]
			ts.Thresholds[i] = t
		}
	})

	fallbacks := 0
	for _, t := range ts.Thresholds {
		if t.Fallback {
			fallbacks++
			log.Debug().Str("set", t.Set).Float64("threshold", t.Value).Msg(t.Comment)
		}
	}
	log.Debug().
		Int("sets", nSets).
		Int("fallbacks", fallbacks).
		Dur("elapsed", time.Since(start)).
		Msg("selected thresholds")

	return ts
}

// selectThreshold computes the threshold of a single row of scores.
func selectThreshold(row []float64, rng *rand.Rand, cfg ThresholdConfig) Threshold {
	n := len(row)
	if n == 0 {
		return Threshold{Value: math.Inf(1), Comment: "no cells", Confidence: ConfidenceNone}
	}

	sorted := slices.Clone(row)
	slices.Sort(sorted)

	if sorted[0] == sorted[n-1] {
		v := math.Nextafter(sorted[0], math.Inf(1))
		return Threshold{
			Value:      v,
			Assignment: CellsAtOrAbove(row, v),
			Comment:    "constant scores: no cell marked active",
			Confidence: ConfidenceNone,
		}
	}

	minPop := max(2, int(math.Ceil(cfg.MinPopulationFraction*float64(n))))
	value, k, reason, ok := mixtureSplit(row, sorted, rng, minPop, cfg)
	if ok {
		comment := "clear bimodal split"
		if k > 2 {
			comment = fmt.Sprintf("split at deepest density minimum of %d components", k)
		}
		return Threshold{
			Value:      value,
			Assignment: CellsAtOrAbove(row, value),
			Comment:    comment,
			Confidence: ConfidenceHigh,
			Components: k,
		}
	}

	q := stat.Quantile(cfg.FallbackQuantile, stat.Empirical, sorted, nil)
	return Threshold{
		Value:      q,
		Assignment: CellsAtOrAbove(row, q),
		Comment:    fmt.Sprintf("no clear threshold (%s): used %g quantile", reason, cfg.FallbackQuantile),
		Confidence: ConfidenceLow,
		Fallback:   true,
	}
}

type fittedMixture struct {
	m   *Mixture
	bic float64
}

// mixtureSplit fits mixtures of 1..MaxComponents components and tries the
// multi-component fits in order of increasing BIC, returning the first
// acceptable split. reason explains the failure when ok is false.
func mixtureSplit(row, sorted []float64, rng *rand.Rand, minPop int, cfg ThresholdConfig) (value float64, k int, reason string, ok bool) {
	n := len(row)
	var fits []fittedMixture
	for comps := 1; comps <= cfg.MaxComponents; comps++ {
		m, err := FitMixture(row, comps, rng, cfg.MaxIterations, cfg.Tolerance)
		if err != nil {
			continue
		}
		fits = append(fits, fittedMixture{m: m, bic: m.BIC(n)})
	}
	if len(fits) == 0 {
		return 0, 0, "mixture fit did not converge", false
	}
	sort.SliceStable(fits, func(a, b int) bool { return fits[a].bic < fits[b].bic })
	if fits[0].m.K() == 1 {
		return 0, 0, "unimodal score distribution", false
	}

	reason = "no interior density minimum"
	for _, f := range fits {
		if f.m.K() < 2 {
			continue
		}
		candidates := densityMinima(f.m)
		if len(candidates) == 0 {
			continue
		}
		best, found := bestSplit(candidates, sorted, minPop)
		if found {
			return best, f.m.K(), "", true
		}
		reason = fmt.Sprintf("minority group smaller than %d cells", minPop)
	}
	return 0, 0, reason, false
}

type valley struct {
	at    float64
	depth float64 // log-density drop below the lower of the two adjacent means
}

// densityMinima scans the mixture density between each pair of adjacent
// component means and returns the interior minima.
func densityMinima(m *Mixture) []valley {
	terms := make([]float64, m.K())
	var out []valley
	for j := 0; j+1 < m.K(); j++ {
		lo, hi := m.Means[j], m.Means[j+1]
		if !(hi > lo) {
			continue
		}
		edge := math.Min(m.logDensity(lo, terms), m.logDensity(hi, terms))
		step := (hi - lo) / float64(densityGridPoints+1)

		bestAt, bestLD := 0.0, math.Inf(1)
		for g := 1; g <= densityGridPoints; g++ {
			x := lo + float64(g)*step
			if ld := m.logDensity(x, terms); ld < bestLD {
				bestAt, bestLD = x, ld
			}
		}
		if bestLD < edge {
			out = append(out, valley{at: bestAt, depth: edge - bestLD})
		}
	}
	return out
}

// bestSplit returns the deepest valley that leaves at least minPop cells on
// each side.
func bestSplit(candidates []valley, sorted []float64, minPop int) (float64, bool) {
	n := len(sorted)
	found := false
	var best valley
	for _, v := range candidates {
		below := sort.SearchFloat64s(sorted, v.at) // cells with score < v.at
		above := n - below
		if below < minPop || above < minPop {
			continue
		}
		if !found || v.depth > best.depth {
			best, found = v, true
		}
	}
	return best.at, found
}

// Cells returns the cell identifiers, in column order.
func (ts *ThresholdSet) Cells() []string { return ts.cells }

// Lookup returns the threshold of the named set.
func (ts *ThresholdSet) Lookup(set string) (Threshold, bool) {
	for _, t := range ts.Thresholds {
		if t.Set == set {
			return t, true
		}
	}
	return Threshold{}, false
}

// ActiveCells returns the identifiers of the cells assigned to threshold i.
func (ts *ThresholdSet) ActiveCells(i int) []string {
	ids := make([]string, len(ts.Thresholds[i].Assignment))
	for j, c := range ts.Thresholds[i].Assignment {
		ids[j] = ts.cells[c]
	}
	return ids
}

// BinaryMatrix returns the sets × cells activity matrix: 1 where a cell is
// assigned to the set, 0 elsewhere. It returns nil when there are no sets.
func (ts *ThresholdSet) BinaryMatrix() *mat.Dense {
	if len(ts.Thresholds) == 0 || len(ts.cells) == 0 {
		return nil
	}
	b := mat.NewDense(len(ts.Thresholds), len(ts.cells), nil)
	for i, t := range ts.Thresholds {
		for _, c := range t.Assignment {
			b.Set(i, c, 1)
		}
	}
	return b
}
