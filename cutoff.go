package aucell

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// detectionQuantiles are the probabilities reported by DetectionStats.
var detectionQuantiles = []float64{0, 0.01, 0.05, 0.10, 0.50, 1}

// Detection summarizes how many genes are detected (expression > 0) per cell.
type Detection struct {
	// PerCell is the number of detected genes in each cell, in column order.
	PerCell []int

	// Quantiles maps each probability in Probabilities to the empirical
	// quantile of PerCell.
	Probabilities []float64
	Quantiles     []float64
}

// DetectionStats counts detected genes per cell and summarizes the
// distribution. It guides the choice of the rank cutoff: k should stay below
// the point where most cells run out of non-zero, meaningfully ranked genes.
func DetectionStats(m *ExpressionMatrix) Detection {
	nGenes, nCells := m.Dims()
	perCell := make([]int, nCells)
	column := make([]float64, nGenes)
	for c := range nCells {
		m.CellColumn(column, c)
		for _, v := range column {
			if v > 0 {
				perCell[c]++
			}
		}
	}

	sorted := make([]float64, nCells)
	for i, n := range perCell {
		sorted[i] = float64(n)
	}
	slices.Sort(sorted)

	q := make([]float64, len(detectionQuantiles))
	for i, p := range detectionQuantiles {
		q[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	return Detection{
		PerCell:       perCell,
		Probabilities: append([]float64(nil), detectionQuantiles...),
		Quantiles:     q,
	}
}

// CutoffPolicy chooses the rank cutoff k for a run from the detected-genes
// distribution. See RankCutoff.
type CutoffPolicy struct {
	// DetectedQuantile is the quantile of detected genes per cell used as k.
	// Must be in [0, 1]. Default: 0.01.
	DetectedQuantile float64

	// GeneFraction sets k to ceil(GeneFraction * nGenes) when the quantile
	// yields fewer than Min genes. Must be in (0, 1]. Default: 0.05.
	GeneFraction float64

	// Min is the smallest acceptable k from the quantile rule. Default: 1.
	Min int
}

// DefaultCutoffPolicy returns the policy used when none is configured.
func DefaultCutoffPolicy() CutoffPolicy {
	return CutoffPolicy{DetectedQuantile: 0.01, GeneFraction: 0.05, Min: 1}
}

func (p CutoffPolicy) validate() error {
	if p.DetectedQuantile < 0 || p.DetectedQuantile > 1 {
		return fmt.Errorf("aucell: DetectedQuantile must be in [0, 1], got %f", p.DetectedQuantile)
	}
	if p.GeneFraction <= 0 || p.GeneFraction > 1 {
		return fmt.Errorf("aucell: GeneFraction must be in (0, 1], got %f", p.GeneFraction)
	}
	if p.Min < 1 {
		return fmt.Errorf("aucell: cutoff Min must be >= 1, got %d", p.Min)
	}
	return nil
}

// RankCutoff applies policy to the detection statistics of m and returns a k
// in [1, nGenes].
func RankCutoff(m *ExpressionMatrix, policy CutoffPolicy) (int, error) {
	if err := policy.validate(); err != nil {
		return 0, err
	}
	nGenes, _ := m.Dims()
	return cutoffFromDetection(DetectionStats(m), nGenes, policy), nil
}

func cutoffFromDetection(d Detection, nGenes int, policy CutoffPolicy) int {
	sorted := make([]float64, len(d.PerCell))
	for i, n := range d.PerCell {
		sorted[i] = float64(n)
	}
	slices.Sort(sorted)

	k := int(math.Floor(stat.Quantile(policy.DetectedQuantile, stat.Empirical, sorted, nil)))
	if k < policy.Min {
		k = int(math.Ceil(policy.GeneFraction * float64(nGenes)))
	}
	return max(1, min(k, nGenes))
}
