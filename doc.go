// Package aucell scores the activity of gene sets in single cells and calls
// each set active or inactive per cell.
//
// Every cell's genes are ranked by decreasing expression, with ties broken by
// a seeded pseudo-random permutation. A gene set's score in a cell is the area
// under its recovery curve over the first k ranking positions, normalized to
// [0, 1] by the best area a set of that size could reach. Each set's scores
// across cells are then split into active and inactive cells at a density
// minimum of a fitted Gaussian mixture, or at a fixed quantile when the
// scores show no clear split.
//
// Basic usage:
//
//	m, err := aucell.NewExpressionMatrix(genes, cells, values) // genes × cells
//	cfg := aucell.DefaultConfig()
//	cfg.Seed = 42
//	result, err := aucell.Run(m, geneSets, cfg)
//	// result.Scores.At(i, j) is the AUC of set i in cell j
//	// result.Thresholds.Thresholds[i].Assignment lists the active cells of set i
//	// result.Skipped reports gene sets that could not be scored
//
// The stages can also be run one at a time:
//
//	rankings, err := aucell.BuildRankings(m, seed, workers)
//	scores, err := aucell.ScoreGeneSets(rankings, geneSets, k, workers)
//	thresholds := aucell.SelectThresholds(scores, aucell.DefaultThresholdConfig())
//	groups := aucell.ClusterGeneSets(scores, aucell.DefaultClusterConfig())
//
// # Reproducibility
//
// All randomness comes from PCG streams seeded with (seed, cell) for rankings
// and (seed, gene set row) for mixture fits. Parallel stages write disjoint
// output regions, so results are bit-identical for any number of workers.
package aucell
