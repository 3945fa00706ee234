package aucell

import (
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls a full scoring run.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Seed makes rankings and threshold fits reproducible. Default: 0.
	Seed uint64

	// Workers controls the number of goroutines in every parallel stage.
	// 0 means runtime.NumCPU(). Results do not depend on it.
	Workers int

	// RankCutoff is the number of top ranking positions scored. 0 derives it
	// from the data with Cutoff. Must be in [0, nGenes].
	RankCutoff int

	// Cutoff chooses the rank cutoff when RankCutoff is 0.
	Cutoff CutoffPolicy

	// MinSetSize rejects gene sets with fewer distinct genes before scoring.
	// 0 disables the filter. Must be >= 0. Default: 10.
	MinSetSize int

	// Threshold configures threshold selection. Its Seed and Workers are
	// overridden by the fields above.
	Threshold ThresholdConfig

	// Cluster configures the optional grouping of gene sets.
	Cluster ClusterConfig

	// SkipClustering disables gene set clustering. Default: false.
	SkipClustering bool
}

// Result holds every product of a run.
type Result struct {
	// RankCutoff is the k used for scoring.
	RankCutoff int

	Rankings   *RankingSet
	Scores     *ScoreMatrix
	Thresholds *ThresholdSet

	// Clustering is nil when SkipClustering was set.
	Clustering *SetClustering

	// Skipped lists gene sets that were rejected for size, had no genes in
	// the matrix or reused an earlier set's name. Each error wraps
	// ErrGeneSetTooSmall, ErrEmptyGeneSet or ErrDuplicateGeneSet.
	Skipped []*GeneSetError
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Cutoff:     DefaultCutoffPolicy(),
		MinSetSize: DefaultMinSetSize,
		Threshold:  DefaultThresholdConfig(),
		Cluster:    DefaultClusterConfig(),
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Cutoff == (CutoffPolicy{}) {
		cfg.Cutoff = DefaultCutoffPolicy()
	}
	if cfg.Threshold == (ThresholdConfig{}) {
		cfg.Threshold = DefaultThresholdConfig()
	}
	if cfg.Cluster == (ClusterConfig{}) {
		cfg.Cluster = DefaultClusterConfig()
	}
	cfg.Threshold.Seed = cfg.Seed
	cfg.Threshold.Workers = cfg.Workers
	cfg.Cluster.Workers = cfg.Workers
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("aucell: Workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.RankCutoff < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCutoff, cfg.RankCutoff)
	}
	if cfg.MinSetSize < 0 {
		return fmt.Errorf("aucell: MinSetSize must be >= 0, got %d", cfg.MinSetSize)
	}
	if cfg.RankCutoff == 0 {
		if err := cfg.Cutoff.validate(); err != nil {
			return err
		}
	}
	if err := cfg.Threshold.validate(); err != nil {
		return err
	}
	if !cfg.SkipClustering {
		if err := cfg.Cluster.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Run scores catalog against m and selects per-set thresholds: it filters
// the catalog by size, picks the rank cutoff, builds rankings, scores every
// set, thresholds every scored set and, unless disabled, groups the sets.
//
// Malformed global input (invalid config, empty matrix, out-of-range cutoff)
// fails before any parallel work starts. Problems with individual gene sets
// are reported in Result.Skipped and do not stop the run.
func Run(m *ExpressionMatrix, catalog []GeneSet, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidMatrix)
	}
	nGenes, nCells := m.Dims()

	k := cfg.RankCutoff
	if k == 0 {
		var err error
		if k, err = RankCutoff(m, cfg.Cutoff); err != nil {
			return nil, err
		}
	}
	if k > nGenes {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCutoff, k, nGenes)
	}

	start := time.Now()
	log.Info().
		Int("genes", nGenes).
		Int("cells", nCells).
		Int("sets", len(catalog)).
		Int("rankCutoff", k).
		Int("workers", cfg.Workers).
		Msg("starting run")

	res := &Result{RankCutoff: k}

	sets := catalog
	if cfg.MinSetSize > 0 {
		var rejected []*GeneSetError
		sets, rejected = FilterGeneSets(catalog, cfg.MinSetSize)
		res.Skipped = append(res.Skipped, rejected...)
		if len(rejected) > 0 {
			log.Info().Int("rejected", len(rejected)).Int("minSize", cfg.MinSetSize).Msg("dropped small gene sets")
		}
	}

	var err error
	if res.Rankings, err = BuildRankings(m, cfg.Seed, cfg.Workers); err != nil {
		return nil, err
	}
	if res.Scores, err = ScoreGeneSets(res.Rankings, sets, k, cfg.Workers); err != nil {
		return nil, err
	}
	res.Skipped = append(res.Skipped, res.Scores.Skipped...)

	res.Thresholds = SelectThresholds(res.Scores, cfg.Threshold)
	if !cfg.SkipClustering {
		res.Clustering = ClusterGeneSets(res.Scores, cfg.Cluster)
	}

	scored, _ := res.Scores.Dims()
	log.Info().
		Int("scored", scored).
		Int("skipped", len(res.Skipped)).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")

	return res, nil
}
