package aucell

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// ClusterConfig controls the grouping of gene sets by score similarity.
// Start with [DefaultClusterConfig] and override the fields you need.
type ClusterConfig struct {
	// Linkage is the agglomeration rule: "single", "average" or "complete".
	// Default: "average".
	Linkage Linkage

	// MinGroupSize is the smallest number of gene sets forming a group.
	// Must be >= 2. Default: 2.
	MinGroupSize int

	// Selection chooses the flat cut of the tree. "eom" keeps the most stable
	// groups, so the group count adapts to the data; "leaf" keeps the
	// finest groups. Default: "eom".
	Selection string

	// AllowSingleGroup lets the cut return every gene set in one group.
	// Default: false.
	AllowSingleGroup bool

	// Persistence drops groups whose lifetime, in inverse dissimilarity
	// units, is below this value. 0 disables pruning. Must be >= 0.
	Persistence float64

	// Workers is the number of goroutines; 0 means runtime.NumCPU().
	Workers int
}

// DefaultClusterConfig returns a ClusterConfig with reasonable defaults.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		Linkage:      LinkageAverage,
		MinGroupSize: 2,
		Selection:    SelectionEOM,
	}
}

func (cfg ClusterConfig) validate() error {
	switch cfg.Linkage {
	case LinkageSingle, LinkageAverage, LinkageComplete:
	default:
		return fmt.Errorf("aucell: invalid Linkage %q", cfg.Linkage)
	}
	if cfg.MinGroupSize < 2 {
		return fmt.Errorf("aucell: MinGroupSize must be >= 2, got %d", cfg.MinGroupSize)
	}
	if cfg.Selection != SelectionEOM && cfg.Selection != SelectionLeaf {
		return fmt.Errorf("aucell: Selection must be %q or %q, got %q", SelectionEOM, SelectionLeaf, cfg.Selection)
	}
	if cfg.Persistence < 0 {
		return fmt.Errorf("aucell: Persistence must be >= 0, got %f", cfg.Persistence)
	}
	return nil
}

// SetClustering groups gene sets whose scores vary together across cells.
// It is presentation support: when clustering is not possible Clustered is
// false and Reason says why. Reason is also set when the dendrogram was built
// but no group was selected.
type SetClustering struct {
	Clustered bool
	Reason    string

	// Sets are the variable gene sets that were clustered, in score-matrix
	// order. Labels, Strength and Order refer to this slice.
	Sets []string

	// Order lists indices into Sets in dendrogram leaf order, for display.
	Order []int

	// Labels holds the group of each set, or -1 for sets left ungrouped.
	Labels []int

	// Strength is how firmly each set belongs to its group, in [0, 1].
	Strength []float64

	// Groups is the number of groups found.
	Groups int

	// Constant lists gene sets excluded because their scores do not vary.
	Constant []string

	// Merges is the dendrogram over Sets.
	Merges []Merge
}

// OrderedSets returns the clustered set names in display order.
func (c *SetClustering) OrderedSets() []string {
	names := make([]string, len(c.Order))
	for i, j := range c.Order {
		names[i] = c.Sets[j]
	}
	return names
}

// ClusterGeneSets clusters the gene sets of s with non-zero score standard
// deviation, using 1 - Spearman correlation between score rows as the
// dissimilarity. It never fails: invalid config or fewer than two variable
// sets give an unclustered result.
func ClusterGeneSets(s *ScoreMatrix, cfg ClusterConfig) *SetClustering {
	out := &SetClustering{}
	if err := cfg.validate(); err != nil {
		out.Reason = err.Error()
		return out
	}

	nSets, _ := s.Dims()
	var rows [][]float64
	for i := range nSets {
		row := s.Row(i)
		if stat.StdDev(row, nil) > 0 {
			out.Sets = append(out.Sets, s.sets[i])
			rows = append(rows, row)
		} else {
			out.Constant = append(out.Constant, s.sets[i])
		}
	}

	n := len(rows)
	if n < 2 {
		out.Reason = fmt.Sprintf("%d variable gene sets, need at least 2", n)
		log.Info().Int("variable", n).Msg("skipping gene set clustering")
		return out
	}

	dist := dissimilarityMatrix(rows, cfg.Workers)
	out.Merges = buildDendrogram(dist, n, cfg.Linkage)
	out.Order = leafOrder(out.Merges, n)

	root := n
	tree := condense(out.Merges, n, cfg.MinGroupSize)
	tree = prunePersistence(tree, root, cfg.Persistence)

	var selected map[int]bool
	switch cfg.Selection {
	case SelectionLeaf:
		selected = selectLeaves(tree, root)
	default:
		selected = selectEOM(tree, root, cfg.AllowSingleGroup)
	}

	out.Labels, out.Strength = assignGroups(tree, n, root, selected)
	out.Groups = len(selected)
	out.Clustered = true
	if out.Groups == 0 {
		out.Reason = fmt.Sprintf("no stable split into groups of at least %d gene sets", cfg.MinGroupSize)
	}

	log.Debug().
		Int("sets", n).
		Int("constant", len(out.Constant)).
		Int("groups", out.Groups).
		Str("linkage", string(cfg.Linkage)).
		Msg("clustered gene sets")

	return out
}
