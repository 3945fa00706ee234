package aucell

import (
	"slices"
)

// DefaultMinSetSize is the smallest gene set FilterGeneSets keeps by default.
const DefaultMinSetSize = 10

// GeneSet is a named collection of gene identifiers scored together.
// Regulator optionally names the gene the set was derived from; whether it is
// also listed in Genes is up to the caller.
type GeneSet struct {
	Name      string
	Genes     []string
	Regulator string
}

// Size returns the number of distinct genes in the set.
func (s GeneSet) Size() int {
	seen := make(map[string]struct{}, len(s.Genes))
	for _, g := range s.Genes {
		seen[g] = struct{}{}
	}
	return len(seen)
}

// FilterGeneSets keeps the sets with at least minSize distinct genes. Rejected
// sets are reported individually with ErrGeneSetTooSmall, in catalog order.
func FilterGeneSets(catalog []GeneSet, minSize int) (kept []GeneSet, rejected []*GeneSetError) {
	kept = make([]GeneSet, 0, len(catalog))
	for _, s := range catalog {
		if s.Size() < minSize {
			rejected = append(rejected, &GeneSetError{Set: s.Name, Err: ErrGeneSetTooSmall})
			continue
		}
		kept = append(kept, s)
	}
	return kept, rejected
}

// Coverage reports how many of a gene set's genes were found in the rankings.
type Coverage struct {
	Set     string
	Found   int
	Missing []string
}

// Fraction returns the share of the set's distinct genes present in the matrix.
func (c Coverage) Fraction() float64 {
	total := c.Found + len(c.Missing)
	if total == 0 {
		return 0
	}
	return float64(c.Found) / float64(total)
}

// resolveMembers maps a set's genes to sorted, deduplicated row indices and
// collects the genes that have no row.
func resolveMembers(s GeneSet, index map[string]int) (members []int, missing []string) {
	members = make([]int, 0, len(s.Genes))
	seenMissing := make(map[string]struct{})
	for _, g := range s.Genes {
		if i, ok := index[g]; ok {
			members = append(members, i)
			continue
		}
		if _, dup := seenMissing[g]; !dup {
			seenMissing[g] = struct{}{}
			missing = append(missing, g)
		}
	}
	slices.Sort(members)
	return slices.Compact(members), missing
}
