package aucell

import (
	"math"
	"slices"
)

// Group selection methods for the flat cut of the condensed tree.
const (
	SelectionEOM  = "eom"
	SelectionLeaf = "leaf"
)

// childGroups maps every group to its direct child groups.
func childGroups(tree []treeEdge) map[int][]int {
	children := make(map[int][]int)
	for _, e := range tree {
		if e.isGroup() {
			children[e.Parent] = append(children[e.Parent], e.Child)
		}
	}
	return children
}

// descendants returns g and every group below it.
func descendants(children map[int][]int, g int) []int {
	out := []int{g}
	for i := 0; i < len(out); i++ {
		out = append(out, children[out[i]]...)
	}
	return out
}

// selectEOM picks the set of groups with the largest total stability such
// that no selected group contains another (excess of mass). The root is a
// candidate only when allowSingle is set.
func selectEOM(tree []treeEdge, root int, allowSingle bool) map[int]bool {
	stability := groupStability(tree, root)
	children := childGroups(tree)

	candidates := make([]int, 0, len(stability))
	for g := range stability {
		if allowSingle || g != root {
			candidates = append(candidates, g)
		}
	}
	slices.Sort(candidates)

	selected := make(map[int]bool, len(candidates))
	for _, g := range candidates {
		selected[g] = true
	}

	// Groups are numbered after their parents, so descending IDs visit
	// children before parents.
	for i := len(candidates) - 1; i >= 0; i-- {
		g := candidates[i]
		kids := children[g]
		if len(kids) == 0 {
			continue
		}
		var sub float64
		for _, k := range kids {
			sub += stability[k]
		}
		if sub > stability[g] {
			selected[g] = false
			stability[g] = sub
			continue
		}
		for _, d := range descendants(children, g)[1:] {
			selected[d] = false
		}
	}

	out := make(map[int]bool)
	for g, ok := range selected {
		if ok {
			out[g] = true
		}
	}
	return out
}

// selectLeaves picks the groups with no child groups. When the tree never
// splits, the root is the only group.
func selectLeaves(tree []treeEdge, root int) map[int]bool {
	children := childGroups(tree)
	out := make(map[int]bool)
	for _, e := range tree {
		if e.isGroup() && len(children[e.Child]) == 0 {
			out[e.Child] = true
		}
	}
	if len(out) == 0 {
		out[root] = true
	}
	return out
}

// assignGroups labels each of the n leaves with the index of the selected
// group containing it (groups numbered 0.. in increasing ID order) or -1.
// strength is the leaf's lambda relative to the largest lambda inside its
// group, in [0, 1]; 0 for unlabelled leaves.
func assignGroups(tree []treeEdge, n, root int, selected map[int]bool) (labels []int, strength []float64) {
	labels = make([]int, n)
	strength = make([]float64, n)
	for i := range labels {
		labels[i] = -1
	}
	if len(tree) == 0 || len(selected) == 0 {
		return labels, strength
	}

	ids := make([]int, 0, len(selected))
	for g := range selected {
		ids = append(ids, g)
	}
	slices.Sort(ids)
	labelOf := make(map[int]int, len(ids))
	for i, g := range ids {
		labelOf[g] = i
	}

	parentOf := make(map[int]int)
	leafLambda := make([]float64, n)
	leafParent := make([]int, n)
	for _, e := range tree {
		if e.isGroup() {
			parentOf[e.Child] = e.Parent
		} else {
			leafLambda[e.Child] = e.Lambda
			leafParent[e.Child] = e.Parent
		}
	}

	owner := func(g int) (int, bool) {
		for {
			if selected[g] {
				return g, true
			}
			if g == root {
				return 0, false
			}
			g = parentOf[g]
		}
	}

	// death is the largest lambda found anywhere inside each selected group.
	death := make(map[int]float64, len(ids))
	for _, e := range tree {
		if g, ok := owner(e.Parent); ok && !math.IsInf(e.Lambda, 1) {
			death[g] = math.Max(death[g], e.Lambda)
		}
	}

	for i := range n {
		g, ok := owner(leafParent[i])
		if !ok {
			continue
		}
		labels[i] = labelOf[g]
		if d := death[g]; d == 0 || math.IsInf(leafLambda[i], 1) {
			strength[i] = 1
		} else {
			strength[i] = math.Min(leafLambda[i], d) / d
		}
	}
	return labels, strength
}
