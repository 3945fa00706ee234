package aucell

import (
	"math"
	"sort"
)

// treeEdge is one row of a condensed tree. Parent is always a group ID
// (>= n); Child is either a gene set row (< n, Size 1) or a group ID. Lambda
// is the inverse merge height at which Child separates from Parent.
type treeEdge struct {
	Parent int
	Child  int
	Lambda float64
	Size   int
}

func (e treeEdge) isGroup() bool { return e.Size > 1 }

func inverseHeight(h float64) float64 {
	if h > 0 {
		return 1 / h
	}
	return math.Inf(1)
}

// condense walks the dendrogram from the root and keeps only splits where
// both sides have at least minSize leaves. Smaller sides fall out of their
// group as individual leaves at the split's lambda. The root group is n and
// new groups are numbered in visiting order, so every group has a larger ID
// than its parent.
func condense(merges []Merge, n, minSize int) []treeEdge {
	if len(merges) == 0 {
		return nil
	}
	leaves := func(x int) int {
		if x < n {
			return 1
		}
		return merges[x-n].Size
	}

	var out []treeEdge
	// dropLeaves emits every leaf under x as a direct child of group.
	dropLeaves := func(x, group int, lambda float64) {
		stack := []int{x}
		for len(stack) > 0 {
			y := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if y < n {
				out = append(out, treeEdge{Parent: group, Child: y, Lambda: lambda, Size: 1})
				continue
			}
			m := merges[y-n]
			stack = append(stack, m.Right, m.Left)
		}
	}

	root := n + len(merges) - 1
	group := map[int]int{root: n}
	nextGroup := n + 1
	stack := []int{root}

	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m := merges[x-n]
		lambda := inverseHeight(m.Height)
		parent := group[x]

		leftBig := leaves(m.Left) >= minSize
		rightBig := leaves(m.Right) >= minSize

		switch {
		case leftBig && rightBig:
			for _, child := range []int{m.Left, m.Right} {
				group[child] = nextGroup
				out = append(out, treeEdge{Parent: parent, Child: nextGroup, Lambda: lambda, Size: leaves(child)})
				nextGroup++
			}
			stack = append(stack, m.Right, m.Left)
		case leftBig:
			group[m.Left] = parent
			dropLeaves(m.Right, parent, lambda)
			stack = append(stack, m.Left)
		case rightBig:
			group[m.Right] = parent
			dropLeaves(m.Left, parent, lambda)
			stack = append(stack, m.Right)
		default:
			dropLeaves(m.Left, parent, lambda)
			dropLeaves(m.Right, parent, lambda)
		}
	}

	return out
}

// groupStability scores each group by the lambda-span its members stay in it:
// sum over its children of (child lambda - group birth lambda) * child size.
// The root is born at lambda 0.
func groupStability(tree []treeEdge, root int) map[int]float64 {
	birth := map[int]float64{root: 0}
	for _, e := range tree {
		if e.isGroup() {
			birth[e.Child] = e.Lambda
		}
	}
	stability := make(map[int]float64, len(birth))
	for _, e := range tree {
		stability[e.Parent] += (e.Lambda - birth[e.Parent]) * float64(e.Size)
	}
	return stability
}

// prunePersistence repeatedly removes leaf groups whose lambda-span relative
// to their parent is below threshold, handing their members to the nearest
// surviving ancestor. Surviving groups are renumbered consecutively from root
// in their original order.
func prunePersistence(tree []treeEdge, root int, threshold float64) []treeEdge {
	if threshold <= 0 || len(tree) == 0 {
		return tree
	}

	birth := map[int]float64{root: 0}
	parentOf := make(map[int]int)
	for _, e := range tree {
		if e.isGroup() {
			birth[e.Child] = e.Lambda
			parentOf[e.Child] = e.Parent
		}
	}

	removed := make(map[int]bool)
	for changed := true; changed; {
		changed = false
		hasChildGroup := make(map[int]bool)
		for g, p := range parentOf {
			if !removed[g] {
				hasChildGroup[p] = true
			}
		}
		for g, p := range parentOf {
			if removed[g] || hasChildGroup[g] {
				continue
			}
			if birth[g]-birth[p] < threshold {
				removed[g] = true
				changed = true
			}
		}
	}
	if len(removed) == 0 {
		return tree
	}

	survivor := func(g int) int {
		for removed[g] {
			g = parentOf[g]
		}
		return g
	}

	out := make([]treeEdge, 0, len(tree))
	for _, e := range tree {
		if e.isGroup() && removed[e.Child] {
			continue
		}
		e.Parent = survivor(e.Parent)
		out = append(out, e)
	}

	ids := []int{root}
	for _, e := range out {
		if e.isGroup() {
			ids = append(ids, e.Child)
		}
	}
	sort.Ints(ids)
	renumber := make(map[int]int, len(ids))
	for i, g := range ids {
		renumber[g] = root + i
	}
	for i := range out {
		out[i].Parent = renumber[out[i].Parent]
		if out[i].isGroup() {
			out[i].Child = renumber[out[i].Child]
		}
	}
	return out
}
