package aucell

// unionFind tracks dendrogram components. Leaves are 0..n-1; every join
// creates a new root n, n+1, ... so roots double as dendrogram node IDs.
type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	total := max(2*n-1, 1)
	uf := &unionFind{
		parent: make([]int, total),
		size:   make([]int, total),
		next:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = -1
	}
	for i := range n {
		uf.size[i] = 1
	}
	return uf
}

// find returns the root of x, compressing the path behind it.
func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// join merges the components rooted at a and b under a new node and returns it.
func (uf *unionFind) join(a, b int) int {
	node := uf.next
	uf.next++
	uf.parent[a] = node
	uf.parent[b] = node
	uf.size[node] = uf.size[a] + uf.size[b]
	return node
}
