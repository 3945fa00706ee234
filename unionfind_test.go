package aucell

import "testing"

func TestNewUnionFind(t *testing.T) {
	uf := newUnionFind(5)

	// Each leaf should be its own root.
	for i := 0; i < 5; i++ {
		if root := uf.find(i); root != i {
			t.Errorf("find(%d) = %d, want %d", i, root, i)
		}
		if uf.size[i] != 1 {
			t.Errorf("size[%d] = %d, want 1", i, uf.size[i])
		}
	}
	if len(uf.parent) != 9 {
		t.Errorf("len(parent) = %d, want 9", len(uf.parent))
	}
}

func TestUnionFind_JoinCreatesNodes(t *testing.T) {
	uf := newUnionFind(4)

	a := uf.join(uf.find(0), uf.find(1))
	if a != 4 {
		t.Errorf("first join = %d, want 4", a)
	}
	b := uf.join(uf.find(2), uf.find(a))
	if b != 5 {
		t.Errorf("second join = %d, want 5", b)
	}
	if uf.size[b] != 3 {
		t.Errorf("size[%d] = %d, want 3", b, uf.size[b])
	}

	for _, leaf := range []int{0, 1, 2} {
		if root := uf.find(leaf); root != b {
			t.Errorf("find(%d) = %d, want %d", leaf, root, b)
		}
	}
	if root := uf.find(3); root != 3 {
		t.Errorf("find(3) = %d, want 3", root)
	}
}

func TestUnionFind_PathCompression(t *testing.T) {
	uf := newUnionFind(4)
	n4 := uf.join(0, 1)
	n5 := uf.join(n4, 2)
	n6 := uf.join(n5, 3)

	if root := uf.find(0); root != n6 {
		t.Fatalf("find(0) = %d, want %d", root, n6)
	}
	// After find, 0 points directly at the root.
	if uf.parent[0] != n6 {
		t.Errorf("parent[0] = %d, want %d after compression", uf.parent[0], n6)
	}
	if uf.size[n6] != 4 {
		t.Errorf("size[%d] = %d, want 4", n6, uf.size[n6])
	}
}

func TestUnionFind_SingleLeaf(t *testing.T) {
	uf := newUnionFind(1)
	if root := uf.find(0); root != 0 {
		t.Errorf("find(0) = %d, want 0", root)
	}
}
