package aucell

// RawAUC returns the area under the recovery curve of a gene set within the
// first k ranking positions. The recovery curve f(r) counts the members with
// rank <= r; the area is sum over r = 1..k of f(r). A member at rank p <= k
// contributes k-p+1 to that sum, which is how it is computed here.
//
// ranks holds the rank of every gene of one cell, indexed by gene row;
// members are gene rows.
func RawAUC(ranks []int32, members []int, k int) int64 {
	var area int64
	for _, g := range members {
		if p := int64(ranks[g]); p <= int64(k) {
			area += int64(k) - p + 1
		}
	}
	return area
}

// MaxAUC returns the largest RawAUC a set of size members can reach at cutoff
// k: the area obtained when its members fill ranks 1..min(size, k).
func MaxAUC(size, k int) int64 {
	m := int64(min(size, k))
	return m*int64(k) - m*(m-1)/2
}

// AUC returns RawAUC normalized by MaxAUC, a value in [0, 1]. It is 1 exactly
// when members occupy the top min(len(members), k) ranks. members must be
// non-empty and duplicate-free, and k must be in [1, len(ranks)].
func AUC(ranks []int32, members []int, k int) float64 {
	return float64(RawAUC(ranks, members, k)) / float64(MaxAUC(len(members), k))
}
