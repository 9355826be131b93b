// Package cluster groups similar images into connected components.
package cluster

import (
	"sort"

	"findsimilar/index"
	"findsimilar/types"
)

// UnionFind is a disjoint-set forest with path compression and union by rank
type UnionFind struct {
	parent []int
	rank   []uint8
}

// NewUnionFind creates n singleton sets
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find returns the representative of x's set
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b and reports whether they were distinct
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// Groups returns the connected components of size two or more. ids[i] names
// position i of the pairs. Members are sorted, groups are ordered by their
// first member and numbered from 1.
func Groups(ids []string, pairs []index.Pair) []types.DuplicateGroup {
	uf := NewUnionFind(len(ids))
	for _, p := range pairs {
		uf.Union(p.A, p.B)
	}

	maxDistance := make(map[int]int)
	for _, p := range pairs {
		root := uf.Find(p.A)
		if p.Distance > maxDistance[root] {
			maxDistance[root] = p.Distance
		}
	}

	members := make(map[int][]string)
	for i, id := range ids {
		root := uf.Find(i)
		members[root] = append(members[root], id)
	}

	var groups []types.DuplicateGroup
	for root, m := range members {
		if len(m) < 2 {
			continue
		}
		sort.Strings(m)
		groups = append(groups, types.DuplicateGroup{Members: m, MaxDistance: maxDistance[root]})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative() < groups[j].Representative()
	})
	for i := range groups {
		groups[i].ID = i + 1
	}
	return groups
}

// FromIndex clusters the pairs of ix at threshold
func FromIndex(ix *index.Index, threshold int) []types.DuplicateGroup {
	ids := make([]string, ix.Len())
	for i, e := range ix.Entries() {
		ids[i] = e.ID
	}
	return Groups(ids, ix.Pairs(threshold))
}
