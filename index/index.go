// Package index finds all pairs of fingerprints within a Hamming distance.
//
// Pairs uses multi-index hashing: the 64 bits are cut into threshold+1
// contiguous segments. Two fingerprints that differ in at most threshold
// bits must agree exactly on at least one segment, so bucketing by segment
// value yields every true pair. Candidates are verified by exact distance.
package index

import (
	"sort"

	"findsimilar/types"
)

// naiveThreshold is the threshold from which segments get too narrow for
// bucketing to prune anything and the exhaustive scan is used instead
const naiveThreshold = 16

// Entry is one fingerprint identified by ID (the file path)
type Entry struct {
	ID   string
	Hash types.Fingerprint
}

// Pair is an unordered pair of entry positions with A < B
type Pair struct {
	A, B     int
	Distance int
}

// Match is a single-query search result
type Match struct {
	Entry
	Distance int
}

// Index holds the fingerprints of one scan, sorted by ID
type Index struct {
	entries []Entry
}

// New builds an index over a copy of entries
func New(entries []Entry) *Index {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Index{entries: sorted}
}

// Len returns the number of indexed fingerprints
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns the indexed fingerprints in position order
func (ix *Index) Entries() []Entry { return ix.entries }

// Entry returns the fingerprint at position i
func (ix *Index) Entry(i int) Entry { return ix.entries[i] }

// Pairs returns every pair of entries within threshold bits, sorted by
// (A, B). A negative threshold yields no pairs.
func (ix *Index) Pairs(threshold int) []Pair {
	if threshold < 0 || len(ix.entries) < 2 {
		return nil
	}
	if threshold >= naiveThreshold {
		return naivePairs(ix.entries, threshold)
	}

	segs := newSegments(threshold + 1)
	tables := segs.build(ix.entries)

	var pairs []Pair
	for s := range tables {
		for _, bucket := range tables[s] {
			for i := 0; i < len(bucket); i++ {
				for j := i + 1; j < len(bucket); j++ {
					a, b := bucket[i], bucket[j]
					ha, hb := ix.entries[a].Hash, ix.entries[b].Hash
					// report each pair only from the first segment it shares
					if segs.firstShared(ha, hb) != s {
						continue
					}
					if d := ha.Distance(hb); d <= threshold {
						pairs = append(pairs, Pair{A: a, B: b, Distance: d})
					}
				}
			}
		}
	}

	sortPairs(pairs)
	return pairs
}

// Within returns the entries within threshold bits of q, closest first and
// then by ID
func (ix *Index) Within(q types.Fingerprint, threshold int) []Match {
	if threshold < 0 {
		return nil
	}

	var matches []Match
	if threshold >= naiveThreshold {
		for _, e := range ix.entries {
			if d := q.Distance(e.Hash); d <= threshold {
				matches = append(matches, Match{Entry: e, Distance: d})
			}
		}
	} else {
		segs := newSegments(threshold + 1)
		tables := segs.build(ix.entries)
		seen := make(map[int]bool)
		for s := range tables {
			for _, i := range tables[s][segs.value(q, s)] {
				if seen[i] {
					continue
				}
				seen[i] = true
				if d := q.Distance(ix.entries[i].Hash); d <= threshold {
					matches = append(matches, Match{Entry: ix.entries[i], Distance: d})
				}
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}
