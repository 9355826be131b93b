package index

import "sort"

// NaivePairs compares every pair of entries. The result uses the same
// positions and ordering as Pairs on New(entries).
func NaivePairs(entries []Entry, threshold int) []Pair {
	if threshold < 0 {
		return nil
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return naivePairs(sorted, threshold)
}

func naivePairs(entries []Entry, threshold int) []Pair {
	var pairs []Pair
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if d := entries[i].Hash.Distance(entries[j].Hash); d <= threshold {
				pairs = append(pairs, Pair{A: i, B: j, Distance: d})
			}
		}
	}
	return pairs
}
