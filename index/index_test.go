package index

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"findsimilar/types"
)

// randomEntries builds clusters of near-duplicates around random centers so
// every threshold has pairs to find
func randomEntries(seed int64, clusters, perCluster int) []Entry {
	rng := rand.New(rand.NewSource(seed))
	var entries []Entry
	for c := 0; c < clusters; c++ {
		center := types.Fingerprint(rng.Uint64())
		for k := 0; k < perCluster; k++ {
			h := center
			for flips := rng.Intn(12); flips > 0; flips-- {
				h ^= 1 << uint(rng.Intn(64))
			}
			entries = append(entries, Entry{ID: fmt.Sprintf("/img/%03d-%02d.jpg", c, k), Hash: h})
		}
	}
	rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	return entries
}

func TestPairsMatchNaive(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		entries := randomEntries(seed, 30, 4)
		ix := New(entries)
		for threshold := 0; threshold <= 20; threshold++ {
			got := ix.Pairs(threshold)
			want := NaivePairs(entries, threshold)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("seed %d threshold %d: Pairs found %d pairs, naive %d", seed, threshold, len(got), len(want))
			}
		}
	}
}

func TestPairsThresholdMonotonic(t *testing.T) {
	ix := New(randomEntries(42, 20, 5))

	prev := make(map[[2]int]bool)
	for threshold := 0; threshold <= 24; threshold++ {
		cur := make(map[[2]int]bool)
		for _, p := range ix.Pairs(threshold) {
			cur[[2]int{p.A, p.B}] = true
		}
		for k := range prev {
			if !cur[k] {
				t.Fatalf("pair %v found at threshold %d but not at %d", k, threshold-1, threshold)
			}
		}
		prev = cur
	}
}

func TestPairsEdgeCases(t *testing.T) {
	entries := []Entry{
		{ID: "/c.jpg", Hash: 0},
		{ID: "/a.jpg", Hash: ^types.Fingerprint(0)},
		{ID: "/b.jpg", Hash: 0},
	}
	ix := New(entries)

	if ix.Entry(0).ID != "/a.jpg" {
		t.Errorf("entries not sorted by ID: %+v", ix.Entries())
	}
	if got := ix.Pairs(-1); got != nil {
		t.Errorf("Pairs(-1) = %v", got)
	}
	if got, want := ix.Pairs(0), []Pair{{A: 1, B: 2, Distance: 0}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs(0) = %v, want %v", got, want)
	}
	if got := ix.Pairs(64); len(got) != 3 {
		t.Errorf("Pairs(64) = %v, want all 3 pairs", got)
	}
	if got := New(nil).Pairs(5); got != nil {
		t.Errorf("empty index Pairs = %v", got)
	}
}

func TestPairsDistances(t *testing.T) {
	ix := New([]Entry{
		{ID: "/a", Hash: 0b0000},
		{ID: "/b", Hash: 0b0111},
		{ID: "/c", Hash: 0b1111},
	})
	want := []Pair{
		{A: 0, B: 1, Distance: 3},
		{A: 1, B: 2, Distance: 1},
	}
	if got := ix.Pairs(3); !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs(3) = %v, want %v", got, want)
	}
}

func TestWithin(t *testing.T) {
	entries := randomEntries(7, 25, 4)
	ix := New(entries)
	query := entries[0].Hash

	for _, threshold := range []int{0, 3, 8, 15, 16, 30} {
		got := ix.Within(query, threshold)

		want := 0
		for _, e := range entries {
			if query.Distance(e.Hash) <= threshold {
				want++
			}
		}
		if len(got) != want {
			t.Fatalf("threshold %d: Within found %d, want %d", threshold, len(got), want)
		}
		for i := 1; i < len(got); i++ {
			a, b := got[i-1], got[i]
			if a.Distance > b.Distance || (a.Distance == b.Distance && a.ID > b.ID) {
				t.Fatalf("threshold %d: results out of order at %d", threshold, i)
			}
		}
	}
}

func TestSegmentsCoverAllBits(t *testing.T) {
	for n := 1; n <= 17; n++ {
		s := newSegments(n)
		var covered uint64
		for i := range s.shifts {
			covered |= s.masks[i] << s.shifts[i]
		}
		if covered != ^uint64(0) {
			t.Errorf("%d segments cover %016x", n, covered)
		}
	}
}

func BenchmarkPairs(b *testing.B) {
	ix := New(randomEntries(1, 2000, 5))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Pairs(5)
	}
}
