package cluster

import (
	"reflect"
	"testing"

	"findsimilar/index"
	"findsimilar/types"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	if !uf.Union(0, 1) || !uf.Union(3, 4) || !uf.Union(1, 4) {
		t.Fatal("first unions should merge distinct sets")
	}
	if uf.Union(0, 3) {
		t.Error("0 and 3 are already connected")
	}
	if uf.Find(0) != uf.Find(4) {
		t.Error("0 and 4 should share a root")
	}
	if uf.Find(2) == uf.Find(0) {
		t.Error("2 should stay alone")
	}
}

func TestGroupsTransitiveClosure(t *testing.T) {
	// A-B and B-C are within 2 bits, A-C are 4 bits apart
	ix := index.New([]index.Entry{
		{ID: "/a.jpg", Hash: 0b0000},
		{ID: "/b.jpg", Hash: 0b0011},
		{ID: "/c.jpg", Hash: 0b1111},
		{ID: "/d.jpg", Hash: ^types.Fingerprint(0)},
	})

	if d := ix.Entry(0).Hash.Distance(ix.Entry(2).Hash); d <= 2 {
		t.Fatalf("fixture broken: A-C distance %d", d)
	}

	groups := FromIndex(ix, 2)
	want := []types.DuplicateGroup{
		{ID: 1, Members: []string{"/a.jpg", "/b.jpg", "/c.jpg"}, MaxDistance: 2},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("FromIndex() = %+v, want %+v", groups, want)
	}
}

func TestGroupsDeterministicOrder(t *testing.T) {
	ids := []string{"/z/1.jpg", "/b/2.jpg", "/z/0.jpg", "/a/9.jpg", "/m/solo.jpg"}
	pairs := []index.Pair{
		{A: 0, B: 2, Distance: 1},
		{A: 1, B: 3, Distance: 4},
	}

	want := []types.DuplicateGroup{
		{ID: 1, Members: []string{"/a/9.jpg", "/b/2.jpg"}, MaxDistance: 4},
		{ID: 2, Members: []string{"/z/0.jpg", "/z/1.jpg"}, MaxDistance: 1},
	}
	for i := 0; i < 10; i++ {
		if got := Groups(ids, pairs); !reflect.DeepEqual(got, want) {
			t.Fatalf("Groups() = %+v, want %+v", got, want)
		}
	}
}

func TestGroupsNoPairs(t *testing.T) {
	if got := Groups([]string{"/a.jpg", "/b.jpg"}, nil); len(got) != 0 {
		t.Errorf("Groups() = %+v, want none", got)
	}
}

func TestReclusterWithoutRehash(t *testing.T) {
	ix := index.New([]index.Entry{
		{ID: "/a.jpg", Hash: 0x00},
		{ID: "/b.jpg", Hash: 0x01},
		{ID: "/c.jpg", Hash: 0xFF},
	})

	if got := FromIndex(ix, 1); len(got) != 1 || len(got[0].Members) != 2 {
		t.Errorf("threshold 1: %+v", got)
	}
	if got := FromIndex(ix, 8); len(got) != 1 || len(got[0].Members) != 3 {
		t.Errorf("threshold 8: %+v", got)
	}
	if got := FromIndex(ix, 0); len(got) != 0 {
		t.Errorf("threshold 0: %+v", got)
	}
}
