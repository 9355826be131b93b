package index

import "findsimilar/types"

// segments cuts the fingerprint into contiguous bit ranges of near-equal width
type segments struct {
	shifts []uint
	masks  []uint64
}

func newSegments(n int) segments {
	if n > types.FingerprintBits {
		n = types.FingerprintBits
	}
	s := segments{shifts: make([]uint, n), masks: make([]uint64, n)}
	for i := 0; i < n; i++ {
		lo := i * types.FingerprintBits / n
		hi := (i + 1) * types.FingerprintBits / n
		width := uint(hi - lo)
		s.shifts[i] = uint(lo)
		if width == 64 {
			s.masks[i] = ^uint64(0)
		} else {
			s.masks[i] = 1<<width - 1
		}
	}
	return s
}

func (s segments) value(h types.Fingerprint, i int) uint64 {
	return (uint64(h) >> s.shifts[i]) & s.masks[i]
}

// firstShared returns the first segment on which a and b agree, or -1
func (s segments) firstShared(a, b types.Fingerprint) int {
	for i := range s.shifts {
		if s.value(a, i) == s.value(b, i) {
			return i
		}
	}
	return -1
}

// build returns, per segment, the entry positions keyed by segment value.
// Positions within a bucket are ascending.
func (s segments) build(entries []Entry) []map[uint64][]int {
	tables := make([]map[uint64][]int, len(s.shifts))
	for i := range tables {
		tables[i] = make(map[uint64][]int)
	}
	for pos, e := range entries {
		for i := range tables {
			v := s.value(e.Hash, i)
			tables[i][v] = append(tables[i][v], pos)
		}
	}
	return tables
}
