package scanner

import (
	"fmt"

	"findsimilar/cluster"
	"findsimilar/index"
	"findsimilar/types"
)

// cluster groups the hashed records at threshold
func (r *ScanResult) cluster(threshold int) []types.DuplicateGroup {
	entries := make([]index.Entry, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.HasHash {
			entries = append(entries, index.Entry{ID: rec.Path, Hash: rec.Fingerprint})
		}
	}
	return cluster.FromIndex(index.New(entries), threshold)
}

// statsOf counts the outcome of processed records
func statsOf(discovered int, records []types.ImageRecord, errs []FileError) Stats {
	stats := Stats{
		Discovered: discovered,
		Processed:  len(records),
		Errors:     len(errs),
	}
	for _, rec := range records {
		if rec.FromCache {
			stats.CacheHits++
		} else if rec.HasHash {
			stats.Hashed++
		}
	}
	return stats
}

// Recluster returns a copy of the result grouped at a new threshold. No file
// is read or hashed again.
func (r *ScanResult) Recluster(threshold int) (*ScanResult, error) {
	if threshold < 0 || threshold > types.FingerprintBits {
		return nil, fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidThreshold, threshold, types.FingerprintBits)
	}
	out := *r
	out.Threshold = threshold
	out.Groups = out.cluster(threshold)
	return &out, nil
}

// Without returns a copy of the result with paths removed and the remaining
// files regrouped, as after deleting duplicates. Stats count only what is
// left.
func (r *ScanResult) Without(paths ...string) *ScanResult {
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}

	out := *r
	out.Records = make([]types.ImageRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		if !drop[rec.Path] {
			out.Records = append(out.Records, rec)
		}
	}
	out.Errors = make([]FileError, 0, len(r.Errors))
	for _, fe := range r.Errors {
		if !drop[fe.Path] {
			out.Errors = append(out.Errors, fe)
		}
	}
	// every processed file has a record, failed ones included
	removed := len(r.Records) - len(out.Records)
	out.Stats = statsOf(r.Stats.Discovered-removed, out.Records, out.Errors)
	out.Groups = out.cluster(r.Threshold)
	return &out
}

// Fingerprint returns the fingerprint recorded for path
func (r *ScanResult) Fingerprint(path string) (types.Fingerprint, bool) {
	for _, rec := range r.Records {
		if rec.Path == path && rec.HasHash {
			return rec.Fingerprint, true
		}
	}
	return 0, false
}
