package types

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// FingerprintBits is the width of every fingerprint produced by the engine.
const FingerprintBits = 64

// Fingerprint is a 64-bit perceptual hash. Fingerprints are only ever compared
// through Distance.
type Fingerprint uint64

// Distance returns the Hamming distance between two fingerprints.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f ^ other))
}

// String returns the fingerprint as 16 hex digits
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Algorithm selects the perceptual hash used for a scan.
type Algorithm string

// Supported hash algorithms
const (
	AlgorithmAverage    Algorithm = "ahash"
	AlgorithmDifference Algorithm = "dhash"
	AlgorithmPerceptual Algorithm = "phash"
)

// Algorithms lists every supported algorithm in a stable order
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmAverage, AlgorithmDifference, AlgorithmPerceptual}
}

// ParseAlgorithm maps a user supplied name onto an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case AlgorithmAverage, "average":
		return AlgorithmAverage, nil
	case AlgorithmDifference, "difference":
		return AlgorithmDifference, nil
	case AlgorithmPerceptual, "perceptual":
		return AlgorithmPerceptual, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q (want ahash, dhash or phash)", name)
}

// ImageRecord holds what a scan learned about one file
type ImageRecord struct {
	Path        string      `json:"path"`
	Size        int64       `json:"size"`
	ModifiedAt  time.Time   `json:"modified_at"`
	Fingerprint Fingerprint `json:"fingerprint"`
	HasHash     bool        `json:"has_hash"`
	FromCache   bool        `json:"from_cache"`
	DecodeError bool        `json:"decode_error"`
}

// DuplicateGroup is a set of at least two images connected through pairwise
// distances at or below the scan threshold.
type DuplicateGroup struct {
	ID          int      `json:"id"`
	Members     []string `json:"members"`
	MaxDistance int      `json:"max_distance"`
}

// Representative returns the canonical member used for ordering
func (g DuplicateGroup) Representative() string {
	if len(g.Members) == 0 {
		return ""
	}
	return g.Members[0]
}

// ImageMatch holds one search hit
type ImageMatch struct {
	Path        string      `json:"path"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Distance    int         `json:"distance"`
}
