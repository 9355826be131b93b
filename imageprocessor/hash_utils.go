package imageprocessor

import (
	"fmt"

	"findsimilar/types"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
)

// LocalityBound is the largest distance observed between a picture and a
// JPEG re-encoding (quality >= 75) or rescaled copy of it, for ahash and
// dhash. Thresholds at or above it catch such copies.
const LocalityBound = 6

// GridSize returns the normalized grid dimensions an algorithm consumes
func GridSize(alg types.Algorithm) (width, height int) {
	switch alg {
	case types.AlgorithmAverage:
		return 8, 8
	case types.AlgorithmPerceptual:
		return 32, 32
	default:
		return 9, 8
	}
}

// ComputeAverageHash sets a bit for every pixel at or above the grid mean
func ComputeAverageHash(g *Grid) types.Fingerprint {
	var sum uint64
	for _, p := range g.Pix {
		sum += uint64(p)
	}
	n := uint64(len(g.Pix))

	var fp types.Fingerprint
	for _, p := range g.Pix {
		fp <<= 1
		// p >= sum/n without truncating the mean
		if uint64(p)*n >= sum {
			fp |= 1
		}
	}
	return fp
}

// ComputeDifferenceHash sets a bit where a pixel is brighter than its right
// neighbour. A 9x8 grid yields 64 bits.
func ComputeDifferenceHash(g *Grid) types.Fingerprint {
	var fp types.Fingerprint
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width-1; x++ {
			fp <<= 1
			if g.At(x, y) > g.At(x+1, y) {
				fp |= 1
			}
		}
	}
	return fp
}

// ComputePerceptualHash computes the DCT hash of the grid
func ComputePerceptualHash(g *Grid) (types.Fingerprint, error) {
	h, err := phash.Get(g.Image(), resizeExact)
	if err != nil {
		return 0, fmt.Errorf("phash: %w", err)
	}
	return types.Fingerprint(h), nil
}

// Extract computes the fingerprint of a grid produced for alg
func Extract(alg types.Algorithm, g *Grid) (types.Fingerprint, error) {
	w, h := GridSize(alg)
	if g == nil || g.Width != w || g.Height != h || len(g.Pix) != w*h {
		return 0, fmt.Errorf("%s needs a %dx%d grid", alg, w, h)
	}

	switch alg {
	case types.AlgorithmAverage:
		return ComputeAverageHash(g), nil
	case types.AlgorithmDifference:
		return ComputeDifferenceHash(g), nil
	case types.AlgorithmPerceptual:
		return ComputePerceptualHash(g)
	default:
		return 0, fmt.Errorf("unknown algorithm %q", alg)
	}
}

func hashKind(alg types.Algorithm) goimagehash.Kind {
	switch alg {
	case types.AlgorithmAverage:
		return goimagehash.AHash
	case types.AlgorithmPerceptual:
		return goimagehash.PHash
	default:
		return goimagehash.DHash
	}
}

// FormatFingerprint renders a fingerprint as "<kind>:<hex>", e.g. "d:00ff00ff00ff00ff"
func FormatFingerprint(alg types.Algorithm, fp types.Fingerprint) string {
	return goimagehash.NewImageHash(uint64(fp), hashKind(alg)).ToString()
}

// ParseFingerprint parses a string written by FormatFingerprint and checks
// that it was produced by alg
func ParseFingerprint(alg types.Algorithm, s string) (types.Fingerprint, error) {
	h, err := goimagehash.ImageHashFromString(s)
	if err != nil {
		return 0, err
	}
	if h.GetKind() != hashKind(alg) {
		return 0, fmt.Errorf("fingerprint %q was not computed with %s", s, alg)
	}
	return types.Fingerprint(h.GetHash()), nil
}
