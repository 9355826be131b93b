package imageprocessor

import (
	"findsimilar/types"

	"github.com/spf13/afero"
)

// Hasher runs the normalizer and the extractor for one algorithm
type Hasher struct {
	Normalizer *Normalizer
	Algorithm  types.Algorithm
}

// NewHasher creates a hasher over fs with the default loader registry
func NewHasher(fs afero.Fs, backend Backend, alg types.Algorithm) *Hasher {
	if alg == "" {
		alg = types.AlgorithmDifference
	}
	return &Hasher{
		Normalizer: NewNormalizer(fs, backend),
		Algorithm:  alg,
	}
}

// Fingerprint normalizes path to the grid the algorithm needs and hashes it.
// Failures to read the image are *DecodeError.
func (h *Hasher) Fingerprint(path string) (types.Fingerprint, error) {
	w, ht := GridSize(h.Algorithm)
	grid, err := h.Normalizer.Normalize(path, w, ht)
	if err != nil {
		return 0, err
	}
	return Extract(h.Algorithm, grid)
}

// Close releases loader resources such as the exiftool process
func (h *Hasher) Close() error {
	return h.Normalizer.Registry.Close()
}
