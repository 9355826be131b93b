// Package imageprocessor turns image files into fixed-size grayscale grids and
// derives perceptual fingerprints from them.
package imageprocessor

import (
	"image"

	"github.com/spf13/afero"
)

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the image stored at path on fs
	LoadImage(fs afero.Fs, path string) (image.Image, error)
}
