package imageprocessor

import (
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// StandardImageLoader decodes the formats with a pure Go decoder and applies
// the EXIF orientation so rotated copies hash like the original
type StandardImageLoader struct{}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{}
}

// CanLoad checks the extension against the standard formats
func (l *StandardImageLoader) CanLoad(path string) bool {
	switch GetFileFormat(path) {
	case FormatJPEG, FormatPNG, FormatGIF, FormatTIFF, FormatBMP, FormatWEBP:
		return true
	}
	return false
}

// LoadImage loads a standard image format
func (l *StandardImageLoader) LoadImage(fs afero.Fs, path string) (image.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imaging.Decode(f, imaging.AutoOrientation(true))
}
