package imageprocessor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/spf13/afero"
)

// Backend selects the decoding and resizing implementation
type Backend string

const (
	// BackendNative decodes with Go codecs and resizes with a box filter
	BackendNative Backend = "native"
	// BackendOpenCV decodes and resizes with OpenCV (build tag opencv)
	BackendOpenCV Backend = "opencv"
)

// Grid is a row-major 8-bit grayscale pixel grid
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrid allocates a zeroed grid
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the luma at column x, row y
func (g *Grid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Image wraps a copy of the grid as an *image.Gray
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// GridFromImage resizes img to width x height and converts it to luma
func GridFromImage(img image.Image, width, height int) *Grid {
	resized := resizeExact(img, width, height)
	b := resized.Bounds()
	grid := NewGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			grid.Pix[y*width+x] = gray.Y
		}
	}
	return grid
}

// Normalizer decodes files into fixed-size grids. It never panics on
// malformed input; every failure is a *DecodeError.
type Normalizer struct {
	Registry *ImageLoaderRegistry
	Fs       afero.Fs
	Backend  Backend
}

// NewNormalizer creates a normalizer over fs using the default loaders
func NewNormalizer(fs afero.Fs, backend Backend) *Normalizer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if backend == "" {
		backend = BackendNative
	}
	return &Normalizer{
		Registry: NewImageLoaderRegistry(),
		Fs:       fs,
		Backend:  backend,
	}
}

// Normalize decodes path into a width x height grayscale grid
func (n *Normalizer) Normalize(path string, width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", width, height)
	}

	info, err := n.Fs.Stat(path)
	if err != nil {
		return nil, classifyLoadError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, newDecodeError(path, ReasonUnsupported, fmt.Errorf("not a regular file"))
	}
	if info.Size() == 0 {
		return nil, newDecodeError(path, ReasonEmpty, nil)
	}

	loader := n.Registry.GetLoader(path)
	if loader == nil {
		return nil, newDecodeError(path, ReasonUnsupported, fmt.Errorf("no suitable loader found"))
	}

	if n.Backend == BackendOpenCV {
		if _, standard := loader.(*StandardImageLoader); standard {
			return n.normalizeOpenCVFile(path, width, height)
		}
	}

	img, err := n.Registry.LoadImage(n.Fs, path)
	if err != nil {
		return nil, classifyLoadError(path, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, newDecodeError(path, ReasonCorrupt, fmt.Errorf("image has no pixels"))
	}

	return GridFromImage(img, width, height), nil
}

func (n *Normalizer) normalizeOpenCVFile(path string, width, height int) (*Grid, error) {
	if _, ok := n.Fs.(*afero.OsFs); !ok {
		return nil, newDecodeError(path, ReasonUnsupported, fmt.Errorf("opencv backend needs the OS filesystem"))
	}
	grid, err := normalizeOpenCV(path, width, height)
	if err != nil {
		return nil, classifyLoadError(path, err)
	}
	return grid, nil
}
