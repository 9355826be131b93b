package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// makeBlockImage paints a cols x rows grid of uniform blocks with random
// intensities. Horizontally adjacent blocks differ by at least 40 levels so
// re-encoding noise cannot flip a difference bit.
func makeBlockImage(seed int64, cols, rows, block int) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	values := make([]uint8, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := uint8(20 + rng.Intn(216))
			for x > 0 && absDiff(v, values[y*cols+x-1]) < 40 {
				v = uint8(20 + rng.Intn(216))
			}
			values[y*cols+x] = v
		}
	}

	img := image.NewGray(image.Rect(0, 0, cols*block, rows*block))
	for y := 0; y < rows*block; y++ {
		for x := 0; x < cols*block; x++ {
			img.SetGray(x, y, color.Gray{Y: values[(y/block)*cols+x/block]})
		}
	}
	return img
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func scaled(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	return imaging.Resize(img, int(float64(b.Dx())*factor), int(float64(b.Dy())*factor), imaging.Lanczos)
}

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
