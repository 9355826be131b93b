//go:build opencv

package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVAvailable reports whether the binary was built with OpenCV support
const OpenCVAvailable = true

// normalizeOpenCV reads path as grayscale and area-resizes it to the grid size
func normalizeOpenCV(path string, width, height int) (*Grid, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("opencv could not decode image")
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)

	grid := NewGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			grid.Pix[y*width+x] = resized.GetUCharAt(y, x)
		}
	}
	return grid, nil
}
