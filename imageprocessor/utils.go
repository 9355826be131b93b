package imageprocessor

import (
	"image"
	"os/exec"

	"github.com/disintegration/imaging"
)

// hasExiftool checks if exiftool is available on the system
var hasExiftool = func() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// resizeExact scales img to w x h with a box filter. A same-size image is
// returned unchanged.
func resizeExact(img image.Image, w, h int) image.Image {
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Box)
}
