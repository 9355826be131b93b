//go:build !opencv

package imageprocessor

import "errors"

// OpenCVAvailable reports whether the binary was built with OpenCV support
const OpenCVAvailable = false

var errOpenCVUnavailable = errors.New("built without opencv support (rebuild with -tags opencv)")

func normalizeOpenCV(path string, width, height int) (*Grid, error) {
	return nil, newDecodeError(path, ReasonUnsupported, errOpenCVUnavailable)
}
