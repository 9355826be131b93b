package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/spf13/afero"
)

const (
	// maxRawFileSize bounds how much of a RAW file is read into memory
	maxRawFileSize = 256 << 20
	// maxPreviewCandidates bounds how many JPEG start markers are tried
	maxPreviewCandidates = 64
)

var jpegSOI = []byte{0xFF, 0xD8, 0xFF}

// scanEmbeddedPreview finds the largest embedded JPEG in a RAW container.
// Camera RAW formats (TIFF based or ISO box based) store one or more JPEG
// previews verbatim, so a signature scan finds them without a container
// parser.
func scanEmbeddedPreview(fs afero.Fs, path string) (image.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxRawFileSize))
	if err != nil {
		return nil, err
	}

	bestOffset, bestArea := -1, 0
	candidates := 0
	for pos := 0; pos < len(data) && candidates < maxPreviewCandidates; {
		i := bytes.Index(data[pos:], jpegSOI)
		if i < 0 {
			break
		}
		offset := pos + i
		candidates++

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data[offset:]))
		if err == nil {
			if area := cfg.Width * cfg.Height; area > bestArea {
				bestOffset, bestArea = offset, area
			}
		}
		pos = offset + len(jpegSOI)
	}

	if bestOffset < 0 {
		return nil, newDecodeError(path, ReasonCorrupt, fmt.Errorf("no embedded JPEG preview found"))
	}

	// the decoder stops at the first EOI, so trailing RAW data is ignored
	img, err := jpeg.Decode(bytes.NewReader(data[bestOffset:]))
	if err != nil {
		return nil, newDecodeError(path, ReasonCorrupt, fmt.Errorf("embedded preview: %w", err))
	}
	return img, nil
}
