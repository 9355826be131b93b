package imageprocessor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"sync"

	"findsimilar/logging"

	"github.com/barasher/go-exiftool"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// previewTags are tried in order; the first embedded JPEG that decodes wins
var previewTags = []string{
	"JpgFromRaw",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

// RawImageLoader hashes camera RAW files through their embedded JPEG preview
type RawImageLoader struct {
	useExiftool bool

	once    sync.Once
	mu      sync.Mutex
	et      *exiftool.Exiftool
	initErr error
}

// NewRawImageLoader creates a RAW loader; exiftool, if installed, starts on
// first use
func NewRawImageLoader() *RawImageLoader {
	return &RawImageLoader{useExiftool: hasExiftool()}
}

// CanLoad checks if the file is a camera RAW format
func (l *RawImageLoader) CanLoad(path string) bool {
	return IsRawFormat(path)
}

func (l *RawImageLoader) start() error {
	l.once.Do(func() {
		l.et, l.initErr = exiftool.NewExiftool(exiftool.ExtractAllBinaryMetadata())
		if l.initErr != nil {
			logging.LogError("Failed to initialize exiftool: %v", l.initErr)
		}
	})
	return l.initErr
}

// LoadImage decodes the largest usable embedded preview. exiftool is used
// when it is installed and the file is on the OS filesystem; otherwise, or
// when exiftool finds nothing, the file is scanned for JPEG streams.
func (l *RawImageLoader) LoadImage(fs afero.Fs, path string) (image.Image, error) {
	if _, onDisk := fs.(*afero.OsFs); onDisk && l.useExiftool {
		img, err := l.loadWithExiftool(path)
		if err == nil {
			return img, nil
		}
		logging.DebugLog("exiftool preview failed for %s: %v", path, err)
	}
	return scanEmbeddedPreview(fs, path)
}

func (l *RawImageLoader) loadWithExiftool(path string) (image.Image, error) {
	if err := l.start(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.et == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("RAW loader is closed")
	}
	infos := l.et.ExtractMetadata(path)
	l.mu.Unlock()

	if len(infos) == 0 {
		return nil, fmt.Errorf("no metadata extracted")
	}
	info := infos[0]
	if info.Err != nil {
		return nil, info.Err
	}

	for _, tag := range previewTags {
		raw, ok := info.Fields[tag].(string)
		if !ok {
			continue
		}
		data, err := decodeBinaryField(raw)
		if err != nil {
			logging.DebugLog("Skipping %s of %s: %v", tag, path, err)
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err == nil {
			logging.DebugLog("Using %s preview for RAW image: %s", tag, path)
			return img, nil
		}
	}

	return nil, fmt.Errorf("could not extract any preview image")
}

// Close stops the exiftool process
func (l *RawImageLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.et == nil {
		return nil
	}
	err := l.et.Close()
	l.et = nil
	return err
}

// decodeBinaryField decodes exiftool's "base64:" encoding of binary tags
func decodeBinaryField(v string) ([]byte, error) {
	const prefix = "base64:"
	if !strings.HasPrefix(v, prefix) {
		return nil, fmt.Errorf("field is not binary")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(v, prefix))
}
