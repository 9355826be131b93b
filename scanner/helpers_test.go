package scanner

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"findsimilar/imageprocessor"
	"findsimilar/types"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// blockPNG encodes a 270x240 picture of 9x8 uniform blocks. Horizontally
// adjacent blocks differ by at least 40 levels so dhash is stable under
// rescaling.
func blockPNG(t *testing.T, seed int64, scale float64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	const cols, rows, block = 9, 8, 30

	values := make([]uint8, cols*rows)
	for i := range values {
		v := uint8(20 + rng.Intn(216))
		for i%cols > 0 && diff(v, values[i-1]) < 40 {
			v = uint8(20 + rng.Intn(216))
		}
		values[i] = v
	}

	img := image.NewGray(image.Rect(0, 0, cols*block, rows*block))
	for y := 0; y < rows*block; y++ {
		for x := 0; x < cols*block; x++ {
			img.SetGray(x, y, color.Gray{Y: values[(y/block)*cols+x/block]})
		}
	}

	var out image.Image = img
	if scale != 1 {
		out = imaging.Resize(img, int(cols*block*scale), int(rows*block*scale), imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func diff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// fivePhotos lays out 1 and 2 as byte-identical copies, 3 as a half size
// copy of 1, and 4 and 5 as unrelated pictures
func fivePhotos(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	original := blockPNG(t, 100, 1)
	files := map[string][]byte{
		"/photos/1.png":     original,
		"/photos/2.png":     original,
		"/photos/sub/3.png": blockPNG(t, 100, 0.5),
		"/photos/4.png":     blockPNG(t, 200, 1),
		"/photos/sub/5.png": blockPNG(t, 300, 1),
		"/photos/notes.txt": []byte("not an image"),
	}
	for path, data := range files {
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

// countingHasher counts pipeline invocations
type countingHasher struct {
	inner Hasher
	calls atomic.Int64
}

func newCountingHasher(fs afero.Fs) *countingHasher {
	return &countingHasher{inner: imageprocessor.NewHasher(fs, imageprocessor.BackendNative, types.AlgorithmDifference)}
}

func (h *countingHasher) Fingerprint(path string) (types.Fingerprint, error) {
	h.calls.Add(1)
	return h.inner.Fingerprint(path)
}

// gateHasher blocks inside its n-th call until the gate is opened
type gateHasher struct {
	inner   Hasher
	calls   atomic.Int64
	n       int64
	reached chan struct{}
	gate    chan struct{}
}

func (h *gateHasher) Fingerprint(path string) (types.Fingerprint, error) {
	if h.calls.Add(1) == h.n {
		close(h.reached)
		<-h.gate
	}
	return h.inner.Fingerprint(path)
}

// cancellingHasher cancels the scan from inside its first call and counts
// the calls that start afterwards
type cancellingHasher struct {
	cancel    func()
	calls     atomic.Int64
	cancelled atomic.Bool
	late      atomic.Int64
}

func (h *cancellingHasher) Fingerprint(path string) (types.Fingerprint, error) {
	if h.cancelled.Load() {
		h.late.Add(1)
	}
	if h.calls.Add(1) == 1 {
		h.cancel()
		h.cancelled.Store(true)
	}
	return types.Fingerprint(len(path)), nil
}

// progressLog records every progress report
type progressLog struct {
	mu      sync.Mutex
	reports []Progress
}

func (l *progressLog) record(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = append(l.reports, p)
}

func (l *progressLog) all() []Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Progress(nil), l.reports...)
}
