package imageprocessor

import (
	"testing"

	"findsimilar/types"

	"github.com/spf13/afero"
)

func TestComputeDifferenceHash(t *testing.T) {
	tests := []struct {
		name string
		fill func(x, y int) uint8
		want types.Fingerprint
	}{
		{"increasing rows", func(x, y int) uint8 { return uint8(x * 10) }, 0},
		{"decreasing rows", func(x, y int) uint8 { return uint8(200 - x*10) }, ^types.Fingerprint(0)},
		{"first row decreasing", func(x, y int) uint8 {
			if y == 0 {
				return uint8(200 - x*10)
			}
			return 50
		}, 0xFF00000000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(9, 8)
			for y := 0; y < 8; y++ {
				for x := 0; x < 9; x++ {
					g.Pix[y*9+x] = tt.fill(x, y)
				}
			}
			if got := ComputeDifferenceHash(g); got != tt.want {
				t.Errorf("ComputeDifferenceHash() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeAverageHash(t *testing.T) {
	g := NewGrid(8, 8)
	for i := 0; i < 32; i++ {
		g.Pix[i] = 200
	}
	if got, want := ComputeAverageHash(g), types.Fingerprint(0xFFFFFFFF00000000); got != want {
		t.Errorf("half bright grid = %s, want %s", got, want)
	}

	uniform := NewGrid(8, 8)
	for i := range uniform.Pix {
		uniform.Pix[i] = 77
	}
	if got := ComputeAverageHash(uniform); got != ^types.Fingerprint(0) {
		t.Errorf("uniform grid = %s, want all bits set", got)
	}
}

func TestExtractRejectsWrongGrid(t *testing.T) {
	if _, err := Extract(types.AlgorithmDifference, NewGrid(8, 8)); err == nil {
		t.Error("expected error for 8x8 grid with dhash")
	}
	if _, err := Extract(types.AlgorithmAverage, nil); err == nil {
		t.Error("expected error for nil grid")
	}
}

func TestGridSize(t *testing.T) {
	for _, alg := range types.Algorithms() {
		w, h := GridSize(alg)
		if _, err := Extract(alg, NewGrid(w, h)); err != nil {
			t.Errorf("Extract(%s) on %dx%d grid: %v", alg, w, h, err)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/img/a.png", encodePNG(t, makeBlockImage(7, 9, 8, 30)))
	writeFile(t, fs, "/img/a.jpg", encodeJPEG(t, makeBlockImage(7, 9, 8, 30), 85))

	for _, alg := range types.Algorithms() {
		for _, path := range []string{"/img/a.png", "/img/a.jpg"} {
			first, err := NewHasher(fs, BackendNative, alg).Fingerprint(path)
			if err != nil {
				t.Fatalf("%s %s: %v", alg, path, err)
			}
			second, err := NewHasher(fs, BackendNative, alg).Fingerprint(path)
			if err != nil {
				t.Fatalf("%s %s: %v", alg, path, err)
			}
			if first != second {
				t.Errorf("%s %s: %s then %s", alg, path, first, second)
			}
		}
	}
}

func TestFingerprintLocality(t *testing.T) {
	tests := []struct {
		alg        types.Algorithm
		cols, rows int
	}{
		{types.AlgorithmDifference, 9, 8},
		{types.AlgorithmAverage, 8, 8},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			orig := makeBlockImage(11, tt.cols, tt.rows, 30)
			writeFile(t, fs, "/orig.png", encodePNG(t, orig))
			writeFile(t, fs, "/recompressed.jpg", encodeJPEG(t, orig, 75))
			writeFile(t, fs, "/half.png", encodePNG(t, scaled(orig, 0.5)))
			writeFile(t, fs, "/other.png", encodePNG(t, makeBlockImage(12, tt.cols, tt.rows, 30)))

			h := NewHasher(fs, BackendNative, tt.alg)
			fp := func(path string) types.Fingerprint {
				v, err := h.Fingerprint(path)
				if err != nil {
					t.Fatalf("Fingerprint(%s): %v", path, err)
				}
				return v
			}

			ref := fp("/orig.png")
			for _, path := range []string{"/recompressed.jpg", "/half.png"} {
				if d := ref.Distance(fp(path)); d > LocalityBound {
					t.Errorf("distance to %s = %d, want <= %d", path, d, LocalityBound)
				}
			}
			if d := ref.Distance(fp("/other.png")); d <= LocalityBound {
				t.Errorf("distance to unrelated image = %d, want > %d", d, LocalityBound)
			}
		})
	}
}

func TestFormatFingerprint(t *testing.T) {
	fp := types.Fingerprint(0x00ff00ff00ff00ff)
	s := FormatFingerprint(types.AlgorithmDifference, fp)
	if s != "d:00ff00ff00ff00ff" {
		t.Errorf("FormatFingerprint() = %q", s)
	}

	got, err := ParseFingerprint(types.AlgorithmDifference, s)
	if err != nil {
		t.Fatalf("ParseFingerprint: %v", err)
	}
	if got != fp {
		t.Errorf("ParseFingerprint() = %s, want %s", got, fp)
	}

	if _, err := ParseFingerprint(types.AlgorithmAverage, s); err == nil {
		t.Error("expected kind mismatch error")
	}
	if _, err := ParseFingerprint(types.AlgorithmDifference, "not a hash"); err == nil {
		t.Error("expected parse error")
	}
}
