package utils

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestGetDefaultCachePath(t *testing.T) {
	if got := filepath.Base(GetDefaultCachePath()); got != DefaultCacheFile {
		t.Errorf("GetDefaultCachePath base = %q, want %q", got, DefaultCacheFile)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"JPG", ".png", " .Jpg", "", "tiff"})
	want := []string{".jpg", ".png", ".tiff"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeExtensions = %v, want %v", got, want)
	}
}
