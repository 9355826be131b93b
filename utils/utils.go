package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultCacheFile is the cache file name used next to the executable
const DefaultCacheFile = "similar.db"

// GetDefaultCachePath returns the default path for the fingerprint cache
func GetDefaultCachePath() string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return DefaultCacheFile
	}

	return filepath.Join(filepath.Dir(exePath), DefaultCacheFile)
}

// NormalizeExtensions lower-cases extensions and makes sure each has a leading dot
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !seen[ext] {
			seen[ext] = true
			out = append(out, ext)
		}
	}
	return out
}
