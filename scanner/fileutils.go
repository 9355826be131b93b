package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"findsimilar/imageprocessor"
	"findsimilar/logging"
	"findsimilar/utils"

	"github.com/spf13/afero"
)

// errStopWalk aborts enumeration when the scan is cancelled
var errStopWalk = errors.New("walk stopped")

// extensionFilter returns the predicate selecting files to scan. With no
// extensions every format a loader is registered for is accepted.
func extensionFilter(exts []string) func(path string) bool {
	exts = utils.NormalizeExtensions(exts)
	if len(exts) == 0 {
		return imageprocessor.IsImageFile
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[ext] = true
	}
	return func(path string) bool {
		return set[strings.ToLower(filepath.Ext(path))]
	}
}

// checkRoots resolves roots to clean absolute paths and fails on the first
// one that does not exist
func checkRoots(fs afero.Fs, roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
		}
		if _, err := fs.Stat(abs); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// collectFiles walks the roots and returns the sorted, de-duplicated regular
// files accepted by match. Unreadable entries are logged and
// skipped. stop aborts the walk when it returns true.
func collectFiles(fs afero.Fs, roots []string, match func(path string) bool, stop func() bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range roots {
		err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if stop() {
				return errStopWalk
			}
			if err != nil {
				logging.LogWarning("Error accessing path %s: %v", path, err)
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !match(path) || seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if errors.Is(err, errStopWalk) {
			break
		}
		if err != nil && !errors.Is(err, filepath.SkipDir) {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
