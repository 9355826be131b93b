package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"findsimilar/logging"

	"github.com/spf13/afero"
)

// ImageLoaderRegistry maintains a registry of image loaders keyed by extension
type ImageLoaderRegistry struct {
	loaders map[string]ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard loaders and
// the RAW preview loader
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := NewEmptyRegistry()

	standardLoader := NewStandardImageLoader()
	for _, ext := range StandardExtensions() {
		registry.RegisterLoader(ext, standardLoader)
	}

	rawLoader := NewRawImageLoader()
	for _, ext := range RawExtensions() {
		registry.RegisterLoader(ext, rawLoader)
	}
	if !rawLoader.useExiftool {
		logging.DebugLog("exiftool not found, RAW previews use the built-in scanner")
	}

	return registry
}

// NewEmptyRegistry creates a registry with no loaders
func NewEmptyRegistry() *ImageLoaderRegistry {
	return &ImageLoaderRegistry{loaders: make(map[string]ImageLoader)}
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the loader for the given path, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	loader, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	if !ok || !loader.CanLoad(path) {
		return nil
	}
	return loader
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path) != nil
}

// Extensions returns the registered extensions in sorted order
func (r *ImageLoaderRegistry) Extensions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LoadImage decodes path with its registered loader. Loader panics are
// reported as corrupt files.
func (r *ImageLoaderRegistry) LoadImage(fs afero.Fs, path string) (img image.Image, err error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, newDecodeError(path, ReasonUnsupported, fmt.Errorf("no suitable loader found"))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.LogError("Panic during image loading: %v, file: %s\nStack trace: %s", rec, path, debug.Stack())
			img = nil
			err = newDecodeError(path, ReasonCorrupt, fmt.Errorf("panic during image loading: %v", rec))
		}
	}()

	return loader.LoadImage(fs, path)
}

// Close closes every registered loader that holds resources
func (r *ImageLoaderRegistry) Close() error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[io.Closer]bool)
	var errs []error
	for _, loader := range r.loaders {
		c, ok := loader.(io.Closer)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
