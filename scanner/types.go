package scanner

import (
	"errors"
	"time"

	"findsimilar/cache"
	"findsimilar/imageprocessor"
	"findsimilar/types"

	"github.com/spf13/afero"
)

// Reasons a scan refuses to start
var (
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrNoRoots          = errors.New("no scan roots given")
	ErrRootNotFound     = errors.New("scan root not found")
)

// Status tells a full result from a partial or failed one
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Hasher computes the fingerprint of one file. *imageprocessor.Hasher is
// the production implementation.
type Hasher interface {
	Fingerprint(path string) (types.Fingerprint, error)
}

// Options configures one scan
type Options struct {
	Roots     []string
	Threshold int
	Algorithm types.Algorithm

	// CacheLocation is the SQLite cache file. Empty with a nil Cache keeps
	// fingerprints in memory for this scan only.
	CacheLocation string
	// Cache overrides CacheLocation; the scan does not close it
	Cache cache.Cache

	Fs         afero.Fs
	Backend    imageprocessor.Backend
	Workers    int
	Extensions []string

	ProgressInterval time.Duration
	// OnProgress is called from a dedicated goroutine, never from a worker
	OnProgress func(Progress)

	// Hasher overrides the normalizer and extractor pipeline
	Hasher Hasher
}

// Progress is a snapshot of a running scan
type Progress struct {
	Processed int
	Total     int
	CacheHits int
	Errors    int
}

// FileError records a file the scan had to skip
type FileError struct {
	Path   string
	Reason imageprocessor.Reason
	Err    error
}

func (e FileError) Error() string {
	if e.Err == nil {
		return e.Path + ": " + string(e.Reason)
	}
	return e.Err.Error()
}

// Stats counts what happened to the discovered files
type Stats struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Hashed     int `json:"hashed"`
	CacheHits  int `json:"cache_hits"`
	Errors     int `json:"errors"`
}

// ScanResult is what a scan returns in every outcome
type ScanResult struct {
	Status    Status
	Cancelled bool
	// Err is the reason a failed scan could not start
	Err error

	Groups  []types.DuplicateGroup
	Errors  []FileError
	Records []types.ImageRecord

	Threshold int
	Algorithm types.Algorithm
	Stats     Stats
	Duration  time.Duration
}

// fileResult is what a worker reports for one file
type fileResult struct {
	record   types.ImageRecord
	err      *FileError
	cacheHit bool
}
