// Package cache persists fingerprints keyed by file path and signature so
// unchanged files are never decoded twice.
package cache

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"findsimilar/types"

	"github.com/spf13/afero"
)

// ErrUnavailable is returned when the cache location cannot be opened for
// writing. It is the only cache failure that stops a scan from starting.
var ErrUnavailable = errors.New("cache unavailable")

// Signature is the cheap change detector for a file: its size and
// modification time in unix nanoseconds
type Signature struct {
	Size    int64
	ModTime int64
}

// SignatureOf builds the signature of a stat result
func SignatureOf(info os.FileInfo) Signature {
	return Signature{Size: info.Size(), ModTime: info.ModTime().UnixNano()}
}

// isCurrent reports whether path still exists on fs with signature sig
func isCurrent(fs afero.Fs, path string, sig Signature) bool {
	info, err := fs.Stat(path)
	return err == nil && SignatureOf(info) == sig
}

// Current filters entries down to those whose file on fs still matches the
// stored signature. Rows for deleted or changed files are dropped.
func Current(fs afero.Fs, entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if isCurrent(fs, e.Path, e.Signature) {
			out = append(out, e)
		}
	}
	return out
}

// Cache maps (path, signature, algorithm) to a fingerprint. Implementations
// must allow concurrent Lookup calls and serialize Store calls.
type Cache interface {
	// Lookup returns the stored fingerprint when the entry for path matches
	// sig and alg. Anything else, including unreadable entries, is a miss.
	Lookup(path string, sig Signature, alg types.Algorithm) (types.Fingerprint, bool)
	// Store records fp for path, replacing any previous entry for path
	Store(path string, sig Signature, alg types.Algorithm, fp types.Fingerprint) error
	Close() error
}

// Entry is one stored fingerprint
type Entry struct {
	Path        string
	Signature   Signature
	Algorithm   types.Algorithm
	Fingerprint types.Fingerprint
}

// CacheError describes a failed cache operation. Scans log it and carry on.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// MemoryCache keeps entries in memory for the life of the process
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Lookup(path string, sig Signature, alg types.Algorithm) (types.Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok || e.Signature != sig || e.Algorithm != alg {
		return 0, false
	}
	return e.Fingerprint, true
}

func (c *MemoryCache) Store(path string, sig Signature, alg types.Algorithm, fp types.Fingerprint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = Entry{Path: path, Signature: sig, Algorithm: alg, Fingerprint: fp}
	return nil
}

// Entries returns the entries computed with alg, sorted by path
func (c *MemoryCache) Entries(alg types.Algorithm) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Algorithm == alg {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Len returns the number of stored entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error { return nil }
