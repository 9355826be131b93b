// Package scanner runs a duplicate scan: it enumerates image files, hashes
// them on a worker pool through the fingerprint cache and clusters the
// results.
package scanner

import (
	"context"
	"fmt"
	"time"

	"findsimilar/cache"
	"findsimilar/imageprocessor"
	"findsimilar/logging"
	"findsimilar/signalhandler"
	"findsimilar/types"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const defaultProgressInterval = 500 * time.Millisecond

// Handle controls a running scan
type Handle struct {
	cancel context.CancelFunc
	ack    chan struct{}
	done   chan struct{}

	result *ScanResult
}

// Cancel asks the scan to stop and returns once no further files will be
// dispatched. Files already being hashed still complete.
func (h *Handle) Cancel() {
	h.cancel()
	<-h.ack
}

// Done is closed when the result is available
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the scan ends and returns its result
func (h *Handle) Wait() *ScanResult {
	<-h.done
	return h.result
}

// scan is the resolved state of one run
type scan struct {
	opts      Options
	roots     []string
	match     func(path string) bool
	fs        afero.Fs
	cache     cache.Cache
	hasher    Hasher
	cleanup   []func() error
	algorithm types.Algorithm
}

// Scan runs a scan to completion or cancellation of ctx. When the scan
// cannot start, the result has StatusFailed and the error is returned too.
func Scan(ctx context.Context, opts Options) (*ScanResult, error) {
	h, err := Start(ctx, opts)
	if err != nil {
		return failedResult(opts, err), err
	}
	return h.Wait(), nil
}

func failedResult(opts Options, err error) *ScanResult {
	return &ScanResult{
		Status:    StatusFailed,
		Err:       err,
		Threshold: opts.Threshold,
		Algorithm: opts.Algorithm,
	}
}

// Start validates opts, opens the cache and begins the scan in the
// background. Errors returned here mean the scan never started.
func Start(ctx context.Context, opts Options) (*Handle, error) {
	s, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		ack:    make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		h.result = s.run(scanCtx, h.ack)
	}()

	return h, nil
}

func prepare(opts Options) (*scan, error) {
	if opts.Threshold < 0 || opts.Threshold > types.FingerprintBits {
		return nil, fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidThreshold, opts.Threshold, types.FingerprintBits)
	}

	alg := types.AlgorithmDifference
	if opts.Algorithm != "" {
		parsed, err := types.ParseAlgorithm(string(opts.Algorithm))
		if err != nil {
			return nil, err
		}
		alg = parsed
	}
	opts.Algorithm = alg

	if opts.Backend == "" {
		opts.Backend = imageprocessor.BackendNative
	}
	if opts.Workers <= 0 {
		opts.Workers = signalhandler.GetOptimalProcs(opts.Backend == imageprocessor.BackendOpenCV)
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}

	s := &scan{opts: opts, fs: opts.Fs, algorithm: alg, match: extensionFilter(opts.Extensions)}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}

	roots, err := checkRoots(s.fs, opts.Roots)
	if err != nil {
		return nil, err
	}
	s.roots = roots

	switch {
	case opts.Cache != nil:
		s.cache = opts.Cache
	case opts.CacheLocation != "":
		c, err := cache.Open(opts.CacheLocation)
		if err != nil {
			return nil, err
		}
		s.cache = c
		s.cleanup = append(s.cleanup, c.Close)
	default:
		s.cache = cache.NewMemoryCache()
	}

	if opts.Hasher != nil {
		s.hasher = opts.Hasher
	} else {
		h := imageprocessor.NewHasher(s.fs, opts.Backend, alg)
		s.hasher = h
		s.cleanup = append(s.cleanup, h.Close)
	}

	return s, nil
}

func (s *scan) run(ctx context.Context, ack chan struct{}) *ScanResult {
	start := time.Now()
	defer s.close()

	logging.DebugLog("Starting scan of %v (threshold %d, %s, %d workers)", s.roots, s.opts.Threshold, s.algorithm, s.opts.Workers)

	files, err := collectFiles(s.fs, s.roots, s.match, func() bool { return ctx.Err() != nil })
	if err != nil {
		close(ack)
		return failedResult(s.opts, err)
	}
	enumerationStopped := ctx.Err() != nil

	results := make(chan fileResult)
	tracker := NewProgressTracker(len(files), s.opts.ProgressInterval, s.opts.OnProgress, results)

	queue := make(chan string)
	dispatched := 0
	var group errgroup.Group

	group.Go(func() error {
		defer close(ack)
		defer close(queue)
		for _, path := range files {
			// select picks at random when both cases are ready
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case queue <- path:
				dispatched++
			}
		}
		return nil
	})

	for i := 0; i < s.opts.Workers; i++ {
		group.Go(func() error {
			for path := range queue {
				results <- s.process(path)
			}
			return nil
		})
	}

	group.Wait()
	close(results)
	records, fileErrors := tracker.Stop()

	// a cancellation that arrives after the last file was handed out
	// changes nothing
	cancelled := enumerationStopped || dispatched < len(files)

	result := &ScanResult{
		Status:    StatusCompleted,
		Cancelled: cancelled,
		Errors:    fileErrors,
		Records:   records,
		Threshold: s.opts.Threshold,
		Algorithm: s.algorithm,
		Stats:     statsOf(len(files), records, fileErrors),
	}
	if cancelled {
		result.Status = StatusCancelled
	}

	result.Groups = result.cluster(s.opts.Threshold)
	result.Duration = time.Since(start)

	logging.LogInfo("Scan %s: %d files, %d hashed, %d from cache, %d errors, %d groups in %v",
		result.Status, result.Stats.Processed, result.Stats.Hashed, result.Stats.CacheHits,
		result.Stats.Errors, len(result.Groups), result.Duration.Round(time.Millisecond))

	return result
}

// process runs stat, cache lookup, hash and cache store for one file
func (s *scan) process(path string) fileResult {
	record := types.ImageRecord{Path: path}

	info, err := s.fs.Stat(path)
	if err != nil {
		de := imageprocessor.ClassifyError(path, err)
		record.DecodeError = true
		return fileResult{record: record, err: &FileError{Path: path, Reason: de.Reason, Err: de}}
	}
	record.Size = info.Size()
	record.ModifiedAt = info.ModTime()
	sig := cache.SignatureOf(info)

	if fp, ok := s.cache.Lookup(path, sig, s.algorithm); ok {
		record.Fingerprint = fp
		record.HasHash = true
		record.FromCache = true
		return fileResult{record: record, cacheHit: true}
	}

	fp, err := s.hasher.Fingerprint(path)
	if err != nil {
		de := imageprocessor.ClassifyError(path, err)
		record.DecodeError = true
		return fileResult{record: record, err: &FileError{Path: path, Reason: de.Reason, Err: de}}
	}
	record.Fingerprint = fp
	record.HasHash = true

	if err := s.cache.Store(path, sig, s.algorithm, fp); err != nil {
		logging.LogWarning("Fingerprint of %s not cached: %v", path, err)
	}
	return fileResult{record: record}
}

func (s *scan) close() {
	for _, fn := range s.cleanup {
		if err := fn(); err != nil {
			logging.LogWarning("Error releasing scan resources: %v", err)
		}
	}
}
