package scanner

import (
	"sort"
	"sync"
	"time"

	"findsimilar/logging"
	"findsimilar/types"
)

// ProgressTracker collects worker results and reports progress periodically
type ProgressTracker struct {
	mu       sync.Mutex
	progress Progress
	records  []types.ImageRecord
	errors   []FileError

	onProgress func(Progress)
	ticker     *time.Ticker
	done       chan struct{}
	collected  chan struct{}
	reported   chan struct{}
}

// NewProgressTracker starts the result collector and the progress reporter
func NewProgressTracker(total int, interval time.Duration, onProgress func(Progress), results <-chan fileResult) *ProgressTracker {
	tracker := &ProgressTracker{
		progress:   Progress{Total: total},
		onProgress: onProgress,
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		collected:  make(chan struct{}),
		reported:   make(chan struct{}),
	}

	go tracker.reportProgress()
	go tracker.processResults(results)

	return tracker
}

// reportProgress invokes the callback once at start, on every tick where
// something changed and once at the end
func (p *ProgressTracker) reportProgress() {
	defer close(p.reported)

	var last Progress
	report := func(force bool) {
		current := p.Snapshot()
		if p.onProgress != nil && (force || current != last) {
			p.onProgress(current)
		}
		last = current
	}

	report(true)
	for {
		select {
		case <-p.done:
			report(true)
			return
		case <-p.ticker.C:
			report(false)
		}
	}
}

// processResults updates the tracker state from worker results
func (p *ProgressTracker) processResults(results <-chan fileResult) {
	defer close(p.collected)

	for result := range results {
		p.mu.Lock()
		p.progress.Processed++
		p.records = append(p.records, result.record)
		if result.cacheHit {
			p.progress.CacheHits++
		}
		if result.err != nil {
			p.progress.Errors++
			p.errors = append(p.errors, *result.err)
		}
		p.mu.Unlock()

		if result.err != nil {
			logging.LogImageProcessed(result.record.Path, false, result.err.Error())
		} else {
			logging.LogImageProcessed(result.record.Path, true, "")
		}
	}
}

// Snapshot returns the current counters
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Stop waits for the results channel to drain, sends the final report and
// returns the collected records and errors sorted by path
func (p *ProgressTracker) Stop() ([]types.ImageRecord, []FileError) {
	<-p.collected
	p.ticker.Stop()
	close(p.done)
	<-p.reported

	p.mu.Lock()
	defer p.mu.Unlock()
	sort.Slice(p.records, func(i, j int) bool { return p.records[i].Path < p.records[j].Path })
	sort.Slice(p.errors, func(i, j int) bool { return p.errors[i].Path < p.errors[j].Path })
	return p.records, p.errors
}
