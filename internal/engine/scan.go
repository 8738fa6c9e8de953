package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/progress"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// StartScan cancels any scan in flight, waits for it to settle and starts a
// new one. The returned channel carries this scan's updates and is closed
// after its terminal state. A threshold of zero or less uses the configured
// large-file threshold.
func (e *Engine) StartScan(ctx context.Context, largeFileThreshold int64) <-chan progress.ScanState {
	if largeFileThreshold <= 0 {
		largeFileThreshold = e.opts.LargeFileThreshold
	}

	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	e.stopCurrentLocked()

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.scanSeq++
	e.cancel = cancel
	e.scanDone = done

	stream := progress.NewStream(streamBuffer)
	go func(id uint64) {
		defer close(done)
		defer cancel()
		e.runScan(scanCtx, id, largeFileThreshold, stream)
	}(e.scanSeq)

	return stream.C()
}

// Scan runs a scan to completion and returns its terminal state
func (e *Engine) Scan(ctx context.Context, largeFileThreshold int64) progress.ScanState {
	var last progress.ScanState
	for s := range e.StartScan(ctx, largeFileThreshold) {
		last = s
	}
	return last
}

// CancelScan stops the scan in flight, if any, and waits for it to end
func (e *Engine) CancelScan() {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	e.stopCurrentLocked()
}

// Scanning reports whether a scan is in flight
func (e *Engine) Scanning() bool {
	return e.reporter.Current().Kind == progress.StateScanning
}

func (e *Engine) stopCurrentLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.scanDone
	e.cancel = nil
	e.scanDone = nil
}

// scanRun carries one scan's publishing state
type scanRun struct {
	e      *Engine
	id     uint64
	stream *progress.Stream
}

func (r *scanRun) emit(s progress.ScanState) {
	if !r.e.reporter.Publish(s) {
		r.e.log.Debug("Scan %d: dropped transition to %s", r.id, s)
	}
	if s.Terminal() {
		r.stream.Finish(s)
		return
	}
	r.stream.Send(s)
}

func (e *Engine) runScan(ctx context.Context, id uint64, threshold int64, stream *progress.Stream) {
	run := &scanRun{e: e, id: id, stream: stream}
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			e.log.Error("Scan %d panicked: %v", id, p)
			run.emit(progress.Failed(fmt.Errorf("scan failed: %v", p)))
		}
	}()

	e.beginChanges()
	defer e.endChanges()
	final := e.scan(ctx, run, threshold)
	switch final.Kind {
	case progress.StateDone:
		e.log.Info("Scan %d finished: %d files in %s", id, final.FilesFound, progress.FormatDuration(time.Since(started)))
	case progress.StateCancelled:
		e.log.Info("Scan %d cancelled", id)
	case progress.StateError:
		e.log.Error("Scan %d failed: %s", id, final.Message)
	}
	run.emit(final)
}

// scan runs the phases in order and returns the terminal state. Results are
// committed only when every phase completed.
func (e *Engine) scan(ctx context.Context, run *scanRun, threshold int64) progress.ScanState {
	fail := func(err error) progress.ScanState {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return progress.Cancelled()
		}
		return progress.Failed(err)
	}

	run.emit(progress.Scanning(progress.PhaseIndexing, 0))
	builder := &scanner.TreeBuilder{
		Fs:            e.fs,
		Exclude:       e.opts.Exclude,
		ProgressEvery: e.opts.ProgressEvery,
		OnProgress: func(n int) {
			run.emit(progress.Scanning(progress.PhaseIndexing, n))
		},
		OnSkip: func(path string, err error) {
			e.log.Warn("Skipping unreadable directory %s: %v", path, err)
		},
	}
	files, tree, err := builder.Build(ctx, e.opts.Root)
	if err != nil {
		return fail(err)
	}
	found := len(files)

	run.emit(progress.Scanning(progress.PhaseDuplicates, found))
	dedup := &scanner.Deduplicator{Fs: e.fs, Workers: e.opts.Workers}
	dups, err := dedup.Find(ctx, files, func(done, total int) {
		s := progress.Scanning(progress.PhaseDuplicates, found)
		s.Done, s.Total = done, total
		run.emit(s)
	})
	if err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	run.emit(progress.Scanning(progress.PhaseAnalyzing, found))
	next := e.analyze(files, dups, tree, threshold)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	run.emit(progress.Scanning(progress.PhaseJunk, found))
	next = e.finish(next, time.Now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	// deletes and file operations that ran during the walk win over it
	next = e.reconcile(next, e.changes)
	e.commit(next)
	return progress.Done(len(next.Files))
}

// refreshed returns a generation without the removed paths, reusing the
// existing duplicate groups instead of hashing again.
func (e *Engine) refreshed(cur *Results, removed map[string]struct{}) *Results {
	files := withoutPaths(cur.Files, removed)
	dups := scanner.Regroup(cur.Duplicates, removed)
	tree := scanner.RebuildTree(cur.Tree, files)
	return e.derive(files, dups, tree, cur.largeThreshold, cur.Stats.ScannedAt)
}
