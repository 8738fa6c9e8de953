package engine

import (
	"context"
	"errors"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/cleaner"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// DeleteFiles quarantines records and drops them from every result set.
// A delete that is still pending is confirmed first. The batch always
// completes; per-file failures are reported in the result.
func (e *Engine) DeleteFiles(records []scanner.FileRecord) cleaner.DeleteResult {
	e.stopUndoTimer()

	e.mu.Lock()
	defer e.mu.Unlock()

	result := e.store.Delete(records)
	if result.Moved > 0 {
		e.noteRemoved(pathsOf(result.MovedFiles)...)
		e.commit(e.refreshed(e.Results(), scanner.PathSet(result.MovedFiles)))
	}
	if tx, ok := e.store.Pending(); ok {
		e.armUndoTimer(tx.ID, e.opts.UndoWindow)
	}

	if result.Failed > 0 {
		e.log.Warn("Delete: %d moved, %d failed", result.Moved, result.Failed)
	} else {
		e.log.Info("Delete: %d moved", result.Moved)
	}
	return result
}

// DeleteFilesAsync runs DeleteFiles in the background. The channel yields
// the result once and is closed.
func (e *Engine) DeleteFilesAsync(records []scanner.FileRecord) <-chan cleaner.DeleteResult {
	ch := make(chan cleaner.DeleteResult, 1)
	go func() {
		defer close(ch)
		ch <- e.DeleteFiles(records)
	}()
	return ch
}

// UndoDelete restores the pending delete and recomputes duplicates, large
// files and junk over the updated list. Files whose original path is taken
// are skipped. The transaction is cleared either way.
func (e *Engine) UndoDelete() (cleaner.UndoResult, error) {
	return e.UndoDeleteContext(context.Background())
}

// UndoDeleteContext is UndoDelete with a context bounding the duplicate
// recompute. If ctx ends first the previous duplicate groups are kept.
func (e *Engine) UndoDeleteContext(ctx context.Context) (cleaner.UndoResult, error) {
	e.stopUndoTimer()

	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.store.Undo()
	if err != nil {
		return result, err
	}
	if len(result.Restored) == 0 {
		return result, nil
	}
	e.noteAdded(result.Restored...)

	cur := e.Results()
	present := scanner.PathSet(cur.Files)
	files := append([]scanner.FileRecord{}, cur.Files...)
	for _, r := range result.Restored {
		if _, ok := present[r.Path]; ok {
			continue
		}
		r.DuplicateGroup = scanner.NoGroup
		files = append(files, r)
	}

	dedup := &scanner.Deduplicator{Fs: e.fs, Workers: e.opts.Workers}
	dups, err := dedup.Find(ctx, files, nil)
	if err != nil {
		e.log.Warn("Duplicate recompute after undo interrupted: %v", err)
		dups = scanner.Regroup(cur.Duplicates, nil)
	}

	tree := scanner.RebuildTree(cur.Tree, files)
	e.commit(e.derive(files, dups, tree, cur.largeThreshold, cur.Stats.ScannedAt))

	e.log.Info("Undo: %d restored, %d skipped", len(result.Restored), len(result.Skipped))
	return result, nil
}

// ConfirmDelete permanently removes the pending delete
func (e *Engine) ConfirmDelete() (cleaner.ConfirmResult, error) {
	e.stopUndoTimer()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Confirm()
}

// confirmExpired confirms txID if it is still the pending transaction. A
// timer that fires after a newer delete started leaves that one alone.
func (e *Engine) confirmExpired(txID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.store.Pending()
	if !ok || tx.ID != txID {
		return
	}
	if _, err := e.store.Confirm(); err != nil && !errors.Is(err, ErrNoPendingDelete) {
		e.log.Warn("Failed to confirm delete %s after undo window: %v", txID, err)
	}
}

func (e *Engine) armUndoTimer(txID string, after time.Duration) {
	e.timerMu.Lock()
	defer e.timerMu.Unlock()

	if e.undoTimer != nil {
		e.undoTimer.Stop()
	}
	e.undoTimer = time.AfterFunc(after, func() { e.confirmExpired(txID) })
}

func (e *Engine) stopUndoTimer() {
	e.timerMu.Lock()
	defer e.timerMu.Unlock()

	if e.undoTimer != nil {
		e.undoTimer.Stop()
		e.undoTimer = nil
	}
}
