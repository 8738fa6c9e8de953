// Package engine owns the scan pipeline, the current result sets and the
// quarantine. All mutations of the results go through one lock, and readers
// always see a complete generation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/cleaner"
	"github.com/fenilsonani/storage-sweep/internal/logger"
	"github.com/fenilsonani/storage-sweep/internal/progress"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/internal/snapshot"
)

// ErrNoPendingDelete is returned by UndoDelete and ConfirmDelete when
// nothing is waiting in the quarantine.
var ErrNoPendingDelete = cleaner.ErrNoPendingTransaction

// streamBuffer bounds how many intermediate updates a slow reader can lag
const streamBuffer = 32

// Engine is the storage-management core behind the CLI and the daemon
type Engine struct {
	opts     Options
	fs       afero.Fs
	log      *logger.Logger
	cache    *snapshot.Cache
	store    *cleaner.Store
	reporter *progress.Reporter

	results atomic.Pointer[Results]

	// mu serializes every change to results, the snapshot file and the quarantine
	mu sync.Mutex
	// changes is non-nil while a scan runs; guarded by mu
	changes *scanChanges

	scanMu   sync.Mutex
	scanSeq  uint64
	cancel   context.CancelFunc
	scanDone chan struct{}

	timerMu   sync.Mutex
	undoTimer *time.Timer
}

// New opens the engine, restoring the last snapshot and any pending delete.
func New(opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if opts.Root == "" {
		return nil, errors.New("scan root is required")
	}
	if opts.SnapshotPath == "" || opts.QuarantineDir == "" {
		return nil, errors.New("snapshot path and quarantine directory are required")
	}
	opts.Root = filepath.Clean(opts.Root)

	store, err := cleaner.NewStore(cleaner.Options{
		Fs:       opts.Fs,
		Dir:      opts.QuarantineDir,
		Guard:    opts.Validator,
		Recorder: opts.History,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open quarantine: %w", err)
	}

	e := &Engine{
		opts:     opts,
		fs:       opts.Fs,
		log:      opts.Logger,
		cache:    snapshot.New(opts.Fs, opts.SnapshotPath),
		store:    store,
		reporter: progress.NewReporter(),
	}
	e.restore()
	e.resumePending()
	return e, nil
}

func (e *Engine) restore() {
	snap, ok := e.cache.Load()
	if !ok {
		e.results.Store(emptyResults())
		return
	}

	files := snap.Files
	if tx, pending := e.store.Pending(); pending {
		files = withoutPaths(files, scanner.PathSet(tx.Records()))
	}
	dups := scanner.DuplicatesFromTags(files)
	tree := scanner.RebuildTree(snap.Tree, files)
	e.results.Store(e.derive(files, dups, tree, e.opts.LargeFileThreshold, snap.SavedAt))
	e.log.Debug("Restored snapshot with %d files from %s", len(files), snap.SavedAt.Format(time.RFC3339))
}

// resumePending confirms a transaction whose window already lapsed while
// no process was running, and rearms the timer for one that has not.
func (e *Engine) resumePending() {
	tx, ok := e.store.Pending()
	if !ok {
		return
	}
	remaining := e.opts.UndoWindow - time.Since(tx.CreatedAt)
	if remaining <= 0 {
		if _, err := e.ConfirmDelete(); err != nil && !errors.Is(err, ErrNoPendingDelete) {
			e.log.Warn("Failed to confirm expired delete %s: %v", tx.ID, err)
		}
		return
	}
	e.armUndoTimer(tx.ID, remaining)
}

// Close stops the undo timer and any running scan. A pending delete stays
// in the quarantine for the next process.
func (e *Engine) Close() {
	e.stopUndoTimer()
	e.CancelScan()
}

// State returns the latest published scan state
func (e *Engine) State() progress.ScanState {
	return e.reporter.Current()
}

// Subscribe returns a channel receiving every published scan state across scans
func (e *Engine) Subscribe() <-chan progress.ScanState {
	return e.reporter.Subscribe()
}

// Unsubscribe releases a channel from Subscribe
func (e *Engine) Unsubscribe(ch <-chan progress.ScanState) {
	e.reporter.Unsubscribe(ch)
}

// Results returns the current generation
func (e *Engine) Results() *Results {
	return e.results.Load()
}

// Files returns the active file list
func (e *Engine) Files() []scanner.FileRecord { return e.Results().Files }

// Categories returns the files grouped by category
func (e *Engine) Categories() map[scanner.Category][]scanner.FileRecord {
	return e.Results().Categories
}

// Duplicates returns the confirmed duplicates ordered by group
func (e *Engine) Duplicates() []scanner.FileRecord { return e.Results().Duplicates }

// LargeFiles returns the large-file list
func (e *Engine) LargeFiles() []scanner.FileRecord { return e.Results().Large }

// Junk returns the junk list
func (e *Engine) Junk() []scanner.FileRecord { return e.Results().Junk }

// Tree returns the directory tree, nil before the first scan
func (e *Engine) Tree() *scanner.DirectoryNode { return e.Results().Tree }

// Stats returns the aggregate statistics
func (e *Engine) Stats() Stats { return e.Results().Stats }

// PendingDelete returns the transaction that can still be undone
func (e *Engine) PendingDelete() (cleaner.Transaction, bool) {
	return e.store.Pending()
}

// UndoDeadline returns when the pending delete is confirmed automatically
func (e *Engine) UndoDeadline() (time.Time, bool) {
	tx, ok := e.store.Pending()
	if !ok {
		return time.Time{}, false
	}
	return tx.CreatedAt.Add(e.opts.UndoWindow), true
}

// commit swaps in next and persists it. The caller holds e.mu.
func (e *Engine) commit(next *Results) {
	e.results.Store(next)
	if next.Tree == nil {
		return
	}
	if err := e.cache.Save(next.Files, next.Tree); err != nil {
		e.log.Warn("Failed to save snapshot: %v", err)
	}
}
