// Package cleaner moves files into a private quarantine so a batch delete
// can be undone until it is confirmed.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/logger"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/pkg/utils"
)

// ErrNoPendingTransaction is returned by Undo and Confirm when nothing is quarantined
var ErrNoPendingTransaction = errors.New("no pending delete")

// Action is what finally happened to a quarantined file
type Action string

const (
	ActionDeleted   Action = "deleted"
	ActionRestored  Action = "restored"
	ActionDiscarded Action = "discarded"
)

// Recorder receives the outcome of every closed transaction
type Recorder interface {
	Record(ctx context.Context, action Action, txID string, records []scanner.FileRecord) error
}

// Guard vets a path before it is quarantined
type Guard interface {
	ValidatePathForDeletion(path string) error
}

// DeleteResult summarizes one delete batch
type DeleteResult struct {
	Moved      int
	Failed     int
	FreedBytes int64
	CanUndo    bool
	MovedFiles []scanner.FileRecord
	Errors     []*DeletionError
}

// UndoResult summarizes a restore
type UndoResult struct {
	Restored []scanner.FileRecord
	Skipped  []*DeletionError
}

// ConfirmResult summarizes a commit
type ConfirmResult struct {
	Removed    int
	FreedBytes int64
}

// Options configures a Store
type Options struct {
	Fs       afero.Fs
	Dir      string
	Guard    Guard
	Recorder Recorder
	Logger   *logger.Logger
}

// Store is the quarantine. At most one transaction is pending at a time.
type Store struct {
	fs       afero.Fs
	dir      string
	guard    Guard
	recorder Recorder
	log      *logger.Logger

	mu      sync.Mutex
	pending *Transaction
}

// NewStore opens the quarantine at opts.Dir, resuming the newest journaled
// transaction and committing any older ones.
func NewStore(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("quarantine directory is required")
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	s := &Store{
		fs:       fs,
		dir:      filepath.Clean(opts.Dir),
		guard:    opts.Guard,
		recorder: opts.Recorder,
		log:      opts.Logger,
	}

	if err := fs.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create quarantine: %w", err)
	}

	txs, orphans, err := loadTransactions(fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read quarantine: %w", err)
	}
	for _, dir := range orphans {
		s.log.Warn("Removing quarantine directory without journal: %s", dir)
		fs.RemoveAll(dir)
	}
	for i, tx := range txs {
		if i == 0 && len(tx.Entries) > 0 {
			s.pending = tx
			continue
		}
		if err := s.commit(tx); err != nil {
			s.log.Warn("Failed to commit stale transaction %s: %v", tx.ID, err)
		}
	}

	return s, nil
}

// Dir returns the quarantine root
func (s *Store) Dir() string {
	return s.dir
}

// Pending returns a copy of the pending transaction
func (s *Store) Pending() (Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Transaction{}, false
	}
	return s.pending.clone(), true
}

// Delete moves every record's file into a new transaction. A pending
// transaction is committed first. Failures are counted per file and never
// abort the batch.
func (s *Store) Delete(records []scanner.FileRecord) DeleteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := DeleteResult{
		MovedFiles: []scanner.FileRecord{},
		Errors:     []*DeletionError{},
	}

	if s.pending != nil {
		if err := s.commit(s.pending); err != nil {
			s.log.Warn("Failed to commit previous delete %s: %v", s.pending.ID, err)
		}
		s.pending = nil
	}

	fail := func(path string, err error) {
		result.Failed++
		result.Errors = append(result.Errors, CategorizeError(path, err))
	}

	tx := newTransaction(s.dir)
	if err := s.fs.MkdirAll(tx.dir, 0700); err != nil {
		for _, r := range records {
			fail(r.Path, err)
		}
		return result
	}

	// the journal lists every planned entry before anything moves, so a
	// crash mid-batch leaves recoverable files
	seen := make(map[string]bool, len(records))
	planned := make([]Entry, 0, len(records))
	for i, r := range records {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		planned = append(planned, Entry{Record: r, QuarantinePath: filepath.Join(tx.dir, quarantineName(i, r))})
	}
	tx.Entries = planned
	if err := writeJournal(s.fs, tx); err != nil {
		for _, e := range planned {
			fail(e.Record.Path, err)
		}
		s.fs.RemoveAll(tx.dir)
		return result
	}

	moved := make([]Entry, 0, len(planned))
	for _, e := range planned {
		size, err := s.quarantine(e)
		if err != nil {
			fail(e.Record.Path, err)
			continue
		}
		e.Record.Size = size
		moved = append(moved, e)
		result.Moved++
		result.FreedBytes += size
		result.MovedFiles = append(result.MovedFiles, e.Record)
	}

	if len(moved) == 0 {
		s.fs.RemoveAll(tx.dir)
		return result
	}

	tx.Entries = moved
	if err := writeJournal(s.fs, tx); err != nil {
		s.log.Warn("Failed to update journal for %s: %v", tx.ID, err)
	}
	s.pending = tx
	result.CanUndo = true

	s.log.Info("Quarantined %d files (%d failed) in %s", result.Moved, result.Failed, tx.ID)
	return result
}

func (s *Store) quarantine(e Entry) (int64, error) {
	path := e.Record.Path
	if s.guard != nil {
		if err := s.guard.ValidatePathForDeletion(path); err != nil {
			return 0, err
		}
	}

	info, err := lstat(s.fs, path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, &os.PathError{Op: "quarantine", Path: path, Err: errNotRegular}
	}

	if err := utils.MoveFile(s.fs, path, e.QuarantinePath); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Undo moves every pending file back to its original path. Files whose
// original path is now occupied, or that fail to move, are skipped and
// discarded with the rest of the transaction; there is no retry.
func (s *Store) Undo() (UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return UndoResult{}, ErrNoPendingTransaction
	}
	tx := s.pending
	s.pending = nil

	result := UndoResult{
		Restored: []scanner.FileRecord{},
		Skipped:  []*DeletionError{},
	}
	var leftovers []scanner.FileRecord

	for _, e := range tx.Entries {
		if err := s.restore(e); err != nil {
			result.Skipped = append(result.Skipped, CategorizeError(e.Record.Path, err))
			leftovers = append(leftovers, e.Record)
			continue
		}
		result.Restored = append(result.Restored, e.Record)
	}

	if err := s.fs.RemoveAll(tx.dir); err != nil {
		s.log.Warn("Failed to clear quarantine %s: %v", tx.ID, err)
	}
	s.record(ActionRestored, tx.ID, result.Restored)
	s.record(ActionDiscarded, tx.ID, leftovers)

	s.log.Info("Restored %d files (%d skipped) from %s", len(result.Restored), len(result.Skipped), tx.ID)
	return result, nil
}

// restore never replaces a file at the original path, including one
// created after the check below.
func (s *Store) restore(e Entry) error {
	target := e.Record.Path
	if _, err := lstat(s.fs, target); err == nil {
		return &os.PathError{Op: "restore", Path: target, Err: os.ErrExist}
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return utils.MoveFileNoClobber(s.fs, e.QuarantinePath, target)
}

// Confirm permanently removes the pending transaction's files
func (s *Store) Confirm() (ConfirmResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ConfirmResult{}, ErrNoPendingTransaction
	}
	tx := s.pending
	s.pending = nil

	result := ConfirmResult{Removed: len(tx.Entries), FreedBytes: tx.Size()}
	if err := s.commit(tx); err != nil {
		return result, err
	}
	s.log.Info("Permanently removed %d files from %s", result.Removed, tx.ID)
	return result, nil
}

func (s *Store) commit(tx *Transaction) error {
	if err := s.fs.RemoveAll(tx.dir); err != nil {
		return fmt.Errorf("failed to remove quarantined files: %w", err)
	}
	s.record(ActionDeleted, tx.ID, tx.Records())
	return nil
}

func (s *Store) record(action Action, txID string, records []scanner.FileRecord) {
	if s.recorder == nil || len(records) == 0 {
		return
	}
	if err := s.recorder.Record(context.Background(), action, txID, records); err != nil {
		s.log.Warn("Failed to record %s files for %s: %v", action, txID, err)
	}
}

var errNotRegular = errors.New("not a regular file")

// lstat avoids following symlinks when the filesystem supports it
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}
