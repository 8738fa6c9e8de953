package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/internal/security"
	"github.com/fenilsonani/storage-sweep/internal/testutil"
)

type recordedCall struct {
	action Action
	txID   string
	paths  []string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) Record(ctx context.Context, action Action, txID string, records []scanner.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := recordedCall{action: action, txID: txID}
	for _, rec := range records {
		call.paths = append(call.paths, rec.Path)
	}
	r.calls = append(r.calls, call)
	return nil
}

func (r *fakeRecorder) count(action Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.action == action {
			n += len(c.paths)
		}
	}
	return n
}

func newStore(t *testing.T, f *testutil.Fixture, rec Recorder) *Store {
	t.Helper()
	s, err := NewStore(Options{Fs: f.Fs, Dir: f.DataPath("trash"), Recorder: rec})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func recordFor(t *testing.T, f *testutil.Fixture, path string) scanner.FileRecord {
	t.Helper()
	info, err := f.Fs.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return scanner.NewFileRecord(path, info)
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestDeleteOneAlreadyGone(t *testing.T) {
	f := testutil.NewMemFixture(t)
	kept := f.CreateFile("DCIM/a.jpg", []byte("aaaa"))
	gone := f.CreateFile("DCIM/b.jpg", []byte("bb"))
	records := []scanner.FileRecord{recordFor(t, f, kept), recordFor(t, f, gone)}
	f.Remove(gone)

	s := newStore(t, f, nil)
	result := s.Delete(records)

	if result.Moved != 1 || result.Failed != 1 {
		t.Fatalf("expected moved=1 failed=1, got moved=%d failed=%d", result.Moved, result.Failed)
	}
	if result.FreedBytes != 4 {
		t.Errorf("FreedBytes = %d, want 4", result.FreedBytes)
	}
	if !result.CanUndo {
		t.Error("expected CanUndo")
	}
	if len(result.Errors) != 1 || result.Errors[0].Reason != ErrorFileNotFound || result.Errors[0].Path != gone {
		t.Errorf("unexpected errors: %+v", result.Errors)
	}
	f.AssertFileNotExists(kept)

	tx, ok := s.Pending()
	if !ok || len(tx.Entries) != 1 {
		t.Fatalf("expected one pending entry, got %+v", tx)
	}
	f.AssertFileExists(tx.Entries[0].QuarantinePath)
	f.AssertContent(tx.Entries[0].QuarantinePath, []byte("aaaa"))
}

func TestDeleteNothingMoved(t *testing.T) {
	f := testutil.NewMemFixture(t)
	s := newStore(t, f, nil)

	result := s.Delete([]scanner.FileRecord{{Path: f.Path("missing"), Name: "missing"}})
	if result.Moved != 0 || result.Failed != 1 || result.CanUndo {
		t.Errorf("unexpected result %+v", result)
	}
	if _, ok := s.Pending(); ok {
		t.Error("no transaction should be pending")
	}
	if entries, _ := afero.ReadDir(f.Fs, s.Dir()); len(entries) != 0 {
		t.Errorf("expected empty quarantine, found %d entries", len(entries))
	}
}

func TestDeleteSameNameDifferentDirs(t *testing.T) {
	f := testutil.NewMemFixture(t)
	a := f.CreateFile("one/IMG_0001.jpg", []byte("first"))
	b := f.CreateFile("two/IMG_0001.jpg", []byte("second"))

	s := newStore(t, f, nil)
	result := s.Delete([]scanner.FileRecord{recordFor(t, f, a), recordFor(t, f, b)})
	if result.Moved != 2 {
		t.Fatalf("expected both moved, got %+v", result)
	}

	tx, _ := s.Pending()
	if tx.Entries[0].QuarantinePath == tx.Entries[1].QuarantinePath {
		t.Error("quarantine names collided")
	}
	f.AssertContent(tx.Entries[0].QuarantinePath, []byte("first"))
	f.AssertContent(tx.Entries[1].QuarantinePath, []byte("second"))
}

func TestDeleteRejectsGuardedAndNonRegular(t *testing.T) {
	f := testutil.NewMemFixture(t)
	dir := f.CreateDir("Movies")
	private := f.CreateFile("private/keep.bin", []byte("x"))

	s, err := NewStore(Options{
		Fs:    f.Fs,
		Dir:   f.DataPath("trash"),
		Guard: security.NewPathValidator(f.Path("private")),
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	result := s.Delete([]scanner.FileRecord{
		{Path: dir, Name: "Movies"},
		recordFor(t, f, private),
	})
	if result.Moved != 0 || result.Failed != 2 {
		t.Fatalf("expected both to fail, got %+v", result)
	}
	reasons := map[string]ErrorReason{}
	for _, e := range result.Errors {
		reasons[e.Path] = e.Reason
	}
	if reasons[dir] != ErrorIsDirectory {
		t.Errorf("directory reason = %v", reasons[dir])
	}
	if reasons[private] != ErrorInvalidPath {
		t.Errorf("guarded reason = %v", reasons[private])
	}
	f.AssertFileExists(private)
}

func TestDeleteCommitsPreviousTransaction(t *testing.T) {
	f := testutil.NewMemFixture(t)
	rec := &fakeRecorder{}
	first := f.CreateFile("a.txt", []byte("a"))
	second := f.CreateFile("b.txt", []byte("b"))

	s := newStore(t, f, rec)
	s.Delete([]scanner.FileRecord{recordFor(t, f, first)})
	firstTx, _ := s.Pending()

	s.Delete([]scanner.FileRecord{recordFor(t, f, second)})
	secondTx, ok := s.Pending()
	if !ok || secondTx.ID == firstTx.ID {
		t.Fatal("expected a new pending transaction")
	}

	f.AssertFileNotExists(firstTx.Dir())
	f.AssertFileNotExists(first)
	if rec.count(ActionDeleted) != 1 {
		t.Errorf("expected the first file to be recorded as deleted, got %+v", rec.calls)
	}

	// undo only brings back the second batch
	result, err := s.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(result.Restored) != 1 || result.Restored[0].Path != second {
		t.Errorf("unexpected restore %+v", result)
	}
	f.AssertFileNotExists(first)
}

// =============================================================================
// Undo / Confirm Tests
// =============================================================================

func TestUndoRestores(t *testing.T) {
	f := testutil.NewMemFixture(t)
	rec := &fakeRecorder{}
	a := f.CreateFile("Music/a.mp3", []byte("song"))
	b := f.CreateFile("Music/deep/b.mp3", []byte("other song"))

	s := newStore(t, f, rec)
	s.Delete([]scanner.FileRecord{recordFor(t, f, a), recordFor(t, f, b)})

	// the parent directory disappearing must not prevent a restore
	if err := f.Fs.RemoveAll(f.Path("Music/deep")); err != nil {
		t.Fatal(err)
	}

	result, err := s.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(result.Restored) != 2 || len(result.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	f.AssertContent(a, []byte("song"))
	f.AssertContent(b, []byte("other song"))

	if _, ok := s.Pending(); ok {
		t.Error("transaction should be cleared")
	}
	if rec.count(ActionRestored) != 2 {
		t.Errorf("expected 2 restored records, got %+v", rec.calls)
	}
	if _, err := s.Undo(); !errors.Is(err, ErrNoPendingTransaction) {
		t.Errorf("second Undo error = %v", err)
	}
}

func TestUndoSkipsOccupiedPath(t *testing.T) {
	f := testutil.NewMemFixture(t)
	rec := &fakeRecorder{}
	a := f.CreateFile("a.txt", []byte("original"))
	b := f.CreateFile("b.txt", []byte("bee"))

	s := newStore(t, f, rec)
	s.Delete([]scanner.FileRecord{recordFor(t, f, a), recordFor(t, f, b)})
	f.CreateFile("a.txt", []byte("newcomer"))

	result, err := s.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(result.Restored) != 1 || result.Restored[0].Path != b {
		t.Errorf("expected only b restored, got %+v", result.Restored)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != ErrorTargetOccupied {
		t.Errorf("expected a target-occupied skip, got %+v", result.Skipped)
	}
	f.AssertContent(a, []byte("newcomer"))
	if rec.count(ActionDiscarded) != 1 {
		t.Errorf("expected the skipped file to be discarded, got %+v", rec.calls)
	}
	if entries, _ := afero.ReadDir(f.Fs, s.Dir()); len(entries) != 0 {
		t.Error("quarantine should be empty after undo")
	}
}

// staleStatFs reports hidden as absent, so a file created there looks free
// to a stat check that runs before the move.
type staleStatFs struct {
	afero.Fs
	hidden string
}

func (s *staleStatFs) Stat(name string) (os.FileInfo, error) {
	if name == s.hidden {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return s.Fs.Stat(name)
}

func TestUndoNeverOverwritesLateArrival(t *testing.T) {
	f := testutil.NewMemFixture(t)
	a := f.CreateFile("a.txt", []byte("original"))
	fs := &staleStatFs{Fs: f.Fs}

	s, err := NewStore(Options{Fs: fs, Dir: f.DataPath("trash")})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if res := s.Delete([]scanner.FileRecord{recordFor(t, f, a)}); res.Moved != 1 {
		t.Fatalf("Delete moved %d, want 1", res.Moved)
	}

	// another app writes a.txt after the occupancy check would have passed
	f.CreateFile("a.txt", []byte("newcomer"))
	fs.hidden = a

	result, err := s.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(result.Restored) != 0 {
		t.Errorf("expected nothing restored, got %+v", result.Restored)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != ErrorTargetOccupied {
		t.Errorf("expected a target-occupied skip, got %+v", result.Skipped)
	}
	f.AssertContent(a, []byte("newcomer"))
}

func TestConfirm(t *testing.T) {
	f := testutil.NewMemFixture(t)
	rec := &fakeRecorder{}
	a := f.CreateFile("a.log", []byte("12345"))

	s := newStore(t, f, rec)
	s.Delete([]scanner.FileRecord{recordFor(t, f, a)})
	tx, _ := s.Pending()

	result, err := s.Confirm()
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if result.Removed != 1 || result.FreedBytes != 5 {
		t.Errorf("unexpected result %+v", result)
	}
	f.AssertFileNotExists(tx.Dir())
	f.AssertFileNotExists(a)
	if rec.count(ActionDeleted) != 1 {
		t.Errorf("expected one deleted record, got %+v", rec.calls)
	}
	if _, err := s.Confirm(); !errors.Is(err, ErrNoPendingTransaction) {
		t.Errorf("second Confirm error = %v", err)
	}
}

// =============================================================================
// Journal Tests
// =============================================================================

func TestReopenResumesPending(t *testing.T) {
	f := testutil.NewMemFixture(t)
	a := f.CreateFile("a.txt", []byte("a"))

	first := newStore(t, f, nil)
	first.Delete([]scanner.FileRecord{recordFor(t, f, a)})
	want, _ := first.Pending()

	stray := filepath.Join(first.Dir(), "not-a-transaction")
	f.Fs.MkdirAll(stray, 0755)

	second := newStore(t, f, nil)
	got, ok := second.Pending()
	if !ok || got.ID != want.ID || len(got.Entries) != 1 {
		t.Fatalf("expected transaction %s to resume, got %+v", want.ID, got)
	}
	f.AssertFileNotExists(stray)

	if _, err := second.Undo(); err != nil {
		t.Fatalf("Undo after reopen failed: %v", err)
	}
	f.AssertContent(a, []byte("a"))
}

func TestReadJournalDropsMissingEntries(t *testing.T) {
	f := testutil.NewMemFixture(t)
	a := f.CreateFile("a.txt", []byte("a"))
	b := f.CreateFile("b.txt", []byte("b"))

	s := newStore(t, f, nil)
	s.Delete([]scanner.FileRecord{recordFor(t, f, a), recordFor(t, f, b)})
	tx, _ := s.Pending()
	f.Remove(tx.Entries[1].QuarantinePath)

	loaded, err := readJournal(f.Fs, tx.Dir())
	if err != nil {
		t.Fatalf("readJournal failed: %v", err)
	}
	if len(loaded.Entries) != 1 || loaded.Entries[0].Record.Path != a {
		t.Errorf("expected only a to survive, got %+v", loaded.Entries)
	}
}
