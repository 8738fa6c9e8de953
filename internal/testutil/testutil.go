// Package testutil provides fixtures for storage-sweep tests.
// Disk fixtures live under t.TempDir(); in-memory ones use afero.
package testutil

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// Fixture is a scratch storage tree with a Downloads folder and a private
// data directory for snapshots and quarantine.
type Fixture struct {
	T       *testing.T
	Fs      afero.Fs
	RootDir string // scanned root (auto-cleaned)

	DownloadsDir string
	DataDir      string
}

// NewFixture creates a disk-backed fixture
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return NewFixtureAt(t, filepath.Join(t.TempDir(), "storage"))
}

// NewFixtureAt creates a disk-backed fixture scanning root. The data
// directory is kept outside root.
func NewFixtureAt(t *testing.T, root string) *Fixture {
	t.Helper()

	f := &Fixture{
		T:            t,
		Fs:           afero.NewOsFs(),
		RootDir:      root,
		DownloadsDir: filepath.Join(root, "Downloads"),
		DataDir:      filepath.Join(t.TempDir(), "data"),
	}

	for _, dir := range []string{f.RootDir, f.DownloadsDir, f.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// NewMemFixture creates a fixture on an in-memory filesystem rooted at /storage
func NewMemFixture(t *testing.T) *Fixture {
	t.Helper()

	f := &Fixture{
		T:            t,
		Fs:           afero.NewMemMapFs(),
		RootDir:      "/storage",
		DownloadsDir: "/storage/Downloads",
		DataDir:      "/data",
	}
	for _, dir := range []string{f.RootDir, f.DownloadsDir, f.DataDir} {
		if err := f.Fs.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
	return f
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *Fixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := f.Fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := afero.WriteFile(f.Fs, fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileWithAge creates a file and sets its modification time to the past
func (f *Fixture) CreateFileWithAge(relPath string, content []byte, age time.Duration) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, content)
	oldTime := time.Now().Add(-age)

	if err := f.Fs.Chtimes(fullPath, oldTime, oldTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateRandomFile creates a file with random content
func (f *Fixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateSizedFile creates a file of size bytes filled with fill
func (f *Fixture) CreateSizedFile(relPath string, size int, fill byte) string {
	f.T.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = fill
	}
	return f.CreateFile(relPath, content)
}

// CreateDir creates a directory and returns its path
func (f *Fixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := f.Fs.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// Remove deletes a file behind the engine's back
func (f *Fixture) Remove(fullPath string) {
	f.T.Helper()
	if err := f.Fs.Remove(fullPath); err != nil {
		f.T.Fatalf("failed to remove %s: %v", fullPath, err)
	}
}

// =============================================================================
// Path Helpers
// =============================================================================

// Path returns the full path for a relative path within the scanned root
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// DataPath returns a path inside the data directory
func (f *Fixture) DataPath(relPath string) string {
	return filepath.Join(f.DataDir, relPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists checks if a file exists
func (f *Fixture) FileExists(path string) bool {
	_, err := f.Fs.Stat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *Fixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *Fixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// AssertContent fails the test if the file content differs
func (f *Fixture) AssertContent(path string, want []byte) {
	f.T.Helper()
	got, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		f.T.Errorf("failed to read %s: %v", path, err)
		return
	}
	if string(got) != string(want) {
		f.T.Errorf("content of %s = %q, want %q", path, got, want)
	}
}

// IsRoot returns true if running as root
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SkipIfRoot skips the test if running as root
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if IsRoot() {
		t.Skip("skipping test when running as root")
	}
}
