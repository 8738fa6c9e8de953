// Package snapshot persists the result of the last completed scan.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// Version is bumped whenever the on-disk layout changes; other versions
// are treated as absent.
const Version = 1

// Snapshot is the persisted unit: the flat file list plus the tree
type Snapshot struct {
	Version int                    `json:"version"`
	SavedAt time.Time              `json:"saved_at"`
	Files   []scanner.FileRecord   `json:"files"`
	Tree    *scanner.DirectoryNode `json:"tree"`
}

// Cache reads and writes one snapshot file. Writes go to a temporary file
// first and are renamed into place.
type Cache struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New creates a cache backed by path
func New(fs afero.Fs, path string) *Cache {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Cache{fs: fs, path: path}
}

// Path returns the snapshot file location
func (c *Cache) Path() string {
	return c.path
}

// Save replaces the snapshot with files and tree
func (c *Cache) Save(files []scanner.FileRecord, tree *scanner.DirectoryNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Version: Version,
		SavedAt: time.Now().UTC(),
		Files:   files,
		Tree:    tree,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := c.fs.Rename(tmp, c.path); err != nil {
		c.fs.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. A missing, unreadable, malformed or
// outdated snapshot reports false; anything but a missing file is also
// removed so the next scan starts clean.
func (c *Cache) Load() (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.fs.Remove(c.path)
		}
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != Version || snap.Tree == nil {
		c.fs.Remove(c.path)
		return nil, false
	}
	if snap.Files == nil {
		snap.Files = []scanner.FileRecord{}
	}
	return &snap, true
}

// Clear removes the stored snapshot
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fs.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
