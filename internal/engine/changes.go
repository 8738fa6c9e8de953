package engine

import (
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// scanChanges records what deletes, undos and single-file operations did
// while a scan was walking and hashing. The scan's view of the tree is
// older than these changes, so they are replayed over it at commit.
type scanChanges struct {
	removed map[string]struct{}
	added   map[string]scanner.FileRecord
}

func newScanChanges() *scanChanges {
	return &scanChanges{
		removed: make(map[string]struct{}),
		added:   make(map[string]scanner.FileRecord),
	}
}

// noteRemoved marks paths gone from disk while a scan runs. Caller holds e.mu.
func (e *Engine) noteRemoved(paths ...string) {
	if e.changes == nil {
		return
	}
	for _, p := range paths {
		e.changes.removed[p] = struct{}{}
		delete(e.changes.added, p)
	}
}

// noteAdded marks records that appeared while a scan runs. Caller holds e.mu.
func (e *Engine) noteAdded(recs ...scanner.FileRecord) {
	if e.changes == nil {
		return
	}
	for _, r := range recs {
		delete(e.changes.removed, r.Path)
		r.DuplicateGroup = scanner.NoGroup
		e.changes.added[r.Path] = r
	}
}

func (e *Engine) beginChanges() {
	e.mu.Lock()
	e.changes = newScanChanges()
	e.mu.Unlock()
}

func (e *Engine) endChanges() {
	e.mu.Lock()
	e.changes = nil
	e.mu.Unlock()
}

// reconcile replays c over a scan's results. Removed paths and paths still
// in the pending quarantine are dropped; added records the walk missed are
// appended without a duplicate group. Caller holds e.mu.
func (e *Engine) reconcile(next *Results, c *scanChanges) *Results {
	removed := make(map[string]struct{})
	if c != nil {
		for p := range c.removed {
			removed[p] = struct{}{}
		}
	}
	if tx, ok := e.store.Pending(); ok {
		for _, r := range tx.Records() {
			removed[r.Path] = struct{}{}
		}
	}
	if len(removed) == 0 && (c == nil || len(c.added) == 0) {
		return next
	}

	files := withoutPaths(next.Files, removed)
	if c != nil {
		present := scanner.PathSet(files)
		for p, r := range c.added {
			if _, ok := present[p]; !ok {
				files = append(files, r)
			}
		}
	}
	dups := scanner.Regroup(next.Duplicates, removed)
	tree := scanner.RebuildTree(next.Tree, files)
	return e.derive(files, dups, tree, next.largeThreshold, next.Stats.ScannedAt)
}

func pathsOf(recs []scanner.FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}
