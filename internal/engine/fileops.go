package engine

import (
	"context"
	"path/filepath"

	"github.com/fenilsonani/storage-sweep/internal/fileops"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// MoveFile moves path into targetDir. Content is unchanged, so the file
// keeps its duplicate group at the new location.
func (e *Engine) MoveFile(path, targetDir string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dst, err := fileops.Move(e.fs, path, targetDir)
	if err != nil {
		return "", err
	}
	e.relocateLocked(path, dst)
	e.log.Info("Moved %s to %s", path, dst)
	return dst, nil
}

// RenameFile renames path within its directory
func (e *Engine) RenameFile(path, newName string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dst, err := fileops.Rename(e.fs, path, newName)
	if err != nil {
		return "", err
	}
	e.relocateLocked(path, dst)
	e.log.Info("Renamed %s to %s", path, dst)
	return dst, nil
}

// CompressFile zips path next to itself. The source is kept.
func (e *Engine) CompressFile(path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dst, err := fileops.Compress(e.fs, path)
	if err != nil {
		return "", err
	}

	rec, tracked := e.recordFor(dst)
	if tracked {
		e.noteAdded(rec)
	}
	cur := e.Results()
	if cur.Tree != nil {
		files := withoutPaths(cur.Files, map[string]struct{}{dst: {}})
		if tracked {
			files = append(files, rec)
		}
		e.commit(e.derive(files, cur.Duplicates, scanner.RebuildTree(cur.Tree, files), cur.largeThreshold, cur.Stats.ScannedAt))
	}
	e.log.Info("Compressed %s to %s", path, dst)
	return dst, nil
}

// ExtractArchive unpacks path into a sibling directory. The new files may
// duplicate existing ones, so duplicate groups are recomputed in full.
func (e *Engine) ExtractArchive(ctx context.Context, path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dest, err := fileops.Extract(ctx, e.fs, path)
	if err != nil {
		return "", err
	}

	cur := e.Results()
	if (cur.Tree == nil && e.changes == nil) || !scanner.PathWithin(e.opts.Root, dest) {
		return dest, nil
	}

	builder := &scanner.TreeBuilder{Fs: e.fs, Exclude: e.opts.Exclude}
	extracted, _, err := builder.Build(ctx, dest)
	if err != nil {
		e.log.Warn("Failed to index extracted files in %s: %v", dest, err)
		return dest, nil
	}

	files := append([]scanner.FileRecord{}, cur.Files...)
	for _, rec := range extracted {
		if e.tracked(rec.Path) {
			e.noteAdded(rec)
			files = append(files, rec)
		}
	}
	if cur.Tree == nil {
		// first scan still running; it picks these up at commit
		return dest, nil
	}

	dedup := &scanner.Deduplicator{Fs: e.fs, Workers: e.opts.Workers}
	dups, err := dedup.Find(ctx, files, nil)
	if err != nil {
		e.log.Warn("Duplicate recompute after extract interrupted: %v", err)
		dups = cur.Duplicates
	}
	e.commit(e.derive(files, dups, scanner.RebuildTree(cur.Tree, files), cur.largeThreshold, cur.Stats.ScannedAt))

	e.log.Info("Extracted %s to %s (%d files)", path, dest, len(extracted))
	return dest, nil
}

// relocateLocked moves a record from oldPath to newPath in every result set
func (e *Engine) relocateLocked(oldPath, newPath string) {
	rec, tracked := e.recordFor(newPath)
	e.noteRemoved(oldPath)
	if tracked {
		e.noteAdded(rec)
	}

	cur := e.Results()
	if cur.Tree == nil {
		return
	}

	group := scanner.NoGroup
	for _, f := range cur.Files {
		if f.Path == oldPath {
			group = f.DuplicateGroup
			break
		}
	}

	gone := map[string]struct{}{oldPath: {}, newPath: {}}
	files := withoutPaths(cur.Files, gone)
	dups := withoutPaths(cur.Duplicates, gone)
	if tracked {
		rec.DuplicateGroup = group
		files = append(files, rec)
		if group != scanner.NoGroup {
			dups = append(dups, rec)
		}
	}

	dups = scanner.Regroup(dups, nil)
	e.commit(e.derive(files, dups, scanner.RebuildTree(cur.Tree, files), cur.largeThreshold, cur.Stats.ScannedAt))
}

// recordFor stats path and builds its record when a scan would include it
func (e *Engine) recordFor(path string) (scanner.FileRecord, bool) {
	if !e.tracked(path) {
		return scanner.FileRecord{}, false
	}
	info, err := e.fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return scanner.FileRecord{}, false
	}
	return scanner.NewFileRecord(path, info), true
}

// tracked reports whether path is inside the root and outside excluded directories
func (e *Engine) tracked(path string) bool {
	if !scanner.PathWithin(e.opts.Root, path) {
		return false
	}
	rel, err := filepath.Rel(e.opts.Root, path)
	if err != nil {
		return false
	}
	return !e.opts.Exclude.ExcludesFile(rel)
}
