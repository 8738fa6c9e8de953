package scanner

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/storage-sweep/pkg/utils"
)

// DuplicateProgress is called once per candidate entering the partial-hash stage
type DuplicateProgress func(done, total int)

// Deduplicator groups files with identical content. Candidates are narrowed
// by size, then by a head+tail digest, and only then hashed in full.
type Deduplicator struct {
	Fs      afero.Fs
	Workers int
}

// FindDuplicates is a convenience wrapper around Deduplicator.
func FindDuplicates(ctx context.Context, fs afero.Fs, files []FileRecord, progress DuplicateProgress) ([]FileRecord, error) {
	d := &Deduplicator{Fs: fs}
	return d.Find(ctx, files, progress)
}

// Find returns every confirmed duplicate with DuplicateGroup set, ordered by
// group id and then by size descending. Unreadable files drop out of their
// group. The only error returned is the context's.
func (d *Deduplicator) Find(ctx context.Context, files []FileRecord, progress DuplicateProgress) ([]FileRecord, error) {
	fs := d.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	// Stage 1: size collisions, largest sizes first
	bySize := make(map[int64][]FileRecord)
	for _, f := range files {
		if f.Size <= 0 {
			continue
		}
		bySize[f.Size] = append(bySize[f.Size], f)
	}
	sizes := make([]int64, 0, len(bySize))
	var candidates []FileRecord
	for size, group := range bySize {
		if len(group) > 1 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })
	for _, size := range sizes {
		group := bySize[size]
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
		candidates = append(candidates, group...)
	}
	if len(candidates) == 0 {
		return []FileRecord{}, ctx.Err()
	}

	// Stage 2: partial digest per candidate
	var (
		progressMu sync.Mutex
		done       int
	)
	report := func() {
		if progress == nil {
			return
		}
		progressMu.Lock()
		done++
		progress(done, len(candidates))
		progressMu.Unlock()
	}
	partial, err := d.hashAll(ctx, candidates, func(f FileRecord) (string, error) {
		defer report()
		return utils.PartialHash(fs, f.Path)
	})
	if err != nil {
		return nil, err
	}

	var survivors []FileRecord
	for _, group := range groupByDigest(candidates, partial) {
		survivors = append(survivors, group...)
	}
	if len(survivors) == 0 {
		return []FileRecord{}, ctx.Err()
	}

	// Stage 3: full-content digest
	full, err := d.hashAll(ctx, survivors, func(f FileRecord) (string, error) {
		return utils.HashFile(fs, f.Path)
	})
	if err != nil {
		return nil, err
	}

	result := []FileRecord{}
	nextGroup := 0
	for _, group := range groupByDigest(survivors, full) {
		for _, f := range group {
			f.DuplicateGroup = nextGroup
			result = append(result, f)
		}
		nextGroup++
	}

	sortDuplicates(result)
	return result, nil
}

// hashAll digests each record concurrently. Workers only write their own
// slot of the returned slice; a failed read leaves the slot empty.
func (d *Deduplicator) hashAll(ctx context.Context, files []FileRecord, digest func(FileRecord) (string, error)) ([]string, error) {
	sums := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := digest(files[i])
			if err == nil {
				sums[i] = sum
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}

func (d *Deduplicator) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	n := runtime.NumCPU()
	if n < 2 {
		n = 2
	}
	if n > 16 {
		n = 16
	}
	return n
}

// groupByDigest groups records that share both size and digest, keeping
// groups of two or more in order of first appearance. Empty digests mark
// unreadable files and are dropped.
func groupByDigest(files []FileRecord, sums []string) [][]FileRecord {
	type key struct {
		size int64
		sum  string
	}
	index := make(map[key]int)
	var groups [][]FileRecord
	for i, f := range files {
		if sums[i] == "" {
			continue
		}
		k := key{f.Size, sums[i]}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], f)
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g) > 1 {
			kept = append(kept, g)
		}
	}
	return kept
}

func sortDuplicates(files []FileRecord) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.DuplicateGroup != b.DuplicateGroup {
			return a.DuplicateGroup < b.DuplicateGroup
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Path < b.Path
	})
}

// Regroup drops files from existing duplicate groups and removes groups
// left with fewer than two members, without reading any content. Group ids
// are kept. It is used when files leave the active set.
func Regroup(duplicates []FileRecord, removed map[string]struct{}) []FileRecord {
	counts := make(map[int]int)
	for _, f := range duplicates {
		if _, gone := removed[f.Path]; !gone {
			counts[f.DuplicateGroup]++
		}
	}

	result := []FileRecord{}
	for _, f := range duplicates {
		if _, gone := removed[f.Path]; gone {
			continue
		}
		if counts[f.DuplicateGroup] > 1 {
			result = append(result, f)
		}
	}
	sortDuplicates(result)
	return result
}

// ApplyGroups copies duplicate group tags onto files. Files absent from
// duplicates are reset to NoGroup. files is not modified.
func ApplyGroups(files, duplicates []FileRecord) []FileRecord {
	groups := make(map[string]int, len(duplicates))
	for _, f := range duplicates {
		groups[f.Path] = f.DuplicateGroup
	}
	out := make([]FileRecord, len(files))
	for i, f := range files {
		if g, ok := groups[f.Path]; ok {
			f.DuplicateGroup = g
		} else {
			f.DuplicateGroup = NoGroup
		}
		out[i] = f
	}
	return out
}

// DuplicatesFromTags rebuilds the duplicate list from tags carried on the
// records themselves, as they are after loading a snapshot.
func DuplicatesFromTags(files []FileRecord) []FileRecord {
	result := []FileRecord{}
	for _, f := range files {
		if f.IsDuplicate() {
			result = append(result, f)
		}
	}
	return Regroup(result, nil)
}
