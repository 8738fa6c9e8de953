package engine

import (
	"time"

	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// Stats aggregates the current result sets. ReclaimableDuplicateSize
// counts every duplicate copy except one per group.
type Stats struct {
	TotalFiles               int                                `json:"total_files" yaml:"total_files"`
	TotalSize                int64                              `json:"total_size" yaml:"total_size"`
	JunkFiles                int                                `json:"junk_files" yaml:"junk_files"`
	JunkSize                 int64                              `json:"junk_size" yaml:"junk_size"`
	DuplicateFiles           int                                `json:"duplicate_files" yaml:"duplicate_files"`
	DuplicateSize            int64                              `json:"duplicate_size" yaml:"duplicate_size"`
	ReclaimableDuplicateSize int64                              `json:"reclaimable_duplicate_size" yaml:"reclaimable_duplicate_size"`
	LargeFiles               int                                `json:"large_files" yaml:"large_files"`
	LargeSize                int64                              `json:"large_size" yaml:"large_size"`
	ByCategory               map[scanner.Category]CategoryStats `json:"by_category" yaml:"by_category"`
	ScannedAt                time.Time                          `json:"scanned_at" yaml:"scanned_at"`
}

// CategoryStats is the per-category share of Stats
type CategoryStats struct {
	Files int   `json:"files" yaml:"files"`
	Size  int64 `json:"size" yaml:"size"`
}

// Results is one immutable generation of scan output. The engine replaces
// it wholesale; callers must not modify the slices.
type Results struct {
	Files      []scanner.FileRecord
	Categories map[scanner.Category][]scanner.FileRecord
	Duplicates []scanner.FileRecord
	Large      []scanner.FileRecord
	Junk       []scanner.FileRecord
	Tree       *scanner.DirectoryNode
	Stats      Stats

	largeThreshold int64
}

func emptyResults() *Results {
	return &Results{
		Files:      []scanner.FileRecord{},
		Categories: map[scanner.Category][]scanner.FileRecord{},
		Duplicates: []scanner.FileRecord{},
		Large:      []scanner.FileRecord{},
		Junk:       []scanner.FileRecord{},
		Stats:      Stats{ByCategory: map[scanner.Category]CategoryStats{}},
	}
}

// derive builds a generation from a file list, its duplicate subset and tree.
// Group tags on files are rewritten from duplicates.
func (e *Engine) derive(files, duplicates []scanner.FileRecord, tree *scanner.DirectoryNode, threshold int64, scannedAt time.Time) *Results {
	return e.finish(e.analyze(files, duplicates, tree, threshold), scannedAt)
}

// analyze fills everything except junk and stats
func (e *Engine) analyze(files, duplicates []scanner.FileRecord, tree *scanner.DirectoryNode, threshold int64) *Results {
	files = scanner.ApplyGroups(files, duplicates)
	return &Results{
		Files:          files,
		Categories:     scanner.GroupByCategory(files),
		Duplicates:     duplicates,
		Large:          scanner.FindLargeFiles(files, threshold, e.opts.MaxLargeResults),
		Tree:           tree,
		largeThreshold: threshold,
	}
}

// finish runs junk detection over an analyzed generation and totals it
func (e *Engine) finish(r *Results, scannedAt time.Time) *Results {
	r.Junk = scanner.FindJunk(r.Files, e.opts.Root, e.opts.StaleDownloadAge, e.opts.DownloadsDir)
	r.Stats = computeStats(r, scannedAt)
	return r
}

func computeStats(r *Results, scannedAt time.Time) Stats {
	s := Stats{
		TotalFiles:     len(r.Files),
		TotalSize:      scanner.TotalSize(r.Files),
		JunkFiles:      len(r.Junk),
		JunkSize:       scanner.TotalSize(r.Junk),
		DuplicateFiles: len(r.Duplicates),
		DuplicateSize:  scanner.TotalSize(r.Duplicates),
		LargeFiles:     len(r.Large),
		LargeSize:      scanner.TotalSize(r.Large),
		ByCategory:     make(map[scanner.Category]CategoryStats, len(r.Categories)),
		ScannedAt:      scannedAt,
	}

	seen := make(map[int]bool)
	for _, f := range r.Duplicates {
		if seen[f.DuplicateGroup] {
			s.ReclaimableDuplicateSize += f.Size
			continue
		}
		seen[f.DuplicateGroup] = true
	}

	for cat, files := range r.Categories {
		s.ByCategory[cat] = CategoryStats{Files: len(files), Size: scanner.TotalSize(files)}
	}
	return s
}

func withoutPaths(files []scanner.FileRecord, removed map[string]struct{}) []scanner.FileRecord {
	out := make([]scanner.FileRecord, 0, len(files))
	for _, f := range files {
		if _, gone := removed[f.Path]; !gone {
			out = append(out, f)
		}
	}
	return out
}
