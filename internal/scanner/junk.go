package scanner

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultStaleDownloadAge is how old an unrecognized download must be to count as junk
const DefaultStaleDownloadAge = 90 * 24 * time.Hour

// DefaultLargeFileSize is the default minimum size for FindLargeFiles
const DefaultLargeFileSize int64 = 50 << 20

// DefaultMaxLargeResults caps FindLargeFiles by default
const DefaultMaxLargeResults = 200

// JunkReason explains why a file was flagged
type JunkReason string

const (
	ReasonJunkExtension JunkReason = "junk extension"
	ReasonJunkDirectory JunkReason = "cache or temp directory"
	ReasonStaleDownload JunkReason = "stale download"
	ReasonNotJunk       JunkReason = ""
)

// FindJunk returns the files under root that look disposable, largest first.
// Directory rules only look at the part of each path below root.
func FindJunk(files []FileRecord, root string, cutoffAge time.Duration, downloadsPath string) []FileRecord {
	return findJunkAt(files, root, cutoffAge, downloadsPath, time.Now())
}

func findJunkAt(files []FileRecord, root string, cutoffAge time.Duration, downloadsPath string, now time.Time) []FileRecord {
	cutoff := now.Add(-cutoffAge)
	junk := []FileRecord{}
	for _, f := range files {
		if JunkReasonFor(f, root, cutoff, downloadsPath) != ReasonNotJunk {
			junk = append(junk, f)
		}
	}
	sortBySizeDesc(junk)
	return junk
}

// JunkReasonFor returns the first rule f matches, or ReasonNotJunk. Files
// last modified before cutoff under downloadsPath are stale unless their
// extension is a known useful type.
func JunkReasonFor(f FileRecord, root string, cutoff time.Time, downloadsPath string) JunkReason {
	ext := filepath.Ext(f.Path)
	if IsJunkExtension(ext) {
		return ReasonJunkExtension
	}
	if HasJunkSegmentWithin(root, f.Path) {
		return ReasonJunkDirectory
	}
	if isStaleDownload(f, ext, cutoff, downloadsPath) {
		return ReasonStaleDownload
	}
	return ReasonNotJunk
}

func isStaleDownload(f FileRecord, ext string, cutoff time.Time, downloadsPath string) bool {
	if downloadsPath == "" || !isUnder(downloadsPath, f.Path) {
		return false
	}
	if !f.ModTime.Before(cutoff) {
		return false
	}
	return !IsKnownType(ext)
}

func isUnder(dir, p string) bool {
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(dir, filepath.Clean(p))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FindLargeFiles returns files of at least minSize bytes, largest first,
// truncated to maxResults. maxResults <= 0 means no cap.
func FindLargeFiles(files []FileRecord, minSize int64, maxResults int) []FileRecord {
	large := []FileRecord{}
	for _, f := range files {
		if f.Size >= minSize {
			large = append(large, f)
		}
	}
	sortBySizeDesc(large)
	if maxResults > 0 && len(large) > maxResults {
		large = large[:maxResults]
	}
	return large
}

func sortBySizeDesc(files []FileRecord) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size > files[j].Size
		}
		return files[i].Path < files[j].Path
	})
}
