package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Category is the coarse content type of a file
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryApk      Category = "apk"
	CategoryArchive  Category = "archive"
	CategoryDownload Category = "download"
	CategoryOther    Category = "other"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryImage,
	CategoryVideo,
	CategoryAudio,
	CategoryDocument,
	CategoryApk,
	CategoryArchive,
	CategoryDownload,
	CategoryOther,
}

// NoGroup marks a record that is not part of any duplicate group
const NoGroup = -1

// FileRecord is the metadata snapshot of one scanned file. Records are
// keyed by Path and treated as values; modify a copy, never a shared one.
type FileRecord struct {
	Path           string    `json:"path"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	ModTime        time.Time `json:"mod_time"`
	Category       Category  `json:"category"`
	DuplicateGroup int       `json:"duplicate_group"`
}

// NewFileRecord builds a record for path from its stat info and classifies it.
func NewFileRecord(path string, info os.FileInfo) FileRecord {
	return FileRecord{
		Path:           path,
		Name:           info.Name(),
		Size:           info.Size(),
		ModTime:        info.ModTime().UTC(),
		Category:       Classify(path, filepath.Ext(path)),
		DuplicateGroup: NoGroup,
	}
}

// IsDuplicate reports whether the record belongs to a duplicate group
func (r FileRecord) IsDuplicate() bool {
	return r.DuplicateGroup >= 0
}

// Ext returns the lower-cased extension including the dot
func (r FileRecord) Ext() string {
	return strings.ToLower(filepath.Ext(r.Path))
}

// DirectoryNode is one directory in the scanned tree. Nodes are built once
// and never mutated afterwards; RebuildTree produces a new tree instead.
type DirectoryNode struct {
	Path       string           `json:"path"`
	Name       string           `json:"name"`
	Depth      int              `json:"depth"`
	Files      []FileRecord     `json:"files"`
	Children   []*DirectoryNode `json:"children"`
	TotalSize  int64            `json:"total_size"`
	TotalFiles int              `json:"total_files"`
}

// Walk visits n and all of its descendants depth-first.
func (n *DirectoryNode) Walk(fn func(*DirectoryNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Find returns the node for path, or nil.
func (n *DirectoryNode) Find(path string) *DirectoryNode {
	var found *DirectoryNode
	n.Walk(func(node *DirectoryNode) {
		if found == nil && node.Path == path {
			found = node
		}
	})
	return found
}

// GroupByCategory buckets records by category, preserving input order
func GroupByCategory(files []FileRecord) map[Category][]FileRecord {
	grouped := make(map[Category][]FileRecord)
	for _, file := range files {
		grouped[file.Category] = append(grouped[file.Category], file)
	}
	return grouped
}

// TotalSize sums the sizes of files
func TotalSize(files []FileRecord) int64 {
	var total int64
	for _, file := range files {
		total += file.Size
	}
	return total
}

// PathSet indexes records by path
func PathSet(files []FileRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, file := range files {
		set[file.Path] = struct{}{}
	}
	return set
}
