package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// DefaultProgressEvery is the file cadence at which progress is reported
const DefaultProgressEvery = 100

// ErrRootNotDirectory is returned when the scan root is not a directory
var ErrRootNotDirectory = errors.New("scan root is not a directory")

// ExcludeRules selects directories the walk never enters. Hidden
// directories (leading dot) are always skipped.
type ExcludeRules struct {
	// Names match a directory's base name, case-insensitively
	Names []string
	// Paths are slash-separated globs matched against the path relative to the root
	Paths []string
}

// DefaultExcludeRules skips caches, thumbnails, lost+found and app-private data
func DefaultExcludeRules() ExcludeRules {
	return ExcludeRules{
		Names: []string{"cache", "thumbnails", "lost+found"},
		Paths: []string{"Android/data", "Android/obb", "Library/Caches", "Library/Containers"},
	}
}

// Excludes reports whether the directory at rel (relative to the root) is
// excluded. The root itself is never excluded.
func (r ExcludeRules) Excludes(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}

	name := path.Base(rel)
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, n := range r.Names {
		if strings.EqualFold(n, name) {
			return true
		}
	}

	lower := strings.ToLower(rel)
	for _, pattern := range r.Paths {
		pattern = strings.ToLower(filepath.ToSlash(pattern))
		if pattern == lower {
			return true
		}
		if ok, err := path.Match(pattern, lower); err == nil && ok {
			return true
		}
	}
	return false
}

// ExcludesFile reports whether the file at rel (relative to the root) lies
// inside an excluded directory.
func (r ExcludeRules) ExcludesFile(rel string) bool {
	dir := path.Dir(filepath.ToSlash(rel))
	for dir != "." && dir != "/" {
		if r.Excludes(dir) {
			return true
		}
		dir = path.Dir(dir)
	}
	return false
}

// TreeBuilder walks a subtree once and produces the flat file list and
// the directory tree together.
type TreeBuilder struct {
	Fs      afero.Fs
	Exclude ExcludeRules

	// ProgressEvery controls how often OnProgress fires; <= 0 uses DefaultProgressEvery
	ProgressEvery int
	OnProgress    func(filesFound int)

	// OnSkip is told about directories that could not be read
	OnSkip func(path string, err error)
}

type walkState struct {
	ctx   context.Context
	root  string
	files []FileRecord
	every int
}

// Build walks root depth-first. Unreadable subdirectories are skipped; an
// unreadable root or a cancelled context ends the walk with an error.
func (b *TreeBuilder) Build(ctx context.Context, root string) ([]FileRecord, *DirectoryNode, error) {
	fs := b.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	root = filepath.Clean(root)

	info, err := fs.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s: %w", root, ErrRootNotDirectory)
	}
	st := &walkState{ctx: ctx, root: root, every: b.ProgressEvery}
	if st.every <= 0 {
		st.every = DefaultProgressEvery
	}

	node, err := b.walk(fs, st, root, info.Name(), 0)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("failed to read scan root: %w", err)
	}
	if b.OnProgress != nil {
		b.OnProgress(len(st.files))
	}
	return st.files, node, nil
}

func (b *TreeBuilder) walk(fs afero.Fs, st *walkState, dir, name string, depth int) (*DirectoryNode, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}

	node := &DirectoryNode{
		Path:     dir,
		Name:     name,
		Depth:    depth,
		Files:    []FileRecord{},
		Children: []*DirectoryNode{},
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if depth == 0 {
			return nil, err
		}
		if b.OnSkip != nil {
			b.OnSkip(dir, err)
		}
		return nil, nil
	}

	for _, entry := range entries {
		if err := st.ctx.Err(); err != nil {
			return nil, err
		}

		full := filepath.Join(dir, entry.Name())
		mode := entry.Mode()

		switch {
		case mode.IsDir():
			rel, _ := filepath.Rel(st.root, full)
			if b.Exclude.Excludes(rel) {
				continue
			}
			child, err := b.walk(fs, st, full, entry.Name(), depth+1)
			if err != nil {
				return nil, err
			}
			if child == nil {
				continue
			}
			node.Children = append(node.Children, child)
			node.TotalSize += child.TotalSize
			node.TotalFiles += child.TotalFiles

		case mode.IsRegular():
			record := NewFileRecord(full, entry)
			node.Files = append(node.Files, record)
			node.TotalSize += record.Size
			node.TotalFiles++

			st.files = append(st.files, record)
			if b.OnProgress != nil && len(st.files)%st.every == 0 {
				b.OnProgress(len(st.files))
			}
		}
	}

	return node, nil
}

// BuildTree is a convenience wrapper around TreeBuilder.
func BuildTree(ctx context.Context, fs afero.Fs, root string, rules ExcludeRules, progress func(int)) ([]FileRecord, *DirectoryNode, error) {
	b := &TreeBuilder{Fs: fs, Exclude: rules, OnProgress: progress}
	return b.Build(ctx, root)
}

// RebuildTree produces a new tree with the directory skeleton of prev and
// the given files attached by parent directory. Directories missing from
// prev are created beneath the root; files outside the root are left out.
// Aggregates are recomputed from scratch. prev is not modified.
func RebuildTree(prev *DirectoryNode, files []FileRecord) *DirectoryNode {
	if prev == nil {
		return nil
	}

	type skeleton struct {
		name     string
		depth    int
		children map[string]bool
	}
	dirs := make(map[string]*skeleton)
	prev.Walk(func(n *DirectoryNode) {
		s := &skeleton{name: n.Name, depth: n.Depth, children: make(map[string]bool)}
		for _, c := range n.Children {
			s.children[c.Path] = true
		}
		dirs[n.Path] = s
	})

	var ensure func(dir string) bool
	ensure = func(dir string) bool {
		if _, ok := dirs[dir]; ok {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir || !ensure(parent) {
			return false
		}
		p := dirs[parent]
		p.children[dir] = true
		dirs[dir] = &skeleton{name: filepath.Base(dir), depth: p.depth + 1, children: make(map[string]bool)}
		return true
	}

	byDir := make(map[string][]FileRecord)
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if !PathWithin(prev.Path, dir) || !ensure(dir) {
			continue
		}
		byDir[dir] = append(byDir[dir], f)
	}

	var build func(dir string) *DirectoryNode
	build = func(dir string) *DirectoryNode {
		s := dirs[dir]
		node := &DirectoryNode{
			Path:     dir,
			Name:     s.name,
			Depth:    s.depth,
			Files:    []FileRecord{},
			Children: []*DirectoryNode{},
		}
		if own := byDir[dir]; len(own) > 0 {
			node.Files = append(node.Files, own...)
			sort.Slice(node.Files, func(i, j int) bool { return node.Files[i].Path < node.Files[j].Path })
		}
		for _, f := range node.Files {
			node.TotalSize += f.Size
			node.TotalFiles++
		}

		children := make([]string, 0, len(s.children))
		for c := range s.children {
			children = append(children, c)
		}
		sort.Strings(children)
		for _, c := range children {
			child := build(c)
			node.Children = append(node.Children, child)
			node.TotalSize += child.TotalSize
			node.TotalFiles += child.TotalFiles
		}
		return node
	}

	return build(prev.Path)
}

// PathWithin reports whether p is root or lies beneath it
func PathWithin(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
