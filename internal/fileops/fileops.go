// Package fileops implements the single-file operations offered on scan
// results: move, rename, compress and extract.
package fileops

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/storage-sweep/pkg/utils"
	"github.com/spf13/afero"
)

var (
	// ErrTargetExists is returned when an operation would overwrite a file.
	ErrTargetExists = errors.New("target already exists")
	// ErrUnsupportedArchive is returned for archive formats Extract cannot read.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrInvalidName is returned for names that are empty or contain a separator.
	ErrInvalidName = errors.New("invalid file name")
	// ErrUnsafeEntry is returned when an archive entry would land outside the destination.
	ErrUnsafeEntry = errors.New("archive entry escapes destination")
)

// Move moves path into targetDir keeping its name and returns the new path.
func Move(fs afero.Fs, path, targetDir string) (string, error) {
	if err := requireFile(fs, path); err != nil {
		return "", err
	}

	dst := filepath.Join(targetDir, filepath.Base(path))
	if filepath.Clean(dst) == filepath.Clean(path) {
		return path, nil
	}
	if err := ensureAbsent(fs, dst); err != nil {
		return "", err
	}
	if err := fs.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := utils.MoveFile(fs, path, dst); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", path, err)
	}
	return dst, nil
}

// Rename gives path a new base name in the same directory.
func Rename(fs afero.Fs, path, newName string) (string, error) {
	if err := validateName(newName); err != nil {
		return "", err
	}
	if err := requireFile(fs, path); err != nil {
		return "", err
	}

	dst := filepath.Join(filepath.Dir(path), newName)
	if dst == filepath.Clean(path) {
		return path, nil
	}
	if err := ensureAbsent(fs, dst); err != nil {
		return "", err
	}
	if err := fs.Rename(path, dst); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return dst, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func requireFile(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func ensureAbsent(fs afero.Fs, path string) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrTargetExists, path)
	}
	return nil
}

// uniquePath returns p, or the first "name (n)ext" variant that does not exist.
func uniquePath(fs afero.Fs, p, ext string) (string, error) {
	exists, err := afero.Exists(fs, p)
	if err != nil || !exists {
		return p, err
	}
	stem := strings.TrimSuffix(p, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// isWithin reports whether target is dir or lies beneath it.
func isWithin(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
