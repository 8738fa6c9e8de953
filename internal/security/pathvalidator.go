package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrProtectedPath is returned for paths the engine must never remove
var ErrProtectedPath = errors.New("protected path")

// PathValidator decides whether a file may be moved into quarantine
type PathValidator struct {
	protectedPaths []string
	privateDirs    []string
}

// NewPathValidator creates a validator with the default system paths
// protected. privateDirs are the engine's own data directories; nothing
// inside them may be quarantined.
func NewPathValidator(privateDirs ...string) *PathValidator {
	pv := &PathValidator{
		protectedPaths: []string{
			// Unix system directories
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/sbin",
			"/sys",
			"/usr",
			// macOS system directories
			"/System",
			"/Applications",
			"/Library/System",
		},
	}
	for _, dir := range privateDirs {
		if dir != "" {
			pv.privateDirs = append(pv.privateDirs, filepath.Clean(dir))
		}
	}
	return pv
}

// ValidatePathForDeletion checks that path is absolute, clean, outside the
// protected system directories and outside the engine's private data.
func (pv *PathValidator) ValidatePathForDeletion(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}
	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		resolved = path
	}

	for _, candidate := range []string{path, filepath.Clean(resolved)} {
		if err := pv.checkProtectedPaths(candidate); err != nil {
			return err
		}
		for _, dir := range pv.privateDirs {
			if candidate == dir || strings.HasPrefix(candidate, dir+string(filepath.Separator)) {
				return fmt.Errorf("%w: %s is inside %s", ErrProtectedPath, candidate, dir)
			}
		}
	}
	return nil
}

// checkProtectedPaths rejects protected directories and their direct children
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return fmt.Errorf("%w: %s", ErrProtectedPath, cleanPath)
		}

		if protected != "/" && strings.HasPrefix(cleanPath, protected+"/") {
			rel, _ := filepath.Rel(protected, cleanPath)
			if !strings.Contains(rel, "/") {
				return fmt.Errorf("%w: critical system path %s", ErrProtectedPath, cleanPath)
			}
		}
	}

	return nil
}

// IsProtectedPath checks if a path is, or lies inside, a protected path
func (pv *PathValidator) IsProtectedPath(path string) bool {
	cleanPath := filepath.Clean(path)
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected || (protected != "/" && strings.HasPrefix(cleanPath, protected+"/")) {
			return true
		}
	}
	return false
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(path))
}

// ValidateGlobPattern validates an exclusion pattern
func ValidateGlobPattern(pattern string) error {
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}

	if _, err := filepath.Match(pattern, "test"); err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	return nil
}
