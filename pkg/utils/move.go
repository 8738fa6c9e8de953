package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// MoveFile renames src to dst, falling back to copy and remove when the
// two paths live on different devices.
func MoveFile(fs afero.Fs, src, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := CopyFile(fs, src, dst); err != nil {
		return fmt.Errorf("failed to copy across devices: %w", err)
	}
	return fs.Remove(src)
}

// MoveFileNoClobber moves src to dst and fails with an error matching
// os.ErrExist if dst is already there, even when it appears between a
// caller's check and the move. On the OS filesystem dst is hard linked and
// src unlinked; where links are unavailable, and on other afero
// filesystems, the content is copied with O_EXCL.
func MoveFileNoClobber(fs afero.Fs, src, dst string) error {
	if _, ok := fs.(*afero.OsFs); ok {
		err := os.Link(src, dst)
		if err == nil {
			return os.Remove(src)
		}
		if errors.Is(err, os.ErrExist) {
			return err
		}
	}

	if err := CopyFile(fs, src, dst); err != nil {
		return err
	}
	return fs.Remove(src)
}

// CopyFile copies a regular file, preserving its mode and modification time.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		fs.Remove(dst)
		return err
	}

	return fs.Chtimes(dst, info.ModTime(), info.ModTime())
}
