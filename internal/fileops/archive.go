package fileops

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// Compress writes a deflated zip holding path next to it and returns the
// archive path. "report.pdf" becomes "report.zip", or "report (1).zip" when
// that name is taken.
func Compress(fs afero.Fs, path string) (string, error) {
	in, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	dst, err := uniquePath(fs, base+".zip", ".zip")
	if err != nil {
		return "", err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	if err := writeZip(out, in, info); err != nil {
		out.Close()
		fs.Remove(dst)
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		fs.Remove(dst)
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return dst, nil
}

func writeZip(w io.Writer, r io.Reader, info os.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Method = zip.Deflate

	zw := zip.NewWriter(w)
	entry, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, r); err != nil {
		return err
	}
	return zw.Close()
}

// Extract unpacks a .zip, .tar.gz or .tgz archive into a sibling directory
// named after it and returns that directory. Nothing is left behind on failure.
func Extract(ctx context.Context, fs afero.Fs, path string) (string, error) {
	lower := strings.ToLower(path)
	var (
		stem    string
		extract func(context.Context, afero.Fs, string, string) error
	)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		stem, extract = path[:len(path)-len(".zip")], extractZip
	case strings.HasSuffix(lower, ".tar.gz"):
		stem, extract = path[:len(path)-len(".tar.gz")], extractTarGz
	case strings.HasSuffix(lower, ".tgz"):
		stem, extract = path[:len(path)-len(".tgz")], extractTarGz
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArchive, filepath.Base(path))
	}

	dest, err := uniquePath(fs, stem, "")
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("failed to create destination: %w", err)
	}

	if err := extract(ctx, fs, path, dest); err != nil {
		fs.RemoveAll(dest)
		return "", fmt.Errorf("failed to extract %s: %w", filepath.Base(path), err)
	}
	return dest, nil
}

func extractZip(ctx context.Context, fs afero.Fs, path, dest string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryTarget(dest, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return err
		}
		err = writeEntry(fs, target, rc, entry.Mode().Perm(), entry.Modified)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(ctx context.Context, fs afero.Fs, path, dest string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := entryTarget(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(fs, target, tr, os.FileMode(header.Mode).Perm(), header.ModTime); err != nil {
				return err
			}
		}
	}
}

// entryTarget resolves an archive entry name under dest, rejecting absolute
// names and any that climb out with "..".
func entryTarget(dest, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !isWithin(dest, target) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return target, nil
}

func writeEntry(fs afero.Fs, target string, r io.Reader, perm os.FileMode, modTime time.Time) error {
	if perm == 0 {
		perm = 0644
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !modTime.IsZero() {
		return fs.Chtimes(target, modTime, modTime)
	}
	return nil
}
