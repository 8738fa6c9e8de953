package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPartialHashIgnoresMiddle(t *testing.T) {
	fs := afero.NewMemMapFs()

	a := bytes.Repeat([]byte{'a'}, PartialChunkSize*3)
	b := append([]byte(nil), a...)
	b[PartialChunkSize+10] = 'b'
	writeFile(t, fs, "/a.bin", a)
	writeFile(t, fs, "/b.bin", b)

	pa, err := PartialHash(fs, "/a.bin")
	if err != nil {
		t.Fatal(err)
	}
	pb, err := PartialHash(fs, "/b.bin")
	if err != nil {
		t.Fatal(err)
	}
	if pa != pb {
		t.Error("partial hashes should match when only the middle differs")
	}

	fa, _ := HashFile(fs, "/a.bin")
	fb, _ := HashFile(fs, "/b.bin")
	if fa == fb {
		t.Error("full hashes must differ")
	}
}

func TestPartialHashSmallFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/x", []byte("hello"))
	writeFile(t, fs, "/y", []byte("hellp"))

	px, _ := PartialHash(fs, "/x")
	py, _ := PartialHash(fs, "/y")
	if px == py {
		t.Error("small files are hashed whole and must differ")
	}

	if _, err := PartialHash(fs, "/missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCopyFilePreservesModTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src.txt", []byte("payload"))
	mtime := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := fs.Chtimes("/src.txt", mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(fs, "/src.txt", "/dst.txt"); err != nil {
		t.Fatalf("CopyFile() = %v", err)
	}
	info, err := fs.Stat("/dst.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}

	if err := CopyFile(fs, "/src.txt", "/dst.txt"); err == nil {
		t.Error("copy onto an existing file must fail")
	}
}

func TestMoveFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/from.txt", []byte("payload"))

	if err := MoveFile(fs, "/from.txt", "/to.txt"); err != nil {
		t.Fatalf("MoveFile() = %v", err)
	}
	if ok, _ := afero.Exists(fs, "/from.txt"); ok {
		t.Error("source should be gone")
	}
	got, err := afero.ReadFile(fs, "/to.txt")
	if err != nil || string(got) != "payload" {
		t.Errorf("destination content = %q, %v", got, err)
	}
}

func TestMoveFileNoClobber(t *testing.T) {
	filesystems := []struct {
		name string
		fs   afero.Fs
		dir  string
	}{
		{"memory", afero.NewMemMapFs(), "/"},
		{"disk", afero.NewOsFs(), t.TempDir()},
	}

	for _, tt := range filesystems {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(tt.dir, "src.txt")
			dst := filepath.Join(tt.dir, "dst.txt")
			writeFile(t, tt.fs, src, []byte("quarantined"))
			writeFile(t, tt.fs, dst, []byte("newcomer"))

			if err := MoveFileNoClobber(tt.fs, src, dst); !errors.Is(err, os.ErrExist) {
				t.Fatalf("MoveFileNoClobber() onto an existing file = %v, want ErrExist", err)
			}
			if got, _ := afero.ReadFile(tt.fs, dst); string(got) != "newcomer" {
				t.Errorf("destination overwritten: %q", got)
			}
			if got, _ := afero.ReadFile(tt.fs, src); string(got) != "quarantined" {
				t.Errorf("source lost: %q", got)
			}

			free := filepath.Join(tt.dir, "free.txt")
			if err := MoveFileNoClobber(tt.fs, src, free); err != nil {
				t.Fatalf("MoveFileNoClobber() = %v", err)
			}
			if ok, _ := afero.Exists(tt.fs, src); ok {
				t.Error("source should be gone")
			}
			if got, _ := afero.ReadFile(tt.fs, free); string(got) != "quarantined" {
				t.Errorf("moved content = %q", got)
			}
		})
	}
}
