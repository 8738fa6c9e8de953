package fileops

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/testutil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

type archiveEntry struct {
	name string
	body string
	dir  bool
}

func buildZip(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		name := e.name
		if e.dir {
			name += "/"
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if !e.dir {
			io.WriteString(w, e.body)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func buildTarGz(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), ModTime: time.Now()}
		if e.dir {
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
			header.Size = 0
		} else {
			header.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("tar header %s: %v", e.name, err)
		}
		if !e.dir {
			io.WriteString(tw, e.body)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestCompress(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("Documents/report.pdf", []byte("quarterly numbers"))

	dst, err := Compress(f.Fs, src)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if dst != f.Path("Documents/report.zip") {
		t.Errorf("Compress() = %q", dst)
	}
	f.AssertFileExists(src)

	data, err := afero.ReadFile(f.Fs, dst)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "report.pdf" {
		t.Fatalf("archive entries = %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "quarterly numbers" {
		t.Errorf("entry body = %q", body)
	}
}

func TestCompressNameTaken(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("report.pdf", []byte("x"))
	f.CreateFile("report.zip", []byte("unrelated"))

	dst, err := Compress(f.Fs, src)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if dst != f.Path("report (1).zip") {
		t.Errorf("Compress() = %q, want report (1).zip", dst)
	}
	f.AssertContent(f.Path("report.zip"), []byte("unrelated"))
}

func TestExtract(t *testing.T) {
	entries := []archiveEntry{
		{name: "photos", dir: true},
		{name: "photos/a.jpg", body: "jpeg-a"},
		{name: "notes/readme.txt", body: "hello"},
	}

	tests := []struct {
		name    string
		archive string
		data    func(t *testing.T) []byte
	}{
		{name: "zip", archive: "bundle.zip", data: func(t *testing.T) []byte { return buildZip(t, entries) }},
		{name: "tar.gz", archive: "bundle.tar.gz", data: func(t *testing.T) []byte { return buildTarGz(t, entries) }},
		{name: "tgz", archive: "bundle.tgz", data: func(t *testing.T) []byte { return buildTarGz(t, entries) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewMemFixture(t)
			src := f.Path(tt.archive)
			if err := afero.WriteFile(f.Fs, src, tt.data(t), 0644); err != nil {
				t.Fatalf("write archive: %v", err)
			}

			dest, err := Extract(context.Background(), f.Fs, src)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if dest != f.Path("bundle") {
				t.Errorf("Extract() = %q, want bundle dir", dest)
			}
			f.AssertContent(f.Path("bundle/photos/a.jpg"), []byte("jpeg-a"))
			f.AssertContent(f.Path("bundle/notes/readme.txt"), []byte("hello"))
			f.AssertFileExists(src)
		})
	}
}

func TestExtractUniqueDestination(t *testing.T) {
	f := testutil.NewMemFixture(t)
	f.CreateDir("bundle")
	src := f.Path("bundle.zip")
	afero.WriteFile(f.Fs, src, buildZip(t, []archiveEntry{{name: "a.txt", body: "a"}}), 0644)

	dest, err := Extract(context.Background(), f.Fs, src)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if dest != f.Path("bundle (1)") {
		t.Errorf("Extract() = %q, want bundle (1)", dest)
	}
	f.AssertContent(f.Path("bundle (1)/a.txt"), []byte("a"))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tests := []struct {
		name    string
		archive string
		data    []byte
	}{
		{name: "tar.gz", archive: "evil.tar.gz", data: buildTarGz(t, []archiveEntry{{name: "../escaped.txt", body: "x"}})},
		{name: "zip", archive: "evil.zip", data: buildZip(t, []archiveEntry{{name: "../escaped.txt", body: "x"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewMemFixture(t)
			src := f.Path(tt.archive)
			afero.WriteFile(f.Fs, src, tt.data, 0644)

			if _, err := Extract(context.Background(), f.Fs, src); err == nil {
				t.Fatal("expected escaping entry to be rejected")
			}
			f.AssertFileNotExists(f.Path("escaped.txt"))
			f.AssertFileNotExists(f.Path("evil"))
		})
	}
}

func TestExtractUnsupported(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("movie.rar", []byte("x"))

	_, err := Extract(context.Background(), f.Fs, src)
	if !errors.Is(err, ErrUnsupportedArchive) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedArchive", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.Path("bundle.zip")
	afero.WriteFile(f.Fs, src, buildZip(t, []archiveEntry{{name: "a.txt", body: "a"}}), 0644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Extract(ctx, f.Fs, src); !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
	f.AssertFileNotExists(f.Path("bundle"))
}
