package scanner

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/testutil"
)

const day = 24 * time.Hour

func record(path string, size int64, age time.Duration, now time.Time) FileRecord {
	return FileRecord{
		Path:           path,
		Size:           size,
		ModTime:        now.Add(-age),
		DuplicateGroup: NoGroup,
	}
}

func TestFindJunk(t *testing.T) {
	now := time.Now()
	downloads := "/sd/Downloads"

	tests := []struct {
		name string
		file FileRecord
		want JunkReason
	}{
		{"old pdf in downloads is kept", record("/sd/Downloads/report.pdf", 100, 200*day, now), ReasonNotJunk},
		{"partial download is junk", record("/sd/Downloads/x.crdownload", 100, 200*day, now), ReasonJunkExtension},
		{"fresh partial download is still junk", record("/sd/Downloads/y.part", 100, day, now), ReasonJunkExtension},
		{"old unknown download is junk", record("/sd/Downloads/setup.bin", 100, 200*day, now), ReasonStaleDownload},
		{"recent unknown download is kept", record("/sd/Downloads/setup.bin", 100, 10*day, now), ReasonNotJunk},
		{"old apk in downloads is kept", record("/sd/Downloads/app.apk", 100, 365*day, now), ReasonNotJunk},
		{"old unknown file outside downloads is kept", record("/sd/misc/blob", 100, 365*day, now), ReasonNotJunk},
		{"cache directory", record("/sd/app/cache/img.jpg", 100, day, now), ReasonJunkDirectory},
		{"log file", record("/sd/logs/app.LOG", 100, day, now), ReasonJunkExtension},
		{"downloads root itself is not under downloads", record("/sd/Downloads", 100, 365*day, now), ReasonNotJunk},
	}

	cutoff := now.Add(-DefaultStaleDownloadAge)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JunkReasonFor(tt.file, "/sd", cutoff, downloads); got != tt.want {
				t.Errorf("JunkReasonFor(%s) = %q, want %q", tt.file.Path, got, tt.want)
			}
		})
	}
}

func TestFindJunkSortedAndIdempotent(t *testing.T) {
	now := time.Now()
	files := []FileRecord{
		record("/sd/a.tmp", 10, 0, now),
		record("/sd/photo.jpg", 5000, 0, now),
		record("/sd/b.log", 300, 0, now),
		record("/sd/.thumbnails/c", 300, 0, now),
		record("/sd/Downloads/old.dat", 20, 120*day, now),
	}

	first := FindJunk(files, "/sd", DefaultStaleDownloadAge, "/sd/Downloads")
	second := FindJunk(files, "/sd", DefaultStaleDownloadAge, "/sd/Downloads")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("FindJunk is not idempotent:\n%v\n%v", first, second)
	}
	wantOrder := []string{"/sd/.thumbnails/c", "/sd/b.log", "/sd/Downloads/old.dat", "/sd/a.tmp"}
	if len(first) != len(wantOrder) {
		t.Fatalf("expected %d junk files, got %v", len(wantOrder), first)
	}
	for i, p := range wantOrder {
		if first[i].Path != p {
			t.Errorf("position %d = %s, want %s", i, first[i].Path, p)
		}
	}
}

func TestFindJunkIgnoresFoldersAboveRoot(t *testing.T) {
	// the scan root itself lives below a directory named tmp
	root := filepath.Join(t.TempDir(), "tmp", "photos")
	f := testutil.NewFixtureAt(t, root)
	f.CreateSizedFile("holiday.jpg", 64, 'h')
	f.CreateSizedFile("album/beach.png", 32, 'b')
	f.CreateSizedFile("app/cache/thumb.jpg", 16, 'c')
	f.CreateFile("debug.log", []byte("x"))

	files, _, err := BuildTree(context.Background(), f.Fs, root, ExcludeRules{}, nil)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}

	got := []string{}
	for _, r := range FindJunk(files, root, DefaultStaleDownloadAge, "") {
		rel, _ := filepath.Rel(root, r.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"app/cache/thumb.jpg", "debug.log"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindJunk() = %v, want %v", got, want)
	}

	// HasJunkSegment without a root still sees the ancestor
	if !HasJunkSegment(f.Path("holiday.jpg")) {
		t.Errorf("HasJunkSegment(%s) = false, want true", f.Path("holiday.jpg"))
	}
}

func TestFindLargeFiles(t *testing.T) {
	now := time.Now()
	files := []FileRecord{
		record("/a", 10<<20, 0, now),
		record("/b", 80<<20, 0, now),
		record("/c", 50<<20, 0, now),
		record("/d", 200<<20, 0, now),
		record("/e", 49<<20, 0, now),
	}

	tests := []struct {
		name      string
		min       int64
		max       int
		wantPaths []string
	}{
		{"default threshold", DefaultLargeFileSize, DefaultMaxLargeResults, []string{"/d", "/b", "/c"}},
		{"capped", DefaultLargeFileSize, 2, []string{"/d", "/b"}},
		{"no cap", 1, 0, []string{"/d", "/b", "/c", "/e", "/a"}},
		{"nothing large enough", 1 << 40, 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindLargeFiles(files, tt.min, tt.max)
			paths := []string{}
			for _, f := range got {
				paths = append(paths, f.Path)
			}
			if !reflect.DeepEqual(paths, tt.wantPaths) {
				t.Errorf("got %v, want %v", paths, tt.wantPaths)
			}
			if again := FindLargeFiles(files, tt.min, tt.max); !reflect.DeepEqual(got, again) {
				t.Error("FindLargeFiles is not idempotent")
			}
		})
	}
}
