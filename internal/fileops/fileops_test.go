package fileops

import (
	"errors"
	"testing"

	"github.com/fenilsonani/storage-sweep/internal/testutil"
	"github.com/spf13/afero"
)

func TestMove(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("Downloads/song.mp3", []byte("la"))

	dst, err := Move(f.Fs, src, f.Path("Music"))
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if dst != f.Path("Music/song.mp3") {
		t.Errorf("Move() = %q", dst)
	}
	f.AssertFileNotExists(src)
	f.AssertContent(dst, []byte("la"))
}

func TestMoveTargetExists(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("Downloads/a.txt", []byte("new"))
	existing := f.CreateFile("Docs/a.txt", []byte("old"))

	_, err := Move(f.Fs, src, f.Path("Docs"))
	if !errors.Is(err, ErrTargetExists) {
		t.Fatalf("Move() error = %v, want ErrTargetExists", err)
	}
	f.AssertContent(existing, []byte("old"))
	f.AssertFileExists(src)
}

func TestMoveSameDirectory(t *testing.T) {
	f := testutil.NewMemFixture(t)
	src := f.CreateFile("a.txt", []byte("x"))

	dst, err := Move(f.Fs, src, f.RootDir)
	if err != nil || dst != src {
		t.Errorf("Move() = %q, %v, want no-op", dst, err)
	}
}

func TestRename(t *testing.T) {
	tests := []struct {
		name    string
		newName string
		wantErr error
	}{
		{name: "plain", newName: "b.txt"},
		{name: "empty", newName: "", wantErr: ErrInvalidName},
		{name: "separator", newName: "dir/b.txt", wantErr: ErrInvalidName},
		{name: "dotdot", newName: "..", wantErr: ErrInvalidName},
		{name: "taken", newName: "taken.txt", wantErr: ErrTargetExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewMemFixture(t)
			src := f.CreateFile("a.txt", []byte("content"))
			f.CreateFile("taken.txt", []byte("other"))

			dst, err := Rename(f.Fs, src, tt.newName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Rename() error = %v, want %v", err, tt.wantErr)
				}
				f.AssertFileExists(src)
				return
			}
			if err != nil {
				t.Fatalf("Rename() error = %v", err)
			}
			f.AssertFileNotExists(src)
			f.AssertContent(dst, []byte("content"))
		})
	}
}

func TestRenameMissing(t *testing.T) {
	f := testutil.NewMemFixture(t)

	if _, err := Rename(f.Fs, f.Path("ghost.txt"), "x.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUniquePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/d/a.zip", []byte("1"), 0644)
	afero.WriteFile(fs, "/d/a (1).zip", []byte("2"), 0644)

	got, err := uniquePath(fs, "/d/a.zip", ".zip")
	if err != nil {
		t.Fatalf("uniquePath() error = %v", err)
	}
	if got != "/d/a (2).zip" {
		t.Errorf("uniquePath() = %q, want /d/a (2).zip", got)
	}

	got, _ = uniquePath(fs, "/d/free.zip", ".zip")
	if got != "/d/free.zip" {
		t.Errorf("uniquePath() = %q, want unchanged", got)
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/dest", true},
		{"/dest/a/b", true},
		{"/dest/../x", false},
		{"/destination", false},
		{"/other", false},
	}

	for _, tt := range tests {
		if got := isWithin("/dest", tt.target); got != tt.want {
			t.Errorf("isWithin(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
