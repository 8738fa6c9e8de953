package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()
	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}

	if cfg.LargeFiles.ThresholdMB != 50 {
		t.Errorf("expected threshold 50MB, got %d", cfg.LargeFiles.ThresholdMB)
	}
	if cfg.LargeFiles.MaxResults != 200 {
		t.Errorf("expected max results 200, got %d", cfg.LargeFiles.MaxResults)
	}
	if cfg.Junk.StaleDownloadDays != 90 {
		t.Errorf("expected stale download days 90, got %d", cfg.Junk.StaleDownloadDays)
	}
	if cfg.Undo.Window != 5*time.Minute {
		t.Errorf("expected undo window 5m, got %v", cfg.Undo.Window)
	}
	if cfg.Scan.ProgressEvery != 100 {
		t.Errorf("expected progress every 100, got %d", cfg.Scan.ProgressEvery)
	}
	if cfg.Daemon.Schedule != "@every 6h" {
		t.Errorf("expected schedule @every 6h, got %q", cfg.Daemon.Schedule)
	}
}

func TestGetDefaultIsValid(t *testing.T) {
	if err := GetDefault().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := GetDefault()
	cfg.Storage.DataDir = "/data"

	if got := cfg.SnapshotPath(); got != "/data/snapshot.json" {
		t.Errorf("SnapshotPath() = %q", got)
	}
	if got := cfg.TrashDir(); got != "/data/trash" {
		t.Errorf("TrashDir() = %q", got)
	}
	if got := cfg.HistoryPath(); got != "/data/history.db" {
		t.Errorf("HistoryPath() = %q", got)
	}
	if got := cfg.LargeFileThreshold(); got != 50*1024*1024 {
		t.Errorf("LargeFileThreshold() = %d", got)
	}
	if got := cfg.StaleDownloadAge(); got != 90*24*time.Hour {
		t.Errorf("StaleDownloadAge() = %v", got)
	}
}

func TestWorkerCount(t *testing.T) {
	cfg := GetDefault()

	cfg.Scan.Workers = 3
	if got := cfg.WorkerCount(); got != 3 {
		t.Errorf("WorkerCount() = %d, want 3", got)
	}

	cfg.Scan.Workers = 0
	got := cfg.WorkerCount()
	if got < 2 || got > 16 {
		t.Errorf("WorkerCount() = %d, want within [2,16]", got)
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load should not error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.LargeFiles.ThresholdMB != 50 {
		t.Error("expected default threshold")
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
scan:
  root: /storage/emulated/0
  downloads_dir: /storage/emulated/0/Download
  exclude_dirs: [node_modules]
  exclude_paths: ["Android/*"]
  progress_every: 25
  workers: 4
large_files:
  threshold_mb: 10
  max_results: 0
junk:
  stale_download_days: 30
undo:
  window: 90s
storage:
  data_dir: /var/lib/sweep
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scan.Root != "/storage/emulated/0" {
		t.Errorf("Root = %q", cfg.Scan.Root)
	}
	if len(cfg.Scan.ExcludeDirs) != 1 || cfg.Scan.ExcludeDirs[0] != "node_modules" {
		t.Errorf("ExcludeDirs = %v, want [node_modules]", cfg.Scan.ExcludeDirs)
	}
	if cfg.Scan.ProgressEvery != 25 || cfg.Scan.Workers != 4 {
		t.Errorf("scan = %+v", cfg.Scan)
	}
	if cfg.LargeFiles.ThresholdMB != 10 || cfg.LargeFiles.MaxResults != 0 {
		t.Errorf("large files = %+v", cfg.LargeFiles)
	}
	if cfg.Undo.Window != 90*time.Second {
		t.Errorf("Window = %v, want 90s", cfg.Undo.Window)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
large_files:
  threshold_mb: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LargeFiles.ThresholdMB != 100 {
		t.Errorf("ThresholdMB = %d, want 100", cfg.LargeFiles.ThresholdMB)
	}
	if cfg.LargeFiles.MaxResults != 200 {
		t.Errorf("MaxResults = %d, want default 200", cfg.LargeFiles.MaxResults)
	}
	if cfg.Undo.Window != 5*time.Minute {
		t.Errorf("Window = %v, want default 5m", cfg.Undo.Window)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	path := writeConfig(t, `
scan:
  root: "~/media"
storage:
  data_dir: "~"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scan.Root != filepath.Join(home, "media") {
		t.Errorf("Root = %q", cfg.Scan.Root)
	}
	if cfg.Storage.DataDir != home {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	if _, err := os.UserHomeDir(); err != nil {
		t.Skip("no home directory")
	}
	path := writeConfig(t, GetExampleConfig())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example config should load: %v", err)
	}
	if strings.HasPrefix(cfg.Scan.Root, "~") {
		t.Errorf("Root was not expanded: %q", cfg.Scan.Root)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "scan: [unclosed")

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, "undo:\n  window: soon\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

// =============================================================================
// Save Tests
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "config.yaml")

	cfg := GetDefault()
	cfg.Scan.Root = "/srv/media"
	cfg.Storage.DataDir = "/srv/state"
	cfg.Undo.Window = 2 * time.Minute
	cfg.LargeFiles.ThresholdMB = 7

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Scan.Root != "/srv/media" || loaded.Storage.DataDir != "/srv/state" {
		t.Errorf("paths not preserved: %+v %+v", loaded.Scan, loaded.Storage)
	}
	if loaded.Undo.Window != 2*time.Minute {
		t.Errorf("Window = %v, want 2m", loaded.Undo.Window)
	}
	if loaded.LargeFiles.ThresholdMB != 7 {
		t.Errorf("ThresholdMB = %d, want 7", loaded.LargeFiles.ThresholdMB)
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "empty root", mutate: func(c *Config) { c.Scan.Root = " " }, wantErr: true},
		{name: "zero threshold", mutate: func(c *Config) { c.LargeFiles.ThresholdMB = 0 }, wantErr: true},
		{name: "negative threshold", mutate: func(c *Config) { c.LargeFiles.ThresholdMB = -1 }, wantErr: true},
		{name: "unlimited results", mutate: func(c *Config) { c.LargeFiles.MaxResults = 0 }},
		{name: "negative results", mutate: func(c *Config) { c.LargeFiles.MaxResults = -5 }, wantErr: true},
		{name: "zero stale days", mutate: func(c *Config) { c.Junk.StaleDownloadDays = 0 }, wantErr: true},
		{name: "zero undo window", mutate: func(c *Config) { c.Undo.Window = 0 }, wantErr: true},
		{name: "zero progress", mutate: func(c *Config) { c.Scan.ProgressEvery = 0 }, wantErr: true},
		{name: "negative workers", mutate: func(c *Config) { c.Scan.Workers = -1 }, wantErr: true},
		{name: "bad glob", mutate: func(c *Config) { c.Scan.ExcludePaths = []string{"[invalid"} }, wantErr: true},
		{name: "traversal glob", mutate: func(c *Config) { c.Scan.ExcludePaths = []string{"../etc"} }, wantErr: true},
		{name: "dir with slash", mutate: func(c *Config) { c.Scan.ExcludeDirs = []string{"a/b"} }, wantErr: true},
		{name: "relative protected", mutate: func(c *Config) { c.ProtectedPaths = []string{"relative"} }, wantErr: true},
		{name: "empty data dir", mutate: func(c *Config) { c.Storage.DataDir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			cfg.Scan.Root = "/storage"
			cfg.Storage.DataDir = "/data"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/u"},
		{"~/a/b", "/home/u/a/b"},
		{"/abs", "/abs"},
		{"~other", "~other"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.in, "/home/u"); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
