package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/platform"
)

// GetDefault returns the default configuration
func GetDefault() *Config {
	info, err := platform.GetInfo()
	if err != nil {
		home, _ := os.UserHomeDir()
		info = &platform.Info{
			HomeDir:      home,
			StorageRoot:  home,
			DownloadsDir: filepath.Join(home, "Downloads"),
			DataDir:      filepath.Join(home, ".local", "share", platform.AppName),
		}
	}

	return &Config{
		Scan: ScanConfig{
			Root:          info.StorageRoot,
			DownloadsDir:  info.DownloadsDir,
			ExcludeDirs:   []string{"cache", "thumbnails", "lost+found"},
			ExcludePaths:  []string{"Android/data", "Android/obb", "Library/Caches", "Library/Containers"},
			ProgressEvery: 100,
		},
		LargeFiles: LargeFilesConfig{
			ThresholdMB: 50,
			MaxResults:  200,
		},
		Junk: JunkConfig{
			StaleDownloadDays: 90,
		},
		Undo: UndoConfig{
			Window: 5 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir: info.DataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
		Daemon: DaemonConfig{
			Schedule: "@every 6h",
			PidFile:  filepath.Join(info.DataDir, "daemon.pid"),
		},
		ProtectedPaths: append([]string(nil), info.ProtectedPaths...),
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# storage-sweep configuration
# Location: ~/.config/storage-sweep/config.yaml

scan:
  root: "~"                    # Storage root to index
  downloads_dir: "~/Downloads" # Old files here are reported as junk
  exclude_dirs:                # Directory names never descended into
    - cache
    - thumbnails
    - lost+found
  exclude_paths:               # Glob paths relative to the root
    - "Android/data"
    - "Android/obb"
    - "Library/Caches"
  progress_every: 100          # Emit progress every N files
  workers: 0                   # Hashing workers, 0 = derived from CPU count

large_files:
  threshold_mb: 50
  max_results: 200             # 0 = unlimited

junk:
  stale_download_days: 90

undo:
  window: 5m                   # Deleted files stay restorable this long

storage:
  data_dir: "~/.local/share/storage-sweep"

log:
  level: info                  # debug, info, warn, error
  file: ""                     # Empty logs to stderr

daemon:
  schedule: "@every 6h"        # Cron expression for scheduled scans
  pid_file: "~/.local/share/storage-sweep/daemon.pid"

# Never quarantined, in addition to the built-in system paths
protected_paths:
  - "~/.ssh"
  - "~/.gnupg"
`
}
