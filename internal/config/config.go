package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fenilsonani/storage-sweep/internal/platform"
	"github.com/fenilsonani/storage-sweep/internal/security"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Scan           ScanConfig       `yaml:"scan"`
	LargeFiles     LargeFilesConfig `yaml:"large_files"`
	Junk           JunkConfig       `yaml:"junk"`
	Undo           UndoConfig       `yaml:"undo"`
	Storage        StorageConfig    `yaml:"storage"`
	Log            LogConfig        `yaml:"log"`
	Daemon         DaemonConfig     `yaml:"daemon"`
	ProtectedPaths []string         `yaml:"protected_paths"`
}

// ScanConfig controls the directory walk
type ScanConfig struct {
	Root          string   `yaml:"root"`
	DownloadsDir  string   `yaml:"downloads_dir"`
	ExcludeDirs   []string `yaml:"exclude_dirs"`
	ExcludePaths  []string `yaml:"exclude_paths"`
	ProgressEvery int      `yaml:"progress_every"`
	Workers       int      `yaml:"workers"` // 0 picks a value from the CPU count
}

// LargeFilesConfig defines which files count as large
type LargeFilesConfig struct {
	ThresholdMB int `yaml:"threshold_mb"`
	MaxResults  int `yaml:"max_results"` // 0 means unlimited
}

// JunkConfig holds junk detection settings
type JunkConfig struct {
	StaleDownloadDays int `yaml:"stale_download_days"`
}

// UndoConfig holds the undo window for deletions
type UndoConfig struct {
	Window time.Duration `yaml:"window"`
}

// StorageConfig locates the persistent state
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DaemonConfig holds daemon mode configuration
type DaemonConfig struct {
	Schedule string `yaml:"schedule"` // Cron expression
	PidFile  string `yaml:"pid_file"`
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.expandPaths()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scan.Root) == "" {
		return fmt.Errorf("scan root must be set")
	}
	if c.Scan.ProgressEvery <= 0 {
		return fmt.Errorf("progress_every must be > 0")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}

	for _, pattern := range c.Scan.ExcludePaths {
		if err := security.ValidateGlobPattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude path '%s': %w", pattern, err)
		}
	}
	for _, name := range c.Scan.ExcludeDirs {
		if name == "" || strings.ContainsRune(name, '/') {
			return fmt.Errorf("exclude dir must be a plain directory name: %q", name)
		}
	}

	if c.LargeFiles.ThresholdMB <= 0 {
		return fmt.Errorf("large file threshold must be > 0")
	}
	if c.LargeFiles.MaxResults < 0 {
		return fmt.Errorf("large file max results must be >= 0")
	}
	if c.Junk.StaleDownloadDays <= 0 {
		return fmt.Errorf("stale download age must be > 0")
	}
	if c.Undo.Window <= 0 {
		return fmt.Errorf("undo window must be > 0")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir must be set")
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	return nil
}

// SnapshotPath is where the last completed scan is persisted.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Storage.DataDir, "snapshot.json")
}

// TrashDir holds quarantined files awaiting confirmation.
func (c *Config) TrashDir() string {
	return filepath.Join(c.Storage.DataDir, "trash")
}

// HistoryPath is the SQLite deletion ledger.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Storage.DataDir, "history.db")
}

// LargeFileThreshold returns the threshold in bytes.
func (c *Config) LargeFileThreshold() int64 {
	return int64(c.LargeFiles.ThresholdMB) << 20
}

// StaleDownloadAge returns the junk cutoff for downloads.
func (c *Config) StaleDownloadAge() time.Duration {
	return time.Duration(c.Junk.StaleDownloadDays) * 24 * time.Hour
}

// WorkerCount resolves the hashing worker count.
func (c *Config) WorkerCount() int {
	if c.Scan.Workers > 0 {
		return c.Scan.Workers
	}
	return defaultWorkers()
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	if n > 16 {
		return 16
	}
	return n
}

func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()
	c.Scan.Root = ExpandHome(c.Scan.Root, home)
	c.Scan.DownloadsDir = ExpandHome(c.Scan.DownloadsDir, home)
	c.Storage.DataDir = ExpandHome(c.Storage.DataDir, home)
	c.Log.File = ExpandHome(c.Log.File, home)
	c.Daemon.PidFile = ExpandHome(c.Daemon.PidFile, home)
	for i, p := range c.ProtectedPaths {
		c.ProtectedPaths[i] = ExpandHome(p, home)
	}
}

// ExpandHome replaces a leading "~" with home.
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	configDir, err := platform.GetUserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", herr
		}
		configDir = filepath.Join(homeDir, ".config", platform.AppName)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(GetExampleConfig()), 0644); err != nil {
			return "", fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return configPath, nil
}
