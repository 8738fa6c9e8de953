package engine

import (
	"time"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/cleaner"
	"github.com/fenilsonani/storage-sweep/internal/config"
	"github.com/fenilsonani/storage-sweep/internal/logger"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/internal/security"
)

// DefaultUndoWindow is how long a delete stays restorable
const DefaultUndoWindow = 5 * time.Minute

// Options configures an Engine. Zero values fall back to the scanner defaults.
type Options struct {
	Fs            afero.Fs
	Root          string
	DownloadsDir  string
	Exclude       scanner.ExcludeRules
	ProgressEvery int
	Workers       int

	LargeFileThreshold int64
	MaxLargeResults    int
	StaleDownloadAge   time.Duration
	UndoWindow         time.Duration

	SnapshotPath  string
	QuarantineDir string

	History   cleaner.Recorder
	Validator cleaner.Guard
	Logger    *logger.Logger
}

// FromConfig maps the user configuration onto engine options. The history
// recorder is left for the caller to attach.
func FromConfig(cfg *config.Config, fs afero.Fs, log *logger.Logger) Options {
	validator := security.NewPathValidator(cfg.Storage.DataDir)
	for _, p := range cfg.ProtectedPaths {
		validator.AddProtectedPath(p)
	}

	return Options{
		Fs:           fs,
		Root:         cfg.Scan.Root,
		DownloadsDir: cfg.Scan.DownloadsDir,
		Exclude: scanner.ExcludeRules{
			Names: append([]string(nil), cfg.Scan.ExcludeDirs...),
			Paths: append([]string(nil), cfg.Scan.ExcludePaths...),
		},
		ProgressEvery:      cfg.Scan.ProgressEvery,
		Workers:            cfg.WorkerCount(),
		LargeFileThreshold: cfg.LargeFileThreshold(),
		MaxLargeResults:    cfg.LargeFiles.MaxResults,
		StaleDownloadAge:   cfg.StaleDownloadAge(),
		UndoWindow:         cfg.Undo.Window,
		SnapshotPath:       cfg.SnapshotPath(),
		QuarantineDir:      cfg.TrashDir(),
		Validator:          validator,
		Logger:             log,
	}
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = scanner.DefaultProgressEvery
	}
	if o.LargeFileThreshold <= 0 {
		o.LargeFileThreshold = scanner.DefaultLargeFileSize
	}
	if o.StaleDownloadAge <= 0 {
		o.StaleDownloadAge = scanner.DefaultStaleDownloadAge
	}
	if o.UndoWindow <= 0 {
		o.UndoWindow = DefaultUndoWindow
	}
	return o
}
