package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fenilsonani/storage-sweep/internal/config"
	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/logger"
	"github.com/fenilsonani/storage-sweep/internal/progress"
)

// ErrAlreadyRunning is returned when another daemon holds the pid file
var ErrAlreadyRunning = errors.New("daemon already running")

// Scanner is the part of the engine the daemon drives
type Scanner interface {
	Scan(ctx context.Context, largeFileThreshold int64) progress.ScanState
	Scanning() bool
	Stats() engine.Stats
}

// Daemon runs scheduled scans in the background
type Daemon struct {
	config    *config.Config
	scanner   Scanner
	scheduler *Scheduler
	logger    *logger.Logger
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
}

// New creates a daemon that scans with s on the configured schedule
func New(cfg *config.Config, s Scanner, log *logger.Logger) (*Daemon, error) {
	if s == nil {
		return nil, fmt.Errorf("daemon needs a scanner")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		config:  cfg,
		scanner: s,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}

	scheduler, err := NewScheduler(d, cfg.Daemon.Schedule)
	if err != nil {
		cancel()
		return nil, err
	}
	d.scheduler = scheduler
	return d, nil
}

// Start writes the pid file, starts the scheduler and blocks until Stop
// is called or SIGINT/SIGTERM arrives
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("Starting storage-sweep daemon")

	if err := writePidFile(d.config.Daemon.PidFile); err != nil {
		return err
	}
	defer removePidFile(d.config.Daemon.PidFile)

	stopSignals := d.setupSignalHandlers()
	defer stopSignals()

	d.scheduler.Start()
	defer d.scheduler.Stop()

	d.logger.Info("Daemon started, next scan at %s", d.scheduler.NextRun().Format(time.RFC3339))

	<-d.ctx.Done()

	d.logger.Info("Daemon shutting down")
	return nil
}

// Stop ends Start and cancels a scan in flight
func (d *Daemon) Stop() {
	d.cancel()
}

// IsRunning returns whether Start is active
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// RunScan performs one scheduled scan. It is skipped when another scan
// is already in flight.
func (d *Daemon) RunScan() progress.ScanState {
	if d.scanner.Scanning() {
		d.logger.Info("Scan already in progress, skipping scheduled run")
		return progress.Idle()
	}

	start := time.Now()
	d.logger.Info("Running scheduled scan")

	state := d.scanner.Scan(d.ctx, d.config.LargeFileThreshold())
	switch state.Kind {
	case progress.StateDone:
		stats := d.scanner.Stats()
		d.logger.Info("Scan completed in %v: %s files (%s), %d duplicates (%s reclaimable), %d junk (%s)",
			time.Since(start).Round(time.Millisecond),
			humanize.Comma(int64(stats.TotalFiles)), humanize.IBytes(uint64(stats.TotalSize)),
			stats.DuplicateFiles, humanize.IBytes(uint64(stats.ReclaimableDuplicateSize)),
			stats.JunkFiles, humanize.IBytes(uint64(stats.JunkSize)))
	case progress.StateCancelled:
		d.logger.Warn("Scheduled scan cancelled")
	case progress.StateError:
		d.logger.Error("Scheduled scan failed: %s", state.Message)
	}
	return state
}

// setupSignalHandlers stops the daemon on SIGINT or SIGTERM. SIGHUP
// triggers an immediate scan.
func (d *Daemon) setupSignalHandlers() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGHUP:
					d.logger.Info("Received SIGHUP, scanning now")
					go d.RunScan()
				default:
					d.logger.Info("Received shutdown signal: %v", sig)
					d.Stop()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// writePidFile creates path with the current pid. A pid file left by a
// process that no longer exists is replaced.
func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
		if err == nil {
			_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to write pid file: %w", err)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create pid file: %w", err)
		}

		if pid, ok := readPid(path); ok && processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale pid file: %w", err)
		}
	}
	return ErrAlreadyRunning
}

func removePidFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func readPid(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
