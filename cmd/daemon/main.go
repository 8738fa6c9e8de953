package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/fenilsonani/storage-sweep/internal/config"
	"github.com/fenilsonani/storage-sweep/internal/daemon"
	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/history"
	"github.com/fenilsonani/storage-sweep/internal/logger"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath  string
	foreground  bool
	testConfig  bool
	showVersion bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&foreground, "foreground", false, "Log to stderr instead of the configured log file")
	flag.BoolVar(&testConfig, "test-config", false, "Test configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("storage-sweep daemon v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if testConfig {
		fmt.Println("Configuration is valid")
		fmt.Printf("Root:     %s\n", cfg.Scan.Root)
		fmt.Printf("Schedule: %s\n", cfg.Daemon.Schedule)
		fmt.Printf("Pid file: %s\n", cfg.Daemon.PidFile)
		return nil
	}

	logFile := cfg.Log.File
	if foreground {
		logFile = ""
	}
	log, err := logger.New(logFile, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Close()

	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer hist.Close()

	opts := engine.FromConfig(cfg, afero.NewOsFs(), log)
	opts.History = hist
	e, err := engine.New(opts)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer e.Close()

	d, err := daemon.New(cfg, e, log)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("%w; check %s", err, cfg.Daemon.PidFile)
		}
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
