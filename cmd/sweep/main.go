package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/storage-sweep/internal/config"
	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/history"
	"github.com/fenilsonani/storage-sweep/internal/logger"
	"github.com/fenilsonani/storage-sweep/internal/reporter"
	"github.com/fenilsonani/storage-sweep/internal/ui/styles"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
	outputFmt  string
	outputFile string
	minSize    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Storage analyzer and cleaner",
	Long: `storage-sweep indexes a storage volume, finds duplicate, large and junk files,
and deletes them through a quarantine that can be undone for a few minutes.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "summary", "output format (summary, table, json, yaml)")

	rootCmd.AddCommand(scanCmd, duplicatesCmd, junkCmd, largeCmd, filesCmd, treeCmd, statsCmd)
	rootCmd.AddCommand(deleteCmd, undoCmd, confirmCmd)
	rootCmd.AddCommand(mvCmd, renameCmd, compressCmd, extractCmd)
	rootCmd.AddCommand(historyCmd, configCmd)
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

// session is everything one command invocation needs
type session struct {
	cfg     *config.Config
	engine  *engine.Engine
	history *history.Store
	log     *logger.Logger
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(cfg.Log.File, level)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		log.Close()
		return nil, err
	}

	opts := engine.FromConfig(cfg, afero.NewOsFs(), log)
	opts.History = hist

	e, err := engine.New(opts)
	if err != nil {
		hist.Close()
		log.Close()
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	return &session{cfg: cfg, engine: e, history: hist, log: log}, nil
}

func (s *session) Close() {
	s.engine.Close()
	s.history.Close()
	s.log.Close()
}

func newReporter() (*reporter.Reporter, error) {
	format, err := reporter.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	return reporter.New(os.Stdout, format), nil
}

// humanOutput reports whether decorated output should be printed
func humanOutput() bool {
	return outputFmt == "" || outputFmt == string(reporter.FormatSummary) || outputFmt == string(reporter.FormatTable)
}

// parseMinSize reads the --min-size flag, falling back to def
func parseMinSize(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --min-size %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("--min-size must be greater than zero")
	}
	return int64(n), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func header(title string) {
	if humanOutput() {
		fmt.Println(lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Render(title))
	}
}

func requireResults(e *engine.Engine) error {
	if e.Tree() == nil {
		return fmt.Errorf("no scan results yet, run 'sweep scan' first")
	}
	return nil
}
