package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/storage-sweep/internal/progress"
	"github.com/fenilsonani/storage-sweep/internal/reporter"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/internal/ui"
)

var (
	treeDepth    int
	fileCategory string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index storage and find duplicates, large files and junk",
	Long: `Walks the configured root, hashes duplicate candidates and stores the results
so that the listing commands can show them without rescanning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		threshold, err := parseMinSize(minSize, s.cfg.LargeFileThreshold())
		if err != nil {
			return err
		}

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		states := s.engine.StartScan(ctx, threshold)

		var final progress.ScanState
		if ui.IsTerminal(os.Stderr) {
			final, err = ui.RunScanProgress(states, cancel)
			if err != nil {
				s.engine.CancelScan()
				return fmt.Errorf("progress display failed: %w", err)
			}
		} else {
			final = ui.NewLinePrinter(os.Stderr, time.Second).Consume(states)
		}

		switch final.Kind {
		case progress.StateCancelled:
			return fmt.Errorf("scan cancelled, previous results kept")
		case progress.StateError:
			return fmt.Errorf("scan failed: %s", final.Message)
		}

		if humanOutput() && ui.IsTerminal(os.Stdout) {
			fmt.Println(ui.RenderStats(s.engine.Stats()))
			return nil
		}
		return rptr.ReportStats(s.engine.Stats())
	},
}

// listCommand builds a command that prints one of the stored result sets
func listCommand(use, short, title string, pick func(s *session) ([]scanner.FileRecord, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := requireResults(s.engine); err != nil {
				return err
			}
			files, err := pick(s)
			if err != nil {
				return err
			}

			format, err := reporter.ParseFormat(outputFmt)
			if err != nil {
				return err
			}
			if outputFile != "" {
				if err := reporter.SaveToFile(title, files, outputFile, format); err != nil {
					return fmt.Errorf("failed to save report: %w", err)
				}
				fmt.Printf("Report saved to: %s\n", outputFile)
				return nil
			}
			return reporter.New(os.Stdout, format).ReportFiles(title, files)
		},
	}
}

var duplicatesCmd = listCommand("duplicates", "List duplicate files grouped by content", "Duplicate Files",
	func(s *session) ([]scanner.FileRecord, error) {
		return s.engine.Duplicates(), nil
	})

var junkCmd = listCommand("junk", "List junk files", "Junk Files",
	func(s *session) ([]scanner.FileRecord, error) {
		return s.engine.Junk(), nil
	})

var largeCmd = listCommand("large", "List large files, largest first", "Large Files",
	func(s *session) ([]scanner.FileRecord, error) {
		if minSize == "" {
			return s.engine.LargeFiles(), nil
		}
		threshold, err := parseMinSize(minSize, 0)
		if err != nil {
			return nil, err
		}
		return scanner.FindLargeFiles(s.engine.Files(), threshold, s.cfg.LargeFiles.MaxResults), nil
	})

var filesCmd = listCommand("files", "List indexed files, optionally of one category", "Files",
	func(s *session) ([]scanner.FileRecord, error) {
		if fileCategory == "" {
			return s.engine.Files(), nil
		}
		cat, err := parseCategory(fileCategory)
		if err != nil {
			return nil, err
		}
		return s.engine.Categories()[cat], nil
	})

func parseCategory(name string) (scanner.Category, error) {
	for _, c := range scanner.AllCategories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", name)
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show directory sizes from the last scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		rptr, err := newReporter()
		if err != nil {
			return err
		}
		return rptr.ReportTree(s.engine.Tree(), treeDepth)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals from the last scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := requireResults(s.engine); err != nil {
			return err
		}
		if humanOutput() && ui.IsTerminal(os.Stdout) {
			fmt.Println(ui.RenderStats(s.engine.Stats()))
			return nil
		}
		rptr, err := newReporter()
		if err != nil {
			return err
		}
		return rptr.ReportStats(s.engine.Stats())
	},
}

func init() {
	scanCmd.Flags().StringVar(&minSize, "min-size", "", "large file threshold for this scan (e.g. 100MB)")
	largeCmd.Flags().StringVar(&minSize, "min-size", "", "only list files of at least this size")
	filesCmd.Flags().StringVar(&fileCategory, "category", "", "image, video, audio, document, apk, archive, download or other")
	treeCmd.Flags().IntVar(&treeDepth, "depth", 2, "levels to show, -1 for all")

	for _, c := range []*cobra.Command{duplicatesCmd, junkCmd, largeCmd, filesCmd} {
		c.Flags().StringVar(&outputFile, "file", "", "save the listing to a file")
	}
}
