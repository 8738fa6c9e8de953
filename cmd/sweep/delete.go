package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

var (
	deleteDuplicates bool
	deleteJunk       bool
	force            bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [paths...]",
	Short: "Move files to the quarantine",
	Long: `Moves the given files, every redundant duplicate copy (--duplicates) or every
junk file (--junk) to the quarantine. The batch can be restored with 'sweep undo'
until the undo window passes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !deleteDuplicates && !deleteJunk {
			return fmt.Errorf("nothing to delete: pass paths, --duplicates or --junk")
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := requireResults(s.engine); err != nil {
			return err
		}

		targets, err := selectTargets(s.engine, args, deleteDuplicates, deleteJunk)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Println("No files to delete.")
			return nil
		}

		if !force {
			fmt.Printf("Move %d files (%s) to the quarantine? (y/N): ",
				len(targets), humanize.IBytes(uint64(scanner.TotalSize(targets))))
			if !confirmPrompt(bufio.NewReader(os.Stdin)) {
				fmt.Println("Delete cancelled")
				return nil
			}
		}

		rptr, err := newReporter()
		if err != nil {
			return err
		}

		result := s.engine.DeleteFiles(targets)
		deadline, _ := s.engine.UndoDeadline()
		return rptr.ReportDelete(result, deadline)
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore the last deleted batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signalContext()
		defer stop()

		result, err := s.engine.UndoDeleteContext(ctx)
		if err != nil {
			if errors.Is(err, engine.ErrNoPendingDelete) {
				return fmt.Errorf("nothing to undo: no delete is pending or the undo window has passed")
			}
			return err
		}

		rptr, err := newReporter()
		if err != nil {
			return err
		}
		return rptr.ReportUndo(result)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Permanently remove the last deleted batch now",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.engine.ConfirmDelete()
		if err != nil {
			if errors.Is(err, engine.ErrNoPendingDelete) {
				return fmt.Errorf("nothing to confirm: no delete is pending")
			}
			return err
		}
		fmt.Printf("Removed %d files permanently, freed %s\n", result.Removed, humanize.IBytes(uint64(result.FreedBytes)))
		return nil
	},
}

// selectTargets resolves the delete arguments against the indexed files.
// Paths that were never indexed are an error.
func selectTargets(e *engine.Engine, paths []string, duplicates, junk bool) ([]scanner.FileRecord, error) {
	byPath := make(map[string]scanner.FileRecord, len(e.Files()))
	for _, f := range e.Files() {
		byPath[f.Path] = f
	}

	seen := make(map[string]struct{})
	var targets []scanner.FileRecord
	add := func(f scanner.FileRecord) {
		if _, ok := seen[f.Path]; ok {
			return
		}
		seen[f.Path] = struct{}{}
		targets = append(targets, f)
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		f, ok := byPath[abs]
		if !ok {
			return nil, fmt.Errorf("%s is not in the last scan", p)
		}
		add(f)
	}
	if duplicates {
		for _, f := range redundantCopies(e.Duplicates()) {
			add(f)
		}
	}
	if junk {
		for _, f := range e.Junk() {
			add(f)
		}
	}
	return targets, nil
}

// redundantCopies returns every duplicate except the oldest copy of each
// group. Ties keep the shortest path, then the first in path order.
func redundantCopies(dups []scanner.FileRecord) []scanner.FileRecord {
	groups := make(map[int][]scanner.FileRecord)
	var ids []int
	for _, f := range dups {
		if f.DuplicateGroup == scanner.NoGroup {
			continue
		}
		if _, ok := groups[f.DuplicateGroup]; !ok {
			ids = append(ids, f.DuplicateGroup)
		}
		groups[f.DuplicateGroup] = append(groups[f.DuplicateGroup], f)
	}
	sort.Ints(ids)

	var extra []scanner.FileRecord
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool {
			if !g[i].ModTime.Equal(g[j].ModTime) {
				return g[i].ModTime.Before(g[j].ModTime)
			}
			if len(g[i].Path) != len(g[j].Path) {
				return len(g[i].Path) < len(g[j].Path)
			}
			return g[i].Path < g[j].Path
		})
		extra = append(extra, g[1:]...)
	}
	return extra
}

func confirmPrompt(r *bufio.Reader) bool {
	line, _ := r.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteDuplicates, "duplicates", false, "delete all but the oldest copy of every duplicate group")
	deleteCmd.Flags().BoolVar(&deleteJunk, "junk", false, "delete every junk file")
	deleteCmd.Flags().BoolVarP(&force, "yes", "y", false, "skip the confirmation prompt")
}
