package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/storage-sweep/internal/ui/styles"
)

// fileCommand builds a command running one single-file operation. The first
// pathArgs arguments are resolved to absolute paths.
func fileCommand(use, short string, nargs, pathArgs int, run func(s *session, args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i := 0; i < pathArgs; i++ {
				abs, err := filepath.Abs(args[i])
				if err != nil {
					return err
				}
				args[i] = abs
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := run(s, args)
			if err != nil {
				return err
			}
			fmt.Println(styles.SuccessStyle.Render("✓ ") + out)
			return nil
		},
	}
}

var mvCmd = fileCommand("mv <file> <dir>", "Move a file into a directory", 2, 2,
	func(s *session, args []string) (string, error) {
		return s.engine.MoveFile(args[0], args[1])
	})

var renameCmd = fileCommand("rename <file> <new-name>", "Rename a file in place", 2, 1,
	func(s *session, args []string) (string, error) {
		return s.engine.RenameFile(args[0], args[1])
	})

var compressCmd = fileCommand("compress <file>", "Compress a file into a zip archive next to it", 1, 1,
	func(s *session, args []string) (string, error) {
		return s.engine.CompressFile(args[0])
	})

var extractCmd = fileCommand("extract <archive>", "Extract a .zip, .tar.gz or .tgz archive next to it", 1, 1,
	func(s *session, args []string) (string, error) {
		ctx, stop := signalContext()
		defer stop()
		return s.engine.ExtractArchive(ctx, args[0])
	})
