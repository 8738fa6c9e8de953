// Package reporter renders scan results, delete outcomes and the deletion
// history as summary text, a table, JSON or YAML.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/storage-sweep/internal/cleaner"
	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/history"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a --output value
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	case "":
		return FormatSummary, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	now    func() time.Time
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
		now:    time.Now,
	}
}

// fileRow is the serialized form of a FileRecord
type fileRow struct {
	Path      string    `json:"path" yaml:"path"`
	Size      int64     `json:"size" yaml:"size"`
	SizeHuman string    `json:"size_human" yaml:"size_human"`
	Category  string    `json:"category" yaml:"category"`
	Modified  time.Time `json:"modified" yaml:"modified"`
	Group     *int      `json:"duplicate_group,omitempty" yaml:"duplicate_group,omitempty"`
}

func toRows(files []scanner.FileRecord) []fileRow {
	rows := make([]fileRow, 0, len(files))
	for _, f := range files {
		row := fileRow{
			Path:      f.Path,
			Size:      f.Size,
			SizeHuman: humanize.IBytes(uint64(f.Size)),
			Category:  string(f.Category),
			Modified:  f.ModTime,
		}
		if f.IsDuplicate() {
			g := f.DuplicateGroup
			row.Group = &g
		}
		rows = append(rows, row)
	}
	return rows
}

// ReportFiles renders a titled file listing
func (r *Reporter) ReportFiles(title string, files []scanner.FileRecord) error {
	switch r.format {
	case FormatTable:
		return r.filesTable(files)
	case FormatJSON, FormatYAML:
		return r.encode(struct {
			Title     string    `json:"title" yaml:"title"`
			Timestamp string    `json:"timestamp" yaml:"timestamp"`
			Count     int       `json:"count" yaml:"count"`
			TotalSize int64     `json:"total_size" yaml:"total_size"`
			Files     []fileRow `json:"files" yaml:"files"`
		}{
			Title:     title,
			Timestamp: r.now().Format(time.RFC3339),
			Count:     len(files),
			TotalSize: scanner.TotalSize(files),
			Files:     toRows(files),
		})
	case FormatSummary:
		return r.filesSummary(title, files)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) filesSummary(title string, files []scanner.FileRecord) error {
	fmt.Fprintf(r.writer, "=== %s ===\n", title)
	fmt.Fprintf(r.writer, "Files: %s, %s\n", humanize.Comma(int64(len(files))), humanize.IBytes(uint64(scanner.TotalSize(files))))

	grouped := scanner.GroupByCategory(files)
	for _, cat := range scanner.AllCategories {
		group := grouped[cat]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(r.writer, "  %-9s %6d files  %10s\n", cat, len(group), humanize.IBytes(uint64(scanner.TotalSize(group))))
	}
	return nil
}

func (r *Reporter) filesTable(files []scanner.FileRecord) error {
	fmt.Fprintf(r.writer, "%-60s | %-10s | %-9s | %-5s | %s\n", "Path", "Size", "Category", "Group", "Modified")
	fmt.Fprintf(r.writer, "%s\n", strings.Repeat("-", 110))

	for _, file := range files {
		group := "-"
		if file.IsDuplicate() {
			group = fmt.Sprintf("%d", file.DuplicateGroup)
		}
		fmt.Fprintf(r.writer, "%-60s | %-10s | %-9s | %-5s | %s\n",
			truncatePath(file.Path, 60),
			humanize.IBytes(uint64(file.Size)),
			file.Category,
			group,
			file.ModTime.Local().Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(r.writer, "%s\n", strings.Repeat("-", 110))
	fmt.Fprintf(r.writer, "Total: %d files, %s\n", len(files), humanize.IBytes(uint64(scanner.TotalSize(files))))
	return nil
}

// ReportStats renders the aggregate statistics of the last scan
func (r *Reporter) ReportStats(stats engine.Stats) error {
	switch r.format {
	case FormatJSON, FormatYAML:
		return r.encode(stats)
	case FormatTable, FormatSummary:
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}

	fmt.Fprintf(r.writer, "=== Storage Summary ===\n")
	if !stats.ScannedAt.IsZero() {
		fmt.Fprintf(r.writer, "Scanned:    %s\n", humanize.Time(stats.ScannedAt))
	}
	fmt.Fprintf(r.writer, "Files:      %s (%s)\n", humanize.Comma(int64(stats.TotalFiles)), humanize.IBytes(uint64(stats.TotalSize)))
	fmt.Fprintf(r.writer, "Junk:       %d files, %s\n", stats.JunkFiles, humanize.IBytes(uint64(stats.JunkSize)))
	fmt.Fprintf(r.writer, "Duplicates: %d files, %s reclaimable\n", stats.DuplicateFiles, humanize.IBytes(uint64(stats.ReclaimableDuplicateSize)))
	fmt.Fprintf(r.writer, "Large:      %d files, %s\n", stats.LargeFiles, humanize.IBytes(uint64(stats.LargeSize)))

	fmt.Fprintf(r.writer, "\nBreakdown by Category:\n")
	for _, cat := range scanner.AllCategories {
		cs, ok := stats.ByCategory[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(r.writer, "  %-9s %6d files  %10s\n", cat, cs.Files, humanize.IBytes(uint64(cs.Size)))
	}
	return nil
}

// ReportDelete renders a delete batch outcome
func (r *Reporter) ReportDelete(result cleaner.DeleteResult, undoBy time.Time) error {
	if r.format == FormatJSON || r.format == FormatYAML {
		errs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			errs = append(errs, e.Error())
		}
		return r.encode(struct {
			Moved      int       `json:"moved" yaml:"moved"`
			Failed     int       `json:"failed" yaml:"failed"`
			FreedBytes int64     `json:"freed_bytes" yaml:"freed_bytes"`
			CanUndo    bool      `json:"can_undo" yaml:"can_undo"`
			UndoBy     time.Time `json:"undo_by,omitempty" yaml:"undo_by,omitempty"`
			Errors     []string  `json:"errors" yaml:"errors"`
		}{result.Moved, result.Failed, result.FreedBytes, result.CanUndo, undoBy, errs})
	}

	fmt.Fprintf(r.writer, "Moved %d files to quarantine (%s)\n", result.Moved, humanize.IBytes(uint64(result.FreedBytes)))
	if result.Failed > 0 {
		fmt.Fprintf(r.writer, "Failed: %d files\n", result.Failed)
		fmt.Fprint(r.writer, cleaner.FormatErrorSummary(result.Errors))
	}
	if result.CanUndo && !undoBy.IsZero() {
		fmt.Fprintf(r.writer, "Run 'sweep undo' before %s to restore them.\n", undoBy.Local().Format("15:04:05"))
	}
	return nil
}

// ReportUndo renders a restore outcome
func (r *Reporter) ReportUndo(result cleaner.UndoResult) error {
	if r.format == FormatJSON || r.format == FormatYAML {
		skipped := make([]string, 0, len(result.Skipped))
		for _, e := range result.Skipped {
			skipped = append(skipped, e.Path)
		}
		return r.encode(struct {
			Restored []fileRow `json:"restored" yaml:"restored"`
			Skipped  []string  `json:"skipped" yaml:"skipped"`
		}{toRows(result.Restored), skipped})
	}

	fmt.Fprintf(r.writer, "Restored %d files\n", len(result.Restored))
	for _, e := range result.Skipped {
		fmt.Fprintf(r.writer, "  skipped %s: %s\n", e.Path, e.UserMessage())
	}
	return nil
}

// ReportHistory renders ledger entries, newest first
func (r *Reporter) ReportHistory(entries []history.Entry) error {
	if r.format == FormatJSON || r.format == FormatYAML {
		type row struct {
			TxID       string    `json:"tx_id" yaml:"tx_id"`
			Action     string    `json:"action" yaml:"action"`
			Path       string    `json:"path" yaml:"path"`
			Size       int64     `json:"size" yaml:"size"`
			Category   string    `json:"category" yaml:"category"`
			RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, row{e.TxID, string(e.Action), e.Path, e.Size, string(e.Category), e.RecordedAt})
		}
		return r.encode(rows)
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.writer, "No deletions recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(r.writer, "%-16s %-9s %10s  %s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			e.Action,
			humanize.IBytes(uint64(e.Size)),
			truncatePath(e.Path, 80))
	}
	return nil
}

// ReportTree prints directories down to maxDepth, largest first
func (r *Reporter) ReportTree(root *scanner.DirectoryNode, maxDepth int) error {
	if root == nil {
		return fmt.Errorf("no scan results yet, run 'sweep scan' first")
	}
	if r.format == FormatJSON || r.format == FormatYAML {
		return r.encode(toTreeRow(root, maxDepth))
	}

	var walk func(n *scanner.DirectoryNode, indent int)
	walk = func(n *scanner.DirectoryNode, indent int) {
		fmt.Fprintf(r.writer, "%s%-*s %10s %8d files\n",
			strings.Repeat("  ", indent), 40-2*indent, n.Name,
			humanize.IBytes(uint64(n.TotalSize)), n.TotalFiles)
		if maxDepth >= 0 && indent >= maxDepth {
			return
		}
		for _, c := range sortedChildren(n) {
			walk(c, indent+1)
		}
	}
	walk(root, 0)
	return nil
}

type treeRow struct {
	Path       string    `json:"path" yaml:"path"`
	TotalSize  int64     `json:"total_size" yaml:"total_size"`
	TotalFiles int       `json:"total_files" yaml:"total_files"`
	Children   []treeRow `json:"children,omitempty" yaml:"children,omitempty"`
}

func toTreeRow(n *scanner.DirectoryNode, depth int) treeRow {
	row := treeRow{Path: n.Path, TotalSize: n.TotalSize, TotalFiles: n.TotalFiles}
	if depth == 0 {
		return row
	}
	for _, c := range sortedChildren(n) {
		row.Children = append(row.Children, toTreeRow(c, depth-1))
	}
	return row
}

func sortedChildren(n *scanner.DirectoryNode) []*scanner.DirectoryNode {
	children := append([]*scanner.DirectoryNode(nil), n.Children...)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].TotalSize > children[j].TotalSize
	})
	return children
}

func (r *Reporter) encode(v interface{}) error {
	if r.format == FormatYAML {
		encoder := yaml.NewEncoder(r.writer)
		defer encoder.Close()
		return encoder.Encode(v)
	}
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncatePath(path string, width int) string {
	if len(path) <= width {
		return path
	}
	return "..." + path[len(path)-(width-3):]
}

// SaveToFile writes a file listing to path
func SaveToFile(title string, files []scanner.FileRecord, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return New(file, format).ReportFiles(title, files)
}
