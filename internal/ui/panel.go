package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/fenilsonani/storage-sweep/internal/engine"
	"github.com/fenilsonani/storage-sweep/internal/scanner"
	"github.com/fenilsonani/storage-sweep/internal/ui/styles"
)

// RenderStats draws the storage summary panel
func RenderStats(s engine.Stats) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Storage summary"))
	b.WriteString("\n\n")

	row := func(label string, files int, size int64) {
		b.WriteString(styles.LabelStyle.Render(label))
		b.WriteString(fmt.Sprintf("%8s files  ", humanize.Comma(int64(files))))
		b.WriteString(styles.FileSizeStyle.Render(humanize.IBytes(uint64(size))))
		b.WriteString("\n")
	}

	row("Total", s.TotalFiles, s.TotalSize)
	row("Duplicates", s.DuplicateFiles, s.DuplicateSize)
	row("Large", s.LargeFiles, s.LargeSize)
	row("Junk", s.JunkFiles, s.JunkSize)

	if s.ReclaimableDuplicateSize > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SuccessStyle.Render(
			fmt.Sprintf("%s reclaimable from duplicates", humanize.IBytes(uint64(s.ReclaimableDuplicateSize)))))
		b.WriteString("\n")
	}

	var cats []string
	for _, c := range scanner.AllCategories {
		cs, ok := s.ByCategory[c]
		if !ok || cs.Files == 0 {
			continue
		}
		cats = append(cats, lipgloss.JoinHorizontal(lipgloss.Top,
			styles.CategoryStyle(c).Render(string(c)),
			fmt.Sprintf("%8s  %s", humanize.Comma(int64(cs.Files)), humanize.IBytes(uint64(cs.Size))),
		))
	}
	if len(cats) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(cats, "\n"))
		b.WriteString("\n")
	}

	if !s.ScannedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render("Scanned " + humanize.Time(s.ScannedAt)))
	}

	return styles.PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}
