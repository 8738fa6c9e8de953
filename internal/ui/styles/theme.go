package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/storage-sweep/internal/scanner"
)

// Theme colors
var (
	Primary   = lipgloss.Color("#7C3AED")
	Secondary = lipgloss.Color("#A78BFA")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Danger    = lipgloss.Color("#EF4444")
	Info      = lipgloss.Color("#3B82F6")
	Muted     = lipgloss.Color("#6B7280")
	TextDim   = lipgloss.Color("#9CA3AF")
	Border    = lipgloss.Color("#4B5563")
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Width(12)

	FileSizeStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

var categoryColors = map[scanner.Category]lipgloss.Color{
	scanner.CategoryImage:    lipgloss.Color("#F472B6"),
	scanner.CategoryVideo:    lipgloss.Color("#FB923C"),
	scanner.CategoryAudio:    lipgloss.Color("#34D399"),
	scanner.CategoryDocument: Info,
	scanner.CategoryApk:      lipgloss.Color("#A3E635"),
	scanner.CategoryArchive:  Secondary,
	scanner.CategoryDownload: lipgloss.Color("#22D3EE"),
	scanner.CategoryOther:    Muted,
}

// CategoryStyle returns the label style for a category
func CategoryStyle(c scanner.Category) lipgloss.Style {
	color, ok := categoryColors[c]
	if !ok {
		color = Muted
	}
	return lipgloss.NewStyle().Foreground(color).Width(10)
}
