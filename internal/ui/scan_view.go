package ui

import (
	"os"
	"strings"
	"time"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/storage-sweep/internal/progress"
	"github.com/fenilsonani/storage-sweep/internal/ui/styles"
)

type stateMsg progress.ScanState

type streamClosedMsg struct{}

// ScanModel shows a running scan: a spinner with the current phase and,
// while duplicates are checked, a progress bar over the candidates.
type ScanModel struct {
	states     <-chan progress.ScanState
	cancel     func()
	spinner    spinner.Model
	bar        bar.Model
	state      progress.ScanState
	started    time.Time
	cancelling bool
	done       bool
}

// NewScanModel renders states until the terminal one arrives. cancel is
// called once when the user presses q or ctrl+c.
func NewScanModel(states <-chan progress.ScanState, cancel func()) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	return ScanModel{
		states:  states,
		cancel:  cancel,
		spinner: s,
		bar:     bar.New(bar.WithDefaultGradient(), bar.WithWidth(40)),
		state:   progress.Scanning(progress.PhaseIndexing, 0),
		started: time.Now(),
	}
}

// Init starts the spinner and waits for the first update
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.states))
}

func waitForState(ch <-chan progress.ScanState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return stateMsg(s)
	}
}

// Update handles messages
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = progress.ScanState(msg)
		if m.state.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForState(m.states)

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the current state
func (m ScanModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Scanning storage"))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(progress.FormatScanState(m.state, m.started))
	b.WriteString("\n")

	if m.state.Phase == progress.PhaseDuplicates && m.state.Total > 0 {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(float64(m.state.Done) / float64(m.state.Total)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.cancelling {
		b.WriteString(styles.WarningStyle.Render("Cancelling..."))
	} else {
		b.WriteString(styles.HelpStyle.Render("q: cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// State returns the last state the model received
func (m ScanModel) State() progress.ScanState {
	return m.state
}

// RunScanProgress shows states on stderr until the scan ends and returns
// the last state received. Closing the program early cancels the scan.
func RunScanProgress(states <-chan progress.ScanState, cancel func()) (progress.ScanState, error) {
	p := tea.NewProgram(NewScanModel(states, cancel), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return progress.ScanState{}, err
	}
	return final.(ScanModel).State(), nil
}
