package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/fenilsonani/storage-sweep/internal/progress"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// LinePrinter writes scan states as plain lines, for output that is not
// a terminal. Scanning updates within the same phase are throttled.
type LinePrinter struct {
	mu        sync.Mutex
	w         io.Writer
	interval  time.Duration
	startTime time.Time
	lastPhase progress.Phase
	lastKind  progress.Kind
	lastPrint time.Time
	now       func() time.Time
}

// NewLinePrinter creates a printer that emits at most one line per
// interval for a phase
func NewLinePrinter(w io.Writer, interval time.Duration) *LinePrinter {
	return &LinePrinter{
		w:         w,
		interval:  interval,
		startTime: time.Now(),
		lastKind:  progress.StateIdle,
		now:       time.Now,
	}
}

// Print writes s unless it is a scanning update in the same phase as the
// previous line and arrived within the throttle interval
func (lp *LinePrinter) Print(s progress.ScanState) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	if s.Kind == progress.StateScanning && lp.lastKind == progress.StateScanning &&
		s.Phase == lp.lastPhase && now.Sub(lp.lastPrint) < lp.interval {
		return
	}

	lp.lastKind = s.Kind
	lp.lastPhase = s.Phase
	lp.lastPrint = now
	fmt.Fprintln(lp.w, progress.FormatScanState(s, lp.startTime))
}

// Consume prints every state from states until the channel closes and
// returns the last state received
func (lp *LinePrinter) Consume(states <-chan progress.ScanState) progress.ScanState {
	last := progress.Idle()
	for s := range states {
		lp.Print(s)
		last = s
	}
	return last
}
