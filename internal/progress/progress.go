package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Reporter holds the current ScanState and fans updates out to subscribers.
// Publishing never blocks; a subscriber that falls behind misses updates.
type Reporter struct {
	current   ScanState
	mu        sync.RWMutex
	listeners []chan ScanState
}

// NewReporter creates a reporter in the idle state
func NewReporter() *Reporter {
	return &Reporter{
		current:   Idle(),
		listeners: make([]chan ScanState, 0),
	}
}

// Subscribe returns a channel that receives state updates
func (r *Reporter) Subscribe() <-chan ScanState {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan ScanState, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan ScanState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Publish records s as the current state and notifies listeners. It
// returns false, without publishing, when s cannot follow the current state.
func (r *Reporter) Publish(s ScanState) bool {
	r.mu.Lock()
	if !CanTransition(r.current, s) {
		r.mu.Unlock()
		return false
	}
	r.current = s
	listeners := make([]chan ScanState, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, listener := range listeners {
		select {
		case listener <- s:
		default:
			// Skip if channel is full
		}
	}
	return true
}

// Current returns the latest published state
func (r *Reporter) Current() ScanState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Stream is the update channel of a single scan. Intermediate updates are
// dropped when the reader is slow; the terminal state is always delivered
// and the channel is closed after it.
type Stream struct {
	ch     chan ScanState
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

// NewStream creates a stream with the given buffer size
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{ch: make(chan ScanState, buffer)}
}

// C returns the receive side of the stream
func (s *Stream) C() <-chan ScanState {
	return s.ch
}

// Send delivers s if there is room
func (s *Stream) Send(state ScanState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- state:
	default:
	}
}

// Finish delivers the terminal state, evicting the oldest buffered update
// if needed, and closes the stream. Later calls are no-ops.
func (s *Stream) Finish(state ScanState) {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for {
			select {
			case s.ch <- state:
				s.closed = true
				close(s.ch)
				return
			default:
			}
			select {
			case <-s.ch:
			default:
			}
		}
	})
}

// FormatScanState returns a human-readable progress line
func FormatScanState(s ScanState, started time.Time) string {
	elapsed := FormatDuration(time.Since(started))

	switch s.Kind {
	case StateIdle:
		return "Idle"
	case StateScanning:
		if s.Phase == PhaseDuplicates && s.Total > 0 {
			return fmt.Sprintf("Checking duplicates... %d/%d candidates [%s]", s.Done, s.Total, elapsed)
		}
		return fmt.Sprintf("%s... %s files [%s]", phaseTitle(s.Phase), humanize.Comma(int64(s.FilesFound)), elapsed)
	case StateDone:
		return fmt.Sprintf("Scan complete: %s files in %s", humanize.Comma(int64(s.FilesFound)), elapsed)
	case StateCancelled:
		return "Scan cancelled"
	case StateError:
		return fmt.Sprintf("Scan error: %s", s.Message)
	default:
		return "Scanning..."
	}
}

func phaseTitle(p Phase) string {
	switch p {
	case PhaseIndexing:
		return "Indexing"
	case PhaseDuplicates:
		return "Checking duplicates"
	case PhaseAnalyzing:
		return "Analyzing"
	case PhaseJunk:
		return "Finding junk"
	default:
		return "Scanning"
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
