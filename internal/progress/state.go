package progress

import "fmt"

// Kind is the top-level scan state
type Kind int

const (
	StateIdle Kind = iota
	StateScanning
	StateDone
	StateCancelled
	StateError
)

// String returns the state name
func (k Kind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Phase is the step of a running scan. Phases run strictly in order.
type Phase int

const (
	PhaseIndexing Phase = iota
	PhaseDuplicates
	PhaseAnalyzing
	PhaseJunk
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseIndexing:
		return "indexing"
	case PhaseDuplicates:
		return "duplicates"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseJunk:
		return "junk"
	default:
		return "unknown"
	}
}

// ScanState is one observable state of the engine. Phase, FilesFound,
// Done and Total are meaningful while scanning; Message only for errors.
type ScanState struct {
	Kind       Kind
	Phase      Phase
	FilesFound int
	Done       int // candidates hashed so far in the duplicates phase
	Total      int
	Message    string
}

// Idle is the state before the first scan
func Idle() ScanState { return ScanState{Kind: StateIdle} }

// Scanning builds a scanning state for phase
func Scanning(phase Phase, filesFound int) ScanState {
	return ScanState{Kind: StateScanning, Phase: phase, FilesFound: filesFound}
}

// Done is the state after a completed scan
func Done(filesFound int) ScanState { return ScanState{Kind: StateDone, FilesFound: filesFound} }

// Cancelled is the state after a cancelled scan
func Cancelled() ScanState { return ScanState{Kind: StateCancelled} }

// Failed is the error state
func Failed(err error) ScanState { return ScanState{Kind: StateError, Message: err.Error()} }

// Terminal reports whether no further updates follow this state within a scan
func (s ScanState) Terminal() bool {
	return s.Kind == StateDone || s.Kind == StateCancelled || s.Kind == StateError
}

// String returns a short description
func (s ScanState) String() string {
	switch s.Kind {
	case StateScanning:
		return fmt.Sprintf("scanning(%s, %d files)", s.Phase, s.FilesFound)
	case StateError:
		return fmt.Sprintf("error(%s)", s.Message)
	default:
		return s.Kind.String()
	}
}

// CanTransition reports whether to may follow from. A new scan starts at
// indexing from any non-scanning state; phases only move forward; a scan
// ends in done after the junk phase, or in cancelled or error from any phase.
func CanTransition(from, to ScanState) bool {
	switch from.Kind {
	case StateIdle, StateDone, StateCancelled, StateError:
		return to.Kind == StateScanning && to.Phase == PhaseIndexing
	case StateScanning:
		switch to.Kind {
		case StateScanning:
			return to.Phase == from.Phase || to.Phase == from.Phase+1
		case StateDone:
			return from.Phase == PhaseJunk
		case StateCancelled, StateError:
			return true
		}
	}
	return false
}
