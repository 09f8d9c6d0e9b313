package timeline

import "fmt"

// Phase is the facade's state tag.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingInitialData
	PhaseSynchronizingData
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingInitialData:
		return "loading_initial_data"
	case PhaseSynchronizingData:
		return "synchronizing_data"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the observable facade state. Message is set only for PhaseError.
type State struct {
	Phase   Phase
	Message string
}

// Loading reports whether a status check is in flight.
func (s State) Loading() bool {
	return s.Phase == PhaseLoadingInitialData || s.Phase == PhaseSynchronizingData
}

func (s State) String() string {
	if s.Phase == PhaseError {
		return "error: " + s.Message
	}
	return s.Phase.String()
}

// Outcome says what a status check or resolution did.
type Outcome int

const (
	// OutcomeInSync: local and server dates agreed; sub-syncs ran.
	OutcomeInSync Outcome = iota + 1
	// OutcomeStartedRun: a run was started or the local date pushed; sub-syncs ran.
	OutcomeStartedRun
	// OutcomeAdoptedSiteDate: the server's date was adopted; sub-syncs ran.
	OutcomeAdoptedSiteDate
	// OutcomeConflict: the dates disagree; nothing else ran.
	OutcomeConflict
	// OutcomeIgnored: another status check was in flight.
	OutcomeIgnored
	// OutcomeOffline: the server was unreachable after a previous load.
	OutcomeOffline
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInSync:
		return "in_sync"
	case OutcomeStartedRun:
		return "started_run"
	case OutcomeAdoptedSiteDate:
		return "adopted_site_date"
	case OutcomeConflict:
		return "conflict"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeOffline:
		return "offline"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
