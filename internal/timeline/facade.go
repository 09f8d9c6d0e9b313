package timeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the result of a status check.
type Status struct {
	Outcome      Outcome
	State        State
	StartDate    time.Time
	HasStartDate bool
	CurrentDay   int
	MaxReadDay   int
	Conflict     *Conflict
}

// Facade serializes status checks and conflict resolution and publishes
// state changes to subscribers.
type Facade struct {
	rec    *Reconciler
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	loaded bool
	subs   map[int]chan State
	nextID int
}

// NewFacade wraps rec. A nil logger means slog.Default().
func NewFacade(rec *Reconciler, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		rec:    rec,
		logger: logger,
		subs:   make(map[int]chan State),
	}
}

// Reconciler returns the wrapped reconciler.
func (f *Facade) Reconciler() *Reconciler { return f.rec }

// State returns the current state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe returns a channel receiving every state change and a cancel
// func. Slow subscribers miss updates rather than block the facade.
func (f *Facade) Subscribe() (<-chan State, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan State, 8)
	f.subs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}
}

// GetStatus reconciles the run dates. A call made while another check is
// in flight returns OutcomeIgnored without touching the network.
//
// Failure on the first load moves the facade to PhaseError and returns the
// error. Once loaded, failures leave data untouched and report
// OutcomeOffline with a nil error.
func (f *Facade) GetStatus(ctx context.Context) (Status, error) {
	initial, ok := f.begin()
	if !ok {
		return f.status(OutcomeIgnored), nil
	}

	outcome, err := f.rec.Reconcile(ctx)
	if err != nil {
		if initial {
			f.logger.Error("initial status check failed", "error", err)
			f.transition(State{Phase: PhaseError, Message: err.Error()}, false)
			return f.status(0), err
		}
		f.logger.Warn("status check failed, staying offline", "error", err)
		f.transition(State{Phase: PhaseIdle}, false)
		return f.status(OutcomeOffline), nil
	}
	f.transition(State{Phase: PhaseIdle}, true)
	return f.status(outcome), nil
}

// AdoptSiteDate resolves a conflict toward the server's date.
func (f *Facade) AdoptSiteDate(ctx context.Context) (Status, error) {
	return f.resolve(OutcomeAdoptedSiteDate, func() error { return f.rec.AdoptSiteDate(ctx) })
}

// KeepAppDate resolves a conflict by pushing the local date.
func (f *Facade) KeepAppDate(ctx context.Context) (Status, error) {
	return f.resolve(OutcomeStartedRun, func() error { return f.rec.KeepAppDate(ctx) })
}

// ResetProgram clears local program data and starts a new run.
func (f *Facade) ResetProgram(ctx context.Context) (Status, error) {
	return f.resolve(OutcomeStartedRun, func() error {
		_, err := f.rec.ResetProgram(ctx)
		return err
	})
}

func (f *Facade) resolve(outcome Outcome, fn func() error) (Status, error) {
	f.mu.Lock()
	if f.state.Loading() {
		f.mu.Unlock()
		return f.status(OutcomeIgnored), nil
	}
	f.setLocked(State{Phase: PhaseSynchronizingData})
	f.mu.Unlock()

	if err := fn(); err != nil {
		f.transition(State{Phase: PhaseIdle}, false)
		return f.status(0), err
	}
	f.transition(State{Phase: PhaseIdle}, true)
	return f.status(outcome), nil
}

// begin enters a loading state. initial reports whether this is the first
// load; ok is false when a check is already in flight.
func (f *Facade) begin() (initial, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Loading() {
		return false, false
	}
	initial = !f.loaded
	if initial {
		if _, has, err := f.rec.Timeline().StartDate(); err == nil && has {
			initial = false
		}
	}
	if initial {
		f.setLocked(State{Phase: PhaseLoadingInitialData})
	} else {
		f.setLocked(State{Phase: PhaseSynchronizingData})
	}
	return initial, true
}

func (f *Facade) transition(s State, loaded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if loaded {
		f.loaded = true
	}
	f.setLocked(s)
}

func (f *Facade) setLocked(s State) {
	f.state = s
	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (f *Facade) status(outcome Outcome) Status {
	st := Status{Outcome: outcome, State: f.State(), Conflict: f.rec.Conflict()}
	tl := f.rec.Timeline()
	if start, ok, err := tl.StartDate(); err == nil && ok {
		st.StartDate = start
		st.HasStartDate = true
		st.CurrentDay = tl.Calculator(start).DayOn(tl.Now())
	}
	if day, ok, err := tl.MaxReadDay(); err == nil && ok {
		st.MaxReadDay = day
	}
	return st
}
