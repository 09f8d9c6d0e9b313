package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/fitsync/internal/model"
)

// ErrNoConflict is returned when a resolution is requested with no
// pending conflict.
var ErrNoConflict = errors.New("no run date conflict to resolve")

// Remote is the subset of the API client the reconciler calls.
type Remote interface {
	StartRun(ctx context.Context, date *string) (model.RunResponse, error)
	GetCurrentRun(ctx context.Context) (model.RunResponse, error)
}

// ProgramStore clears the local program data on reset.
type ProgramStore interface {
	ClearProgram(ctx context.Context) error
}

// Syncer is one sub-sync run once the run dates agree.
type Syncer interface {
	Name() string
	Sync(ctx context.Context) error
}

// SyncFunc adapts a function to Syncer.
type SyncFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name implements Syncer.
func (s SyncFunc) Name() string { return s.Label }

// Sync implements Syncer.
func (s SyncFunc) Sync(ctx context.Context) error { return s.Fn(ctx) }

// Reconciler decides how the local run relates to the server's run.
type Reconciler struct {
	remote   Remote
	timeline *Timeline
	program  ProgramStore
	syncers  []Syncer
	logger   *slog.Logger

	mu       sync.Mutex
	conflict *Conflict
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithSyncers registers sub-syncs, run in order.
func WithSyncers(s ...Syncer) ReconcilerOption {
	return func(r *Reconciler) {
		r.syncers = append(r.syncers, s...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReconciler creates a Reconciler.
func NewReconciler(remote Remote, tl *Timeline, program ProgramStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		remote:   remote,
		timeline: tl,
		program:  program,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeline returns the persisted run state.
func (r *Reconciler) Timeline() *Timeline { return r.timeline }

// Conflict returns the pending conflict, or nil.
func (r *Reconciler) Conflict() *Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflict
}

func (r *Reconciler) setConflict(c *Conflict) {
	r.mu.Lock()
	r.conflict = c
	r.mu.Unlock()
}

// Reconcile queries the server's current run and acts on the decision
// table:
//
//	local  server  action
//	-      -       start a run at now
//	yes    -       push the local date
//	-      yes     adopt the server date
//	same day       nothing
//	different days conflict (sub-syncs do not run)
//
// Sub-syncs run after every outcome except a conflict. Only the initial
// query can fail; StartNewRun falls back to local dates.
func (r *Reconciler) Reconcile(ctx context.Context) (Outcome, error) {
	run, err := r.remote.GetCurrentRun(ctx)
	if err != nil {
		return 0, fmt.Errorf("get current run: %w", err)
	}
	r.recordMaxReadDay(run)

	local, hasLocal, err := r.timeline.StartDate()
	if err != nil {
		r.logger.Warn("unreadable local start date, treating as absent", "error", err)
		hasLocal = false
	}
	site, hasSite, err := run.StartDate(r.timeline.Location())
	if err != nil {
		r.logger.Warn("unreadable server start date, treating as absent", "error", err)
		hasSite = false
	}

	var outcome Outcome
	switch {
	case !hasLocal && !hasSite:
		now := r.timeline.Now()
		r.StartNewRun(ctx, &now)
		outcome = OutcomeStartedRun
	case hasLocal && !hasSite:
		r.StartNewRun(ctx, &local)
		outcome = OutcomeStartedRun
	case !hasLocal && hasSite:
		if err := r.syncWithSiteDate(site); err != nil {
			return 0, err
		}
		outcome = OutcomeAdoptedSiteDate
	case SameDay(local, site, r.timeline.Location()):
		outcome = OutcomeInSync
	default:
		c := &Conflict{App: r.timeline.Calculator(local), Site: r.timeline.Calculator(site)}
		r.setConflict(c)
		r.logger.Info("run start dates disagree",
			"app_start", local.Format(time.DateOnly), "site_start", site.Format(time.DateOnly))
		return OutcomeConflict, nil
	}

	r.setConflict(nil)
	r.runSubSyncs(ctx)
	return outcome, nil
}

// StartNewRun asks the server to open a run and persists
// server date ?? appDate ?? now as the start date. It succeeds locally even
// when the network call fails.
func (r *Reconciler) StartNewRun(ctx context.Context, appDate *time.Time) time.Time {
	chosen := r.timeline.Now()
	var arg *string
	if appDate != nil {
		chosen = *appDate
		s := model.FormatServerTime(*appDate)
		arg = &s
	}

	run, err := r.remote.StartRun(ctx, arg)
	if err != nil {
		r.logger.Warn("start run failed, keeping local date", "error", err)
	} else {
		r.recordMaxReadDay(run)
		site, ok, err := run.StartDate(r.timeline.Location())
		switch {
		case err != nil:
			r.logger.Warn("unreadable start run date, keeping local date", "error", err)
		case ok:
			chosen = site
		}
	}

	if err := r.timeline.SetStartDate(chosen); err != nil {
		r.logger.Error("persist start date failed", "error", err)
	}
	r.logger.Info("run started", "start", chosen.Format(time.DateOnly))
	return chosen
}

// AdoptSiteDate resolves the pending conflict toward the server's date and
// runs the sub-syncs.
func (r *Reconciler) AdoptSiteDate(ctx context.Context) error {
	c := r.Conflict()
	if c == nil {
		return ErrNoConflict
	}
	if err := r.syncWithSiteDate(c.Site.Start); err != nil {
		return err
	}
	r.setConflict(nil)
	r.runSubSyncs(ctx)
	return nil
}

// KeepAppDate resolves the pending conflict by pushing the local date to
// the server and runs the sub-syncs. The server may still answer with its
// own date, which then wins.
func (r *Reconciler) KeepAppDate(ctx context.Context) error {
	c := r.Conflict()
	if c == nil {
		return ErrNoConflict
	}
	start := c.App.Start
	r.StartNewRun(ctx, &start)
	r.setConflict(nil)
	r.runSubSyncs(ctx)
	return nil
}

// ResetProgram deletes all progress and journal records, keeps custom
// exercises, and starts a new run.
func (r *Reconciler) ResetProgram(ctx context.Context) (time.Time, error) {
	if err := r.program.ClearProgram(ctx); err != nil {
		return time.Time{}, fmt.Errorf("reset program: %w", err)
	}
	r.setConflict(nil)
	return r.StartNewRun(ctx, nil), nil
}

// SetCurrentDayForDebug moves the start date so that today is day. Days
// outside 1..100 are rejected without any change.
func (r *Reconciler) SetCurrentDayForDebug(day int) bool {
	if day < 1 || day > model.ProgramDays {
		return false
	}
	start := StartOfDay(r.timeline.Now(), r.timeline.Location()).AddDate(0, 0, -(day - 1))
	if err := r.timeline.SetStartDate(start); err != nil {
		r.logger.Error("persist debug start date failed", "error", err)
		return false
	}
	return true
}

// CurrentDay returns today's program day.
func (r *Reconciler) CurrentDay() (int, bool) {
	return r.timeline.CurrentDay()
}

// Logout clears the persisted run state and any pending conflict.
func (r *Reconciler) Logout() error {
	r.setConflict(nil)
	return r.timeline.Clear()
}

func (r *Reconciler) syncWithSiteDate(site time.Time) error {
	if err := r.timeline.SetStartDate(site); err != nil {
		return fmt.Errorf("adopt site date: %w", err)
	}
	r.logger.Info("adopted server start date", "start", site.Format(time.DateOnly))
	return nil
}

func (r *Reconciler) recordMaxReadDay(run model.RunResponse) {
	if run.MaxForAllRunsDay == nil {
		return
	}
	if err := r.timeline.SetMaxReadDay(*run.MaxForAllRunsDay); err != nil {
		r.logger.Warn("persist max read day failed", "error", err)
	}
}

// runSubSyncs runs every syncer in order. Failures are logged only.
func (r *Reconciler) runSubSyncs(ctx context.Context) {
	for _, s := range r.syncers {
		if err := s.Sync(ctx); err != nil {
			r.logger.Warn("sub-sync failed", "syncer", s.Name(), "error", err)
		}
	}
}
