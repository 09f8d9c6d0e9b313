package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/fitsync/internal/model"
)

// RecordStore is the local replica the engine reads and writes.
// Implemented by store.Store.
type RecordStore interface {
	Records(ctx context.Context) ([]model.ProgressRecord, error)
	Record(ctx context.Context, rowID string) (model.ProgressRecord, error)
	SaveRecord(ctx context.Context, rec model.ProgressRecord) error
	DeleteRecord(ctx context.Context, rowID string) error
}

// Remote is the subset of the API client the engine calls.
// Implemented by client.HTTPClient. Day arguments are server day numbers.
type Remote interface {
	GetProgress(ctx context.Context) ([]model.ProgressResponse, error)
	CreateProgress(ctx context.Context, req model.ProgressRequest) (model.ProgressResponse, error)
	UpdateProgress(ctx context.Context, day int, req model.ProgressRequest) (model.ProgressResponse, error)
	DeleteProgress(ctx context.Context, day int) error
	DeletePhoto(ctx context.Context, day int, slot string) error
}

// Engine synchronizes progress records with the server.
//
// Thread-safety model:
//   - Sync(): safe from any goroutine; overlapping calls are skipped
//   - all store writes happen on the goroutine running the pass
type Engine struct {
	store  RecordStore
	remote Remote
	ids    IDGenerator
	logger *slog.Logger
	passes *PassCounter

	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator sets the generator for hydrated record ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithPassCounter sets the pass numbering, e.g. to resume from a persisted
// count. Default: numbering starts at 1.
func WithPassCounter(c *PassCounter) Option {
	return func(e *Engine) {
		if c != nil {
			e.passes = c
		}
	}
}

// New creates an Engine over a local store and a remote.
func New(store RecordStore, remote Remote, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		remote: remote,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
		passes: NewPassCounterAt(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a pass is in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Sync runs one sync pass.
//
// If a pass is already running the call returns Report{Skipped: true} and
// a nil error. Network failures never make Sync fail; they are collected in
// Report.Failures. An error is returned only when the local store cannot be
// read, in which case the pass stops where it is.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug("sync pass already in flight, skipping")
		return Report{Skipped: true}, nil
	}
	defer e.running.Store(false)

	p := &pass{
		Engine: e,
		report: Report{Pass: e.passes.Next()},
	}
	p.logger = e.logger.With("pass", p.report.Pass)

	if err := p.run(ctx); err != nil {
		p.logger.Error("sync pass aborted", "error", err)
		return p.report, err
	}

	p.logger.Info("sync pass complete", "summary", p.report.String())
	return p.report, nil
}

// pass holds the state of one Sync call.
type pass struct {
	*Engine
	logger *slog.Logger
	report Report

	// syncedAtStart holds row ids that were synced when the pass began,
	// after duplicate cleanup.
	syncedAtStart map[string]bool
}

func (p *pass) run(ctx context.Context) error {
	if err := p.removeDuplicates(ctx); err != nil {
		return err
	}

	records, err := p.store.Records(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	p.syncedAtStart = make(map[string]bool, len(records))
	var snapshots []model.Snapshot
	for _, rec := range records {
		if rec.IsSynced {
			p.syncedAtStart[rec.RowID] = true
		}
		if rec.NeedsSync() {
			snapshots = append(snapshots, model.TakeSnapshot(rec))
		}
	}
	p.logger.Debug("snapshots collected", "records", len(records), "snapshots", len(snapshots))

	remaining := p.deleteRecords(ctx, snapshots)
	outcomes := p.deletePhotos(ctx, remaining)
	p.upload(ctx, remaining, outcomes)

	return p.merge(ctx)
}

func (p *pass) fail(code SyncErrorCode, day int, slot, rowID string, err error) {
	se := &SyncError{Code: code, Day: day, Slot: slot, RowID: rowID, Err: err}
	p.report.Failures = append(p.report.Failures, se)
	p.logger.Warn("sync step failed", "code", string(code), "day", day, "slot", slot, "error", err)
}
