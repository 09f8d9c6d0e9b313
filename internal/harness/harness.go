package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/fitsync/internal/engine"
	"github.com/roach88/fitsync/internal/logging"
	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
	"github.com/roach88/fitsync/internal/testutil"
)

// Harness runs a scenario against the real sync engine.
type Harness struct {
	store  *store.Store
	remote *testutil.FakeClient
	clock  *testutil.Clock
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fake server and
// a frozen clock, so the same scenario always yields the same trace.
//
// Execution flow:
// 1. Seed the store and the fake server
// 2. For each pass: advance the clock, arm failures, run Engine.Sync
// 3. Record calls, report and store contents per pass
// 4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and a logger for the engine.
// A nil logger discards engine output.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	start, err := scenario.StartTime()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewClock(start)
	remote := testutil.NewFakeClient(clock)
	h := &Harness{
		store:  st,
		remote: remote,
		clock:  clock,
		logger: logger,
		engine: engine.New(st, remote,
			engine.WithLogger(logger),
			engine.WithIDGenerator(testutil.NewSequenceGenerator("hydrated")),
		),
	}

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	result := NewResult(scenario.Name)
	for i := 0; i < scenario.PassCount(); i++ {
		var step PassStep
		if i < len(scenario.Passes) {
			step = scenario.Passes[i]
		}
		trace, err := h.runPass(ctx, scenario.Failures, step)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}
		result.Passes = append(result.Passes, trace)
	}

	actx := &AssertionContext{
		Store:  st,
		Remote: remote,
		Ctx:    ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	for _, spec := range scenario.Records {
		if err := h.store.SaveRecord(ctx, spec.toModel()); err != nil {
			return fmt.Errorf("record %s: %w", spec.ID, err)
		}
	}
	for _, spec := range scenario.Remote {
		h.remote.Seed(spec.toModel())
	}
	return nil
}

// runPass arms the failures for one pass, runs it and captures the trace.
func (h *Harness) runPass(ctx context.Context, always []string, step PassStep) (PassTrace, error) {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return PassTrace{}, err
		}
		h.clock.Advance(d)
	}

	h.remote.Recover("")
	for _, op := range append(append([]string(nil), always...), step.Fail...) {
		if op == FailAll {
			h.remote.FailAll()
			continue
		}
		h.remote.Fail(op, nil)
	}

	report, err := h.engine.Sync(ctx)
	if err != nil {
		return PassTrace{}, err
	}

	trace := PassTrace{
		Number: report.Pass,
		Calls:  []string{},
		Report: report.String(),
	}
	for _, c := range h.remote.TakeCalls() {
		trace.Calls = append(trace.Calls, c.String())
	}
	for _, f := range report.Failures {
		trace.Failures = append(trace.Failures, f.Error())
		trace.Codes = append(trace.Codes, string(f.Code))
	}

	records, err := h.store.Records(ctx)
	if err != nil {
		return PassTrace{}, fmt.Errorf("read records: %w", err)
	}
	trace.Records = make([]string, 0, len(records))
	for _, rec := range records {
		trace.Records = append(trace.Records, describeRecord(rec))
	}
	return trace, nil
}

// describeRecord renders a record for traces. Row ids and timestamps are
// left out.
func describeRecord(rec model.ProgressRecord) string {
	return fmt.Sprintf("day=%d synced=%t should_delete=%t server_known=%t %s front=%s back=%s side=%s",
		rec.Day, rec.IsSynced, rec.ShouldDelete, rec.ServerKnown, rec.Metrics,
		rec.Photo(model.SlotFront).Describe(),
		rec.Photo(model.SlotBack).Describe(),
		rec.Photo(model.SlotSide).Describe(),
	)
}
