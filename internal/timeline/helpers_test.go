package timeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/prefs"
	"github.com/roach88/fitsync/internal/testutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openPrefs(t *testing.T) *prefs.BoltStore {
	t.Helper()
	p, err := prefs.OpenBolt(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

type countingSyncer struct {
	mu    sync.Mutex
	name  string
	calls int
	err   error
}

func (s *countingSyncer) Name() string { return s.name }

func (s *countingSyncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *countingSyncer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeProgram struct {
	cleared int
	err     error
}

func (p *fakeProgram) ClearProgram(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}
	p.cleared++
	return nil
}

type fixture struct {
	clock    *testutil.Clock
	remote   *testutil.FakeClient
	prefs    *prefs.BoltStore
	timeline *Timeline
	program  *fakeProgram
	syncer   *countingSyncer
	rec      *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(now)
	f := &fixture{
		clock:   clock,
		remote:  testutil.NewFakeClient(clock),
		prefs:   openPrefs(t),
		program: &fakeProgram{},
		syncer:  &countingSyncer{name: "progress"},
	}
	f.timeline = New(f.prefs, clock, time.UTC)
	f.rec = NewReconciler(f.remote, f.timeline, f.program,
		WithSyncers(f.syncer), WithLogger(discardLogger()))
	return f
}

func (f *fixture) setLocalStart(t *testing.T, start time.Time) {
	t.Helper()
	require.NoError(t, f.timeline.SetStartDate(start))
}

func (f *fixture) setSiteStart(start time.Time) {
	d := model.FormatServerTime(start)
	run := f.remote.Run()
	run.Date = &d
	f.remote.SetRun(run)
}

func (f *fixture) localStart(t *testing.T) time.Time {
	t.Helper()
	start, ok, err := f.timeline.StartDate()
	require.NoError(t, err)
	require.True(t, ok, "expected a persisted start date")
	return start
}

// blockingRemote holds GetCurrentRun until release is closed.
type blockingRemote struct {
	Remote
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingRemote(inner Remote) *blockingRemote {
	return &blockingRemote{
		Remote:  inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingRemote) GetCurrentRun(ctx context.Context) (model.RunResponse, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.Remote.GetCurrentRun(ctx)
}

var errBoom = errors.New("boom")

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
