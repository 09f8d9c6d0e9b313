package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
	"github.com/roach88/fitsync/internal/testutil"
)

var (
	t0  = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t1  = t0.Add(time.Hour)
	t2  = t0.Add(2 * time.Hour)
	now = t0.Add(24 * time.Hour)
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *store.Store
	clock  *testutil.Clock
	remote *testutil.FakeClient
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewClock(now)
	remote := testutil.NewFakeClient(clock)
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  st,
		clock:  clock,
		remote: remote,
	}
	f.engine = f.newEngine(remote)
	return f
}

func (f *fixture) newEngine(remote Remote) *Engine {
	return New(f.store, remote,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(testutil.NewSequenceGenerator("hydrated")),
	)
}

func (f *fixture) save(recs ...model.ProgressRecord) {
	f.t.Helper()
	for _, rec := range recs {
		require.NoError(f.t, f.store.SaveRecord(f.ctx, rec))
	}
}

func (f *fixture) records() []model.ProgressRecord {
	f.t.Helper()
	recs, err := f.store.Records(f.ctx)
	require.NoError(f.t, err)
	return recs
}

func (f *fixture) only() model.ProgressRecord {
	f.t.Helper()
	recs := f.records()
	require.Len(f.t, recs, 1)
	return recs[0]
}

func (f *fixture) sync() Report {
	f.t.Helper()
	report, err := f.engine.Sync(f.ctx)
	require.NoError(f.t, err)
	require.False(f.t, report.Skipped)
	return report
}

func (f *fixture) callStrings() []string {
	var out []string
	for _, c := range f.remote.TakeCalls() {
		out = append(out, c.String())
	}
	return out
}

func remoteEntry(day int, created time.Time, modified *time.Time) model.ProgressResponse {
	e := model.ProgressResponse{ID: day, CreateDate: model.FormatServerTime(created)}
	if modified != nil {
		m := model.FormatServerTime(*modified)
		e.ModifyDate = &m
	}
	return e
}

func codes(r Report) []SyncErrorCode {
	var out []SyncErrorCode
	for _, f := range r.Failures {
		out = append(out, f.Code)
	}
	return out
}

func TestSync_EmptyStoreAndServer(t *testing.T) {
	f := newFixture(t)

	report := f.sync()

	assert.Equal(t, int64(1), report.Pass)
	assert.False(t, report.Changed())
	assert.Equal(t, []string{"get_progress"}, f.callStrings())
}

func TestSync_PassNumbersIncrease(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, int64(1), f.sync().Pass)
	assert.Equal(t, int64(2), f.sync().Pass)
}

// blockingRemote parks GetProgress until release is closed.
type blockingRemote struct {
	*testutil.FakeClient
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) GetProgress(ctx context.Context) ([]model.ProgressResponse, error) {
	close(b.entered)
	<-b.release
	return b.FakeClient.GetProgress(ctx)
}

func TestSync_ConcurrentCallIsSkipped(t *testing.T) {
	f := newFixture(t)
	remote := &blockingRemote{
		FakeClient: f.remote,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	eng := f.newEngine(remote)

	done := make(chan Report)
	go func() {
		r, err := eng.Sync(f.ctx)
		assert.NoError(t, err)
		done <- r
	}()

	<-remote.entered
	assert.True(t, eng.Running())

	second, err := eng.Sync(f.ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, int64(0), second.Pass)

	close(remote.release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, int64(1), first.Pass)
	assert.False(t, eng.Running())
	assert.Len(t, f.remote.CallsFor(testutil.OpGetProgress), 1, "skipped call made no network access")
}

// mutatingRemote runs edit on the store right after a successful update.
type mutatingRemote struct {
	*testutil.FakeClient
	edit func()
}

func (m *mutatingRemote) UpdateProgress(ctx context.Context, day int, req model.ProgressRequest) (model.ProgressResponse, error) {
	resp, err := m.FakeClient.UpdateProgress(ctx, day, req)
	if err == nil {
		m.edit()
	}
	return resp, err
}

func TestSync_MutationDuringUploadStaysUnsynced(t *testing.T) {
	f := newFixture(t)
	rec := model.ProgressRecord{RowID: "r", Day: 2, LastModified: t0, ServerKnown: true,
		Metrics: model.Metrics{PullUps: model.Int(3)}}
	f.save(rec)
	f.remote.Seed(remoteEntry(2, t0, nil))

	remote := &mutatingRemote{FakeClient: f.remote}
	remote.edit = func() {
		live, err := f.store.Record(f.ctx, "r")
		require.NoError(t, err)
		require.NoError(t, live.SetMetrics(model.Metrics{PullUps: model.Int(4)}, t2))
		require.NoError(t, f.store.SaveRecord(f.ctx, live))
	}
	eng := f.newEngine(remote)

	_, err := eng.Sync(f.ctx)
	require.NoError(t, err)

	got := f.only()
	assert.False(t, got.IsSynced, "newer local edit must be pushed by the next pass")
	assert.Equal(t, 4, *got.Metrics.PullUps, "merge does not overwrite pending edits")
	assert.Equal(t, t2, got.LastModified)

	remote.edit = func() {}
	_, err = eng.Sync(f.ctx)
	require.NoError(t, err)
	got = f.only()
	assert.True(t, got.IsSynced)
	assert.Equal(t, 4, *got.Metrics.PullUps)
}

func TestSync_UploadFailureKeepsFlags(t *testing.T) {
	f := newFixture(t)
	f.save(model.ProgressRecord{RowID: "r", Day: 3, LastModified: t0,
		Metrics: model.Metrics{Squats: model.Int(10)}})
	f.remote.Fail(testutil.OpCreateProgress, nil)

	report := f.sync()

	assert.Equal(t, []SyncErrorCode{ErrCodeUpload}, codes(report))
	got := f.only()
	assert.False(t, got.IsSynced)
	assert.False(t, got.ServerKnown)
	assert.Equal(t, t0, got.LastModified)
	assert.Error(t, report.Err())
}

func TestSync_CreateThenUpdate(t *testing.T) {
	f := newFixture(t)
	f.save(model.ProgressRecord{RowID: "r", Day: 6, LastModified: t0,
		Metrics: model.Metrics{Weight: model.Float(80)}})

	f.sync()
	assert.Len(t, f.remote.CallsFor(testutil.OpCreateProgress), 1)
	got := f.only()
	assert.True(t, got.ServerKnown)
	assert.True(t, got.IsSynced)

	f.clock.Advance(time.Hour)
	require.NoError(t, got.SetMetrics(model.Metrics{Weight: model.Float(79.5)}, f.clock.Now()))
	f.save(got)
	f.remote.TakeCalls()

	f.sync()
	assert.Equal(t, []string{"update_progress day=6 uploads=-", "get_progress"}, f.callStrings())
}

func TestSync_RecordedZeroIsCreatedAndKept(t *testing.T) {
	f := newFixture(t)
	f.save(model.ProgressRecord{RowID: "r", Day: 8, LastModified: t0,
		Metrics: model.Metrics{PullUps: model.Int(0)}})

	f.sync()
	assert.Equal(t, []string{"create_progress day=8 uploads=-", "get_progress"}, f.callStrings())

	for pass := 2; pass <= 3; pass++ {
		report := f.sync()
		assert.Equal(t, []string{"get_progress"}, f.callStrings(), "pass %d", pass)
		assert.Zero(t, report.Tombstoned, "pass %d", pass)
		assert.Zero(t, report.RecordsDeleted, "pass %d", pass)
	}

	got := f.only()
	assert.True(t, got.IsSynced)
	assert.True(t, got.ServerKnown)
	assert.False(t, got.ShouldDelete)
	require.NotNil(t, got.Metrics.PullUps)
	assert.Equal(t, 0, *got.Metrics.PullUps)

	entry, ok := f.remote.Entry(8)
	require.True(t, ok)
	require.NotNil(t, entry.PullUps)
	assert.Equal(t, 0, *entry.PullUps)
}

func TestSync_ZeroedMetricIsSentAsUpdate(t *testing.T) {
	f := newFixture(t)
	seeded := remoteEntry(4, t0, nil)
	seeded.PullUps = model.Int(10)
	f.remote.Seed(seeded)
	f.save(model.ProgressRecord{RowID: "r", Day: 4, LastModified: t0, IsSynced: true, ServerKnown: true,
		Metrics: model.Metrics{PullUps: model.Int(10)}})

	f.clock.Advance(time.Hour)
	rec := f.only()
	require.NoError(t, rec.SetMetrics(model.Metrics{PullUps: model.Int(0)}, f.clock.Now()))
	f.save(rec)

	f.sync()
	assert.Equal(t, []string{"update_progress day=4 uploads=-", "get_progress"}, f.callStrings())

	entry, ok := f.remote.Entry(4)
	require.True(t, ok)
	require.NotNil(t, entry.PullUps)
	assert.Equal(t, 0, *entry.PullUps)

	f.sync()
	assert.Equal(t, []string{"get_progress"}, f.callStrings())
	got := f.only()
	assert.True(t, got.IsSynced)
	assert.Equal(t, 0, *got.Metrics.PullUps)
}

func TestSync_PhotoDeleteOnlyMarksSynced(t *testing.T) {
	f := newFixture(t)
	front := "https://cdn.test/progress/5/front.jpg"
	seeded := remoteEntry(5, t0.Add(-24*time.Hour), nil)
	seeded.PhotoFront = &front
	f.remote.Seed(seeded)

	rec := model.ProgressRecord{RowID: "r", Day: 5, LastModified: t0, ServerKnown: true}
	rec.Photos[model.SlotFront] = model.TombstonedSlot()
	f.save(rec)

	report := f.sync()

	assert.Equal(t, 1, report.MarkedSynced)
	assert.Equal(t, []string{"delete_photo day=5 slot=front", "get_progress"}, f.callStrings())
	got := f.only()
	assert.True(t, got.IsSynced)
	assert.True(t, got.Photo(model.SlotFront).IsEmpty())
}

func TestSync_EmptyUnknownRecordStaysPending(t *testing.T) {
	f := newFixture(t)
	f.save(model.ProgressRecord{RowID: "r", Day: 9, LastModified: t0})

	for i := 0; i < 2; i++ {
		report := f.sync()
		assert.Zero(t, report.MarkedSynced)
		assert.Equal(t, []string{"get_progress"}, f.callStrings())
	}

	got := f.only()
	assert.False(t, got.IsSynced)
	assert.False(t, got.ShouldDelete)
	assert.False(t, got.ServerKnown)
}

func TestSync_FetchFailureSkipsMerge(t *testing.T) {
	f := newFixture(t)
	f.save(model.ProgressRecord{RowID: "r", Day: 1, LastModified: t0, IsSynced: true, ServerKnown: true})
	f.remote.Fail(testutil.OpGetProgress, nil)

	report := f.sync()

	assert.True(t, report.MergeSkipped)
	assert.Equal(t, []SyncErrorCode{ErrCodeFetchRemote}, codes(report))
	got := f.only()
	assert.True(t, got.IsSynced, "no remote list, no soft tombstone")
	assert.False(t, got.ShouldDelete)
}

func TestSync_BadRemoteTimestampIsPerItem(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(
		model.ProgressResponse{ID: 1, CreateDate: "not a date"},
		remoteEntry(2, t0, nil),
	)

	report := f.sync()

	assert.Equal(t, []SyncErrorCode{ErrCodeRemoteShape}, codes(report))
	assert.Equal(t, 1, report.Hydrated)
	assert.Equal(t, 2, f.only().Day)
}

func TestReport_String(t *testing.T) {
	assert.Equal(t, "skipped (pass in flight)", Report{Skipped: true}.String())
	r := Report{Pass: 3, Uploaded: 2, MergeSkipped: true, Failures: []*SyncError{{Code: ErrCodeFetchRemote}}}
	assert.Equal(t, "pass 3 uploaded=2 merge skipped failures=1", r.String())
}

func TestSyncError_Format(t *testing.T) {
	err := &SyncError{Code: ErrCodeDeletePhoto, Day: 4, Slot: "back", Err: testutil.ErrInjected}
	assert.Equal(t, "DELETE_PHOTO: day 4 slot back: injected network failure", err.Error())
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.False(t, IsLocalStoreError(err))
	assert.True(t, IsLocalStoreError(&SyncError{Code: ErrCodeLocalStore, Err: io.EOF}))
}
