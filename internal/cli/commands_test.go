package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/testutil"
)

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	resp := CLIResponse{Data: data}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func callOps(calls []testutil.Call) []string {
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func TestStatus_StartsRunWhenNeitherSideHasOne(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "status")
	require.NoError(t, err)

	assert.Contains(t, out, "started a run")
	assert.Contains(t, out, "2026-03-10")
	assert.Equal(t,
		[]string{testutil.OpGetCurrentRun, testutil.OpStartRun, testutil.OpGetProgress},
		callOps(env.remote.Calls()))
}

func TestStatus_ConflictThenResolveSite(t *testing.T) {
	env := newTestEnv(t)
	siteDate := "2026-03-01"
	env.remote.SetRun(model.RunResponse{Date: &siteDate})

	_, err := env.run(t, "debug-day", "5")
	require.NoError(t, err)

	out, err := env.run(t, "--format", "json", "status")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var view StatusView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "conflict", view.Outcome)
	require.NotNil(t, view.Conflict)
	assert.Equal(t, ConflictView{AppStart: "2026-03-06", AppDay: 5, SiteStart: "2026-03-01", SiteDay: 10}, *view.Conflict)
	assert.NotContains(t, callOps(env.remote.Calls()), testutil.OpGetProgress, "no sync while dates disagree")

	out, err = env.run(t, "--format", "json", "resolve", "--use", "site")
	require.NoError(t, err)

	view = StatusView{}
	decodeResponse(t, out, &view)
	assert.Equal(t, "adopted_site_date", view.Outcome)
	assert.Equal(t, "2026-03-01", view.StartDate)
	assert.Equal(t, 10, view.CurrentDay)
	assert.Nil(t, view.Conflict)
}

func TestResolve_KeepAppPushesLocalDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "debug-day", "3")
	require.NoError(t, err)
	// The server opened its run on another day.
	siteDate := "2026-02-20"
	env.remote.SetRun(model.RunResponse{Date: &siteDate})

	out, err := env.run(t, "resolve", "--use", "app")
	require.NoError(t, err)
	assert.Contains(t, out, "Start date")

	starts := env.remote.CallsFor(testutil.OpStartRun)
	require.Len(t, starts, 1)
	assert.True(t, strings.HasPrefix(starts[0].Date, "2026-03-08"), starts[0].Date)
}

func TestResolve_InvalidUse(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "resolve", "--use", "both")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, env.remote.Calls())
}

func TestReset_RequiresYes(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "reset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--yes")
}

func TestReset_ClearsRecordsAndStartsRun(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "record", "set", "4", "--squats", "20")
	require.NoError(t, err)

	out, err := env.run(t, "--format", "json", "reset", "--yes")
	require.NoError(t, err)
	var view StatusView
	decodeResponse(t, out, &view)
	assert.Equal(t, "started_run", view.Outcome)
	assert.Equal(t, 1, view.CurrentDay)

	out, err = env.run(t, "record", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No records.")
}

func TestRecordSetAndSync(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "record", "set", "3", "--squats", "40", "--weight", "81.5")
	require.NoError(t, err)
	assert.Contains(t, out, "day 3: pullups=- pushups=- squats=40 weight=81.5")
	assert.Contains(t, out, "(pending sync)")

	env.clock.Advance(time.Minute)
	out, err = env.run(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pass 1")
	assert.Contains(t, out, "uploaded=1")

	entry, ok := env.remote.Entry(3)
	require.True(t, ok)
	assert.Equal(t, "pullups=- pushups=- squats=40 weight=81.5", entry.Metrics().String())

	out, err = env.run(t, "--format", "json", "record", "list")
	require.NoError(t, err)
	var views []RecordView
	decodeResponse(t, out, &views)
	require.Len(t, views, 1)
	assert.Equal(t, 3, views[0].Day)
	assert.True(t, views[0].Synced)
	assert.True(t, views[0].ServerKnown)
}

func TestSync_FailuresExitOne(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "record", "set", "3", "--pullups", "5")
	require.NoError(t, err)
	env.remote.FailAll()

	out, err := env.run(t, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ pass 1")
	assert.Contains(t, out, "UPLOAD: day 3: injected network failure")
	assert.Contains(t, out, "FETCH_REMOTE: injected network failure")
}

func TestSync_JSONReport(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.ProgressResponse{ID: 7, PullUps: model.Int(9), CreateDate: "2026-03-07T08:00:00Z"})

	out, err := env.run(t, "--format", "json", "sync")
	require.NoError(t, err)

	var view SyncView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), view.Pass)
	assert.Equal(t, 1, view.Hydrated)
	assert.Empty(t, view.Failures)
}

func TestSync_WithoutAPIConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("FITSYNC_API_BASE_URL", "")
	t.Setenv("FITSYNC_API_TOKEN", "")

	_, err := env.runWith(t, &RootOptions{Clock: env.clock}, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "API not configured")
}

func TestRecordPhotoUnphotoDelete(t *testing.T) {
	env := newTestEnv(t)
	photo := filepath.Join(env.dir, "front.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o600))

	out, err := env.run(t, "--format", "json", "record", "photo", "2", "front", photo)
	require.NoError(t, err)
	var view RecordView
	decodeResponse(t, out, &view)
	assert.Equal(t, "bytes", view.Photos["front"])
	assert.Equal(t, "empty", view.Photos["back"])

	// A photo that never reached the server is dropped, not tombstoned.
	out, err = env.run(t, "--format", "json", "record", "unphoto", "2", "front")
	require.NoError(t, err)
	view = RecordView{}
	decodeResponse(t, out, &view)
	assert.Equal(t, "empty", view.Photos["front"])

	out, err = env.run(t, "--format", "json", "record", "delete", "2")
	require.NoError(t, err)
	view = RecordView{}
	decodeResponse(t, out, &view)
	assert.True(t, view.ShouldDelete)
	assert.False(t, view.Synced)
}

func TestRecord_ArgumentErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"day out of range", []string{"record", "set", "101", "--squats", "1"}, "must be between 1 and 100"},
		{"day not a number", []string{"record", "delete", "x"}, "invalid day"},
		{"no metric flags", []string{"record", "set", "3"}, "nothing to set"},
		{"unknown slot", []string{"record", "unphoto", "3", "top"}, "unknown photo slot"},
		{"missing record", []string{"record", "delete", "7"}, "no record for day 7"},
		{"missing photo file", []string{"record", "photo", "3", "side", "/nonexistent.jpg"}, "failed to read photo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDebugDayAndLogout(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "debug-day", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Today is day 42")

	_, err = env.run(t, "debug-day", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = env.run(t, "--format", "json", "logout")
	require.NoError(t, err)
	var payload map[string]bool
	decodeResponse(t, out, &payload)
	assert.True(t, payload["logged_out"])

	// With the run state gone the next status check starts a new run.
	out, err = env.run(t, "--format", "json", "status")
	require.NoError(t, err)
	var view StatusView
	decodeResponse(t, out, &view)
	assert.Equal(t, "started_run", view.Outcome)
	assert.Equal(t, 1, view.CurrentDay)
}

func TestServe_CompanionCommands(t *testing.T) {
	env := newTestEnv(t)
	opts := &RootOptions{Remote: env.remote, Clock: env.clock, ConfigFile: env.config, Format: "text"}

	app, err := openApp(opts, io.Discard)
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&bytes.Buffer{})

	addrs := make(chan string, 1)
	serveOpts := &ServeOptions{
		RootOptions:   opts,
		Listen:        "127.0.0.1:0",
		FlushInterval: time.Hour,
		ready:         func(addr string) { addrs <- addr },
	}
	done := make(chan error, 1)
	go func() { done <- runServe(cmd, serveOpts, app) }()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}
	base := "http://" + addr

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/commands", "application/json", strings.NewReader(`{"type":"set_day","day":4}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"type":"day_state"`)
	assert.Contains(t, string(body), `"day":4`)

	day, ok := app.Reconciler.CurrentDay()
	require.True(t, ok)
	assert.Equal(t, 4, day)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
