package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/fitsync/internal/model"
)

// Operation names recorded by FakeClient.
const (
	OpGetProgress    = "get_progress"
	OpGetProgressDay = "get_progress_day"
	OpCreateProgress = "create_progress"
	OpUpdateProgress = "update_progress"
	OpDeleteProgress = "delete_progress"
	OpDeletePhoto    = "delete_photo"
	OpStartRun       = "start_run"
	OpGetCurrentRun  = "get_current_run"
)

// AllOps lists every operation, for failing everything at once.
var AllOps = []string{
	OpGetProgress, OpGetProgressDay, OpCreateProgress, OpUpdateProgress,
	OpDeleteProgress, OpDeletePhoto, OpStartRun, OpGetCurrentRun,
}

// ErrInjected is the default error returned by failing operations.
var ErrInjected = errors.New("injected network failure")

// ErrNotFound is returned for days the fake server does not hold.
var ErrNotFound = errors.New("not found")

// Call is one recorded client invocation.
type Call struct {
	Op      string
	Day     int
	Slot    string
	Date    string
	Uploads []string
	Files   map[string][]byte
	Metrics model.Metrics
}

// String renders the call for traces, e.g.
// "update_progress day=1 uploads=photo_back".
func (c Call) String() string {
	var b strings.Builder
	b.WriteString(c.Op)
	if c.Day != 0 {
		fmt.Fprintf(&b, " day=%d", c.Day)
	}
	if c.Slot != "" {
		fmt.Fprintf(&b, " slot=%s", c.Slot)
	}
	if c.Op == OpStartRun {
		date := c.Date
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(&b, " date=%s", date)
	}
	if c.Op == OpCreateProgress || c.Op == OpUpdateProgress {
		uploads := "-"
		if len(c.Uploads) > 0 {
			uploads = strings.Join(c.Uploads, ",")
		}
		fmt.Fprintf(&b, " uploads=%s", uploads)
	}
	return b.String()
}

// FakeClient is an in-memory progress server implementing client.Client.
//
// It records every call (including failed ones), stamps writes with the
// test clock, and fails any operation registered with Fail.
type FakeClient struct {
	mu       sync.Mutex
	clock    model.Clock
	entries  map[int]model.ProgressResponse
	run      model.RunResponse
	calls    []Call
	failures map[string]error

	// URLPrefix prefixes generated photo URLs.
	URLPrefix string
}

// NewFakeClient creates an empty server stamping writes with clock.
func NewFakeClient(clock model.Clock) *FakeClient {
	return &FakeClient{
		clock:     clock,
		entries:   make(map[int]model.ProgressResponse),
		failures:  make(map[string]error),
		URLPrefix: "https://cdn.test/progress",
	}
}

// Seed stores entries as if they already existed on the server.
func (f *FakeClient) Seed(entries ...model.ProgressResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.ID] = e
	}
}

// SetRun sets the response of GetCurrentRun.
func (f *FakeClient) SetRun(run model.RunResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.run = run
}

// Run returns the server's current run.
func (f *FakeClient) Run() model.RunResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.run
}

// Fail makes op return err (ErrInjected when nil) until Recover is called.
func (f *FakeClient) Fail(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// FailAll makes every operation fail.
func (f *FakeClient) FailAll() {
	for _, op := range AllOps {
		f.Fail(op, nil)
	}
}

// Recover clears the failure for op, or every failure when op is "".
func (f *FakeClient) Recover(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op == "" {
		f.failures = make(map[string]error)
		return
	}
	delete(f.failures, op)
}

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// TakeCalls returns the recorded calls and clears the record.
func (f *FakeClient) TakeCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

// CallsFor returns the recorded calls of one operation.
func (f *FakeClient) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Entries returns the server's entries ordered by day.
func (f *FakeClient) Entries() []model.ProgressResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEntries()
}

// Entry returns the entry for a server day.
func (f *FakeClient) Entry(day int) (model.ProgressResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[day]
	return e, ok
}

// Remove deletes a server entry without recording a call.
func (f *FakeClient) Remove(day int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, day)
}

// record appends c and returns the injected failure for its op, if any.
// Callers hold f.mu.
func (f *FakeClient) record(c Call) error {
	f.calls = append(f.calls, c)
	return f.failures[c.Op]
}

func (f *FakeClient) sortedEntries() []model.ProgressResponse {
	out := make([]model.ProgressResponse, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetProgress implements client.Client.
func (f *FakeClient) GetProgress(ctx context.Context) ([]model.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpGetProgress}); err != nil {
		return nil, err
	}
	return f.sortedEntries(), nil
}

// GetProgressDay implements client.Client.
func (f *FakeClient) GetProgressDay(ctx context.Context, day int) (model.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpGetProgressDay, Day: day}); err != nil {
		return model.ProgressResponse{}, err
	}
	e, ok := f.entries[day]
	if !ok {
		return model.ProgressResponse{}, ErrNotFound
	}
	return e, nil
}

// CreateProgress implements client.Client.
func (f *FakeClient) CreateProgress(ctx context.Context, req model.ProgressRequest) (model.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpCreateProgress, Day: req.ID, Uploads: req.UploadFields(), Files: cloneFiles(req.Uploads), Metrics: req.Metrics.Clone()}); err != nil {
		return model.ProgressResponse{}, err
	}
	return f.upsert(req, true), nil
}

// UpdateProgress implements client.Client.
func (f *FakeClient) UpdateProgress(ctx context.Context, day int, req model.ProgressRequest) (model.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpUpdateProgress, Day: day, Uploads: req.UploadFields(), Files: cloneFiles(req.Uploads), Metrics: req.Metrics.Clone()}); err != nil {
		return model.ProgressResponse{}, err
	}
	req.ID = day
	return f.upsert(req, false), nil
}

// upsert stores req. A create on an existing day behaves as an update.
func (f *FakeClient) upsert(req model.ProgressRequest, create bool) model.ProgressResponse {
	now := model.FormatServerTime(f.clock.Now())
	e, exists := f.entries[req.ID]
	if !exists {
		e = model.ProgressResponse{ID: req.ID, CreateDate: now}
	} else {
		e.ModifyDate = &now
	}
	if create && !exists {
		e.ModifyDate = nil
	}

	m := req.Metrics.Clone()
	e.PullUps, e.PushUps, e.Squats, e.Weight = m.PullUps, m.PushUps, m.Squats, m.Weight

	for _, s := range model.Slots {
		if _, ok := req.Uploads[s.Field()]; ok {
			e.SetPhotoURL(s, fmt.Sprintf("%s/%d/%s.jpg", f.URLPrefix, req.ID, s.Name()))
		}
	}
	f.entries[req.ID] = e
	return e
}

func cloneFiles(in map[string][]byte) map[string][]byte {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		out[k] = bytes.Clone(v)
	}
	return out
}

// DeleteProgress implements client.Client. Deleting a missing day succeeds.
func (f *FakeClient) DeleteProgress(ctx context.Context, day int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpDeleteProgress, Day: day}); err != nil {
		return err
	}
	delete(f.entries, day)
	return nil
}

// DeletePhoto implements client.Client.
func (f *FakeClient) DeletePhoto(ctx context.Context, day int, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpDeletePhoto, Day: day, Slot: slot}); err != nil {
		return err
	}
	s, err := model.ParseSlot(slot)
	if err != nil {
		return err
	}
	e, ok := f.entries[day]
	if !ok {
		return nil
	}
	now := model.FormatServerTime(f.clock.Now())
	e.SetPhotoURL(s, "")
	e.ModifyDate = &now
	f.entries[day] = e
	return nil
}

// StartRun implements client.Client. With no current run it opens one at
// date (or the clock's date); with a run in place it returns that run.
func (f *FakeClient) StartRun(ctx context.Context, date *string) (model.RunResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := Call{Op: OpStartRun}
	if date != nil {
		c.Date = *date
	}
	if err := f.record(c); err != nil {
		return model.RunResponse{}, err
	}
	if f.run.Date == nil {
		d := model.FormatServerTime(f.clock.Now())
		if date != nil {
			d = *date
		}
		f.run.Date = &d
	}
	return f.run, nil
}

// GetCurrentRun implements client.Client.
func (f *FakeClient) GetCurrentRun(ctx context.Context) (model.RunResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: OpGetCurrentRun}); err != nil {
		return model.RunResponse{}, err
	}
	return f.run, nil
}
