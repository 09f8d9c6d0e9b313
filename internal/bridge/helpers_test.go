package bridge

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

	"github.com/roach88/fitsync/internal/prefs"
	"github.com/roach88/fitsync/internal/store"
	"github.com/roach88/fitsync/internal/testutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePeer records deliveries and can be switched offline.
type fakePeer struct {
	mu        sync.Mutex
	reachable bool
	sendErr   error
	messages  []Message
	contexts  []string
}

func newFakePeer() *fakePeer { return &fakePeer{reachable: true} }

func (p *fakePeer) setReachable(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reachable = v
}

func (p *fakePeer) IsReachable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reachable
}

func (p *fakePeer) Send(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePeer) UpdateContext(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.contexts = append(p.contexts, string(payload))
	return nil
}

func (p *fakePeer) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

func (p *fakePeer) Contexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.contexts...)
}

// fakeDays is a DayKeeper over a plain int.
type fakeDays struct {
	mu  sync.Mutex
	day int
}

func (d *fakeDays) CurrentDay() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.day, d.day > 0
}

func (d *fakeDays) SetCurrentDayForDebug(day int) bool {
	if day < 1 || day > 100 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.day = day
	return true
}

type staticAuth bool

func (a staticAuth) Authorized(time.Time) bool { return bool(a) }

func openOutbox(t *testing.T) *prefs.BoltStore {
	t.Helper()
	p, err := prefs.OpenBolt(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "fitsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fixture struct {
	peer   *fakePeer
	days   *fakeDays
	store  *store.Store
	outbox *prefs.BoltStore
	bridge *Bridge
}

func newFixture(t *testing.T, day int) *fixture {
	t.Helper()
	f := &fixture{
		peer:   newFakePeer(),
		days:   &fakeDays{day: day},
		store:  openStore(t),
		outbox: openOutbox(t),
	}
	relay := NewRelay(f.peer, f.outbox, discardLogger())
	f.bridge = New(f.days, f.store, staticAuth(true), relay,
		WithClock(testutil.NewClock(now)), WithLogger(discardLogger()))
	return f
}

// start runs the command loop until the test ends.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bridge.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		err := <-done
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("run: %v", err)
		}
	})
}
