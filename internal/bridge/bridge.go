package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("bridge: closed")

// DayKeeper owns the current program day.
type DayKeeper interface {
	CurrentDay() (int, bool)
	SetCurrentDayForDebug(day int) bool
}

// ActivityStore holds journal entries. Activity returns
// store.ErrActivityNotFound for days without an entry.
type ActivityStore interface {
	Activity(ctx context.Context, day int) (model.DailyActivity, error)
	SetActivity(ctx context.Context, a model.DailyActivity) error
}

// Authorizer reports whether the user is signed in.
type Authorizer interface {
	Authorized(now time.Time) bool
}

// Bridge applies companion commands and relays state changes.
type Bridge struct {
	days       DayKeeper
	activities ActivityStore
	auth       Authorizer
	relay      *Relay
	clock      model.Clock
	logger     *slog.Logger
	queue      *commandQueue
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock sets the clock stamping journal entries.
func WithClock(c model.Clock) Option {
	return func(b *Bridge) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Bridge. Call Run to start applying commands.
func New(days DayKeeper, activities ActivityStore, auth Authorizer, relay *Relay, opts ...Option) *Bridge {
	b := &Bridge{
		days:       days,
		activities: activities,
		auth:       auth,
		relay:      relay,
		clock:      model.SystemClock{},
		logger:     slog.Default(),
		queue:      newCommandQueue(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run applies queued commands in FIFO order until ctx is done or Close is
// called. Commands queued before Close are still applied.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		b.drain(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-b.queue.Wait():
			if !ok {
				b.drain(ctx)
				return nil
			}
		}
	}
}

func (b *Bridge) drain(ctx context.Context) {
	for {
		r, ok := b.queue.TryDequeue()
		if !ok {
			return
		}
		r.reply <- b.Apply(ctx, r.cmd)
	}
}

// Close stops accepting commands.
func (b *Bridge) Close() {
	b.queue.Close()
}

// Submit queues cmd and waits for its reply.
func (b *Bridge) Submit(ctx context.Context, cmd Command) (Message, error) {
	r := request{cmd: cmd, reply: make(chan Message, 1)}
	if !b.queue.Enqueue(r) {
		return Message{}, ErrClosed
	}
	select {
	case msg := <-r.reply:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// SubmitJSON parses data and submits it. Parse failures come back as an
// error message, not an error.
func (b *Bridge) SubmitJSON(ctx context.Context, data []byte) (Message, error) {
	cmd, err := ParseCommand(data)
	if err != nil {
		b.logger.Debug("rejected companion command", "error", err)
		return ErrorMessage(AsCommandError(err)), nil
	}
	return b.Submit(ctx, cmd)
}

// Apply executes cmd directly. Run calls it for queued commands; callers
// outside the loop must not run it concurrently with Run.
func (b *Bridge) Apply(ctx context.Context, cmd Command) Message {
	switch c := cmd.(type) {
	case GetState:
		day, ok := b.days.CurrentDay()
		if c.Day != nil {
			day, ok = *c.Day, true
		}
		if !ok {
			return ErrorMessage(commandErrorf(CodeUnavailable, "no run started"))
		}
		return b.dayState(ctx, day)

	case SetDay:
		if !b.days.SetCurrentDayForDebug(c.Day) {
			return ErrorMessage(commandErrorf(CodeInvalidField, "day %d rejected", c.Day))
		}
		b.logger.Info("companion moved current day", "day", c.Day)
		msg := b.dayState(ctx, c.Day)
		b.announce(ctx, msg)
		return msg

	case SetActivity:
		err := b.activities.SetActivity(ctx, model.DailyActivity{
			Day:       c.Day,
			Name:      c.Activity,
			Completed: c.Completed,
			UpdatedAt: b.clock.Now().UTC(),
		})
		if err != nil {
			b.logger.Error("record companion activity failed", "day", c.Day, "error", err)
			return ErrorMessage(commandErrorf(CodeInternal, "record activity: %v", err))
		}
		msg := b.dayState(ctx, c.Day)
		b.announce(ctx, msg)
		return msg

	default:
		return ErrorMessage(commandErrorf(CodeUnknownType, "unsupported command %T", cmd))
	}
}

// PublishAuthorization relays the sign-in state and refreshes the context.
func (b *Bridge) PublishAuthorization(ctx context.Context) bool {
	sent := b.relay.Publish(ctx, AuthorizationMessage(b.auth.Authorized(b.clock.Now())))
	b.publishContext(ctx)
	return sent
}

// PublishContext persists the current context payload and tries to deliver
// it.
func (b *Bridge) PublishContext(ctx context.Context) error {
	return b.relay.PublishContext(ctx, b.contextPayload(ctx))
}

// Relay returns the outbound relay.
func (b *Bridge) Relay() *Relay { return b.relay }

func (b *Bridge) dayState(ctx context.Context, day int) Message {
	a, err := b.activities.Activity(ctx, day)
	switch {
	case errors.Is(err, store.ErrActivityNotFound):
		return DayStateMessage(day, "", false)
	case err != nil:
		b.logger.Error("read activity failed", "day", day, "error", err)
		return ErrorMessage(commandErrorf(CodeInternal, "read activity: %v", err))
	}
	return DayStateMessage(day, a.Name, a.Completed)
}

func (b *Bridge) announce(ctx context.Context, msg Message) {
	if msg.Type != MessageDayState {
		return
	}
	b.relay.Publish(ctx, msg)
	b.publishContext(ctx)
}

func (b *Bridge) publishContext(ctx context.Context) {
	if err := b.PublishContext(ctx); err != nil {
		b.logger.Warn("persist companion context failed", "error", err)
	}
}

func (b *Bridge) contextPayload(ctx context.Context) map[string]any {
	payload := map[string]any{
		"authorized": b.auth.Authorized(b.clock.Now()),
	}
	day, ok := b.days.CurrentDay()
	if !ok {
		return payload
	}
	payload["day"] = day
	if a, err := b.activities.Activity(ctx, day); err == nil {
		payload["activity"] = a.Name
		payload["completed"] = a.Completed
	}
	return payload
}
