package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/fitsync/internal/bridge"
	"github.com/roach88/fitsync/internal/client"
	"github.com/roach88/fitsync/internal/config"
	"github.com/roach88/fitsync/internal/engine"
	"github.com/roach88/fitsync/internal/logging"
	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/prefs"
	"github.com/roach88/fitsync/internal/store"
	"github.com/roach88/fitsync/internal/timeline"
)

// App is the object graph commands run against. Close releases it.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Clock      model.Clock
	Store      *store.Store
	Prefs      *prefs.Defaults
	Remote     client.Client // nil when the API is not configured
	Engine     *engine.Engine
	Timeline   *timeline.Timeline
	Reconciler *timeline.Reconciler
	Facade     *timeline.Facade

	bolt        *prefs.BoltStore
	closeLogger func()
}

// openApp loads configuration and opens the local stores. stderr receives
// terminal log output.
func openApp(opts *RootOptions, stderr io.Writer) (*App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load .env", err)
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, closeLogger, err := logging.Setup(logging.Options{
		Level:     cfg.Logging.Level,
		Verbose:   opts.Verbose,
		File:      cfg.Logging.File,
		SentryDSN: cfg.Logging.SentryDSN,
		Stderr:    stderr,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	a := &App{Config: cfg, Logger: logger, Clock: opts.Clock, closeLogger: closeLogger}
	if a.Clock == nil {
		a.Clock = model.SystemClock{}
	}
	if err := a.wire(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(opts *RootOptions) error {
	cfg := a.Config

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create data directory", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	a.Store = st

	a.bolt, err = prefs.OpenBolt(cfg.Prefs.SharedPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open preferences", err)
	}
	var legacy prefs.Store
	if cfg.Prefs.LegacyPath != "" {
		legacy = prefs.NewFileStore(cfg.Prefs.LegacyPath)
	}
	a.Prefs = prefs.NewDefaults(a.bolt, legacy, a.Logger)

	switch {
	case opts.Remote != nil:
		a.Remote = opts.Remote
	case cfg.Configured():
		httpClient, err := client.NewHTTPClient(client.Config{
			BaseURL:   cfg.API.BaseURL,
			Token:     cfg.API.Token,
			Timeout:   cfg.API.Timeout,
			RateLimit: cfg.API.RateLimit,
			Burst:     cfg.API.Burst,
		}, a.Logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create API client", err)
		}
		a.Remote = httpClient
	}

	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid timeline location", err)
	}
	a.Timeline = timeline.New(a.Prefs, a.Clock, loc)

	if a.Remote != nil {
		a.Engine = engine.New(a.Store, a.Remote,
			engine.WithLogger(a.Logger),
			engine.WithIDGenerator(engine.UUIDv7Generator{}),
		)
	}
	a.Reconciler = timeline.NewReconciler(a.Remote, a.Timeline, a.Store,
		timeline.WithSyncers(a.progressSyncer()),
		timeline.WithLogger(a.Logger),
	)
	a.Facade = timeline.NewFacade(a.Reconciler, a.Logger)
	return nil
}

// progressSyncer runs a progress pass once the run dates agree.
func (a *App) progressSyncer() timeline.Syncer {
	return timeline.SyncFunc{
		Label: "progress",
		Fn: func(ctx context.Context) error {
			if a.Engine == nil {
				return nil
			}
			report, err := a.Engine.Sync(ctx)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
}

// requireRemote fails commands that need the API when it is not configured.
func (a *App) requireRemote() error {
	if a.Remote == nil {
		return NewExitError(ExitCommandError,
			"API not configured: set api.base_url and api.token (or FITSYNC_API_BASE_URL and FITSYNC_API_TOKEN)")
	}
	return nil
}

// NewBridge builds the companion bridge over the app's run state and
// journal, relaying to the configured peer.
func (a *App) NewBridge() *bridge.Bridge {
	relay := bridge.NewRelay(bridge.NewHTTPPeer(a.Config.Bridge.PeerURL), a.bolt, a.Logger)
	return bridge.New(a.Reconciler, a.Store, client.TokenAuthorizer{Token: a.Config.API.Token}, relay,
		bridge.WithClock(a.Clock),
		bridge.WithLogger(a.Logger),
	)
}

// Close releases the stores and flushes the logger.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("close store failed", "error", err)
		}
	}
	if a.bolt != nil {
		if err := a.bolt.Close(); err != nil {
			a.Logger.Warn("close preferences failed", "error", err)
		}
	}
	if a.closeLogger != nil {
		a.closeLogger()
	}
}

// withApp opens the app for one command and closes it afterwards.
func withApp(opts *RootOptions, stderr io.Writer, fn func(a *App) error) error {
	a, err := openApp(opts, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func describeOutcome(o timeline.Outcome) string {
	switch o {
	case timeline.OutcomeInSync:
		return "in sync with the server"
	case timeline.OutcomeStartedRun:
		return "started a run"
	case timeline.OutcomeAdoptedSiteDate:
		return "adopted the server's start date"
	case timeline.OutcomeConflict:
		return "start dates disagree"
	case timeline.OutcomeIgnored:
		return "another check is running"
	case timeline.OutcomeOffline:
		return "offline, showing local state"
	default:
		return fmt.Sprint(o)
	}
}
