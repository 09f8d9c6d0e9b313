package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fitsync/internal/bridge"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen        string        // overrides bridge.listen
	FlushInterval time.Duration // retry period for the pending context payload
	SyncInterval  time.Duration // 0 disables periodic status checks

	// ready, when set, receives the bound address once the server listens.
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the companion device endpoint",
		Long: `Serve the companion endpoint. The companion reads the current day's journal
entry and sends commands (set day, set activity); state changes are relayed
back to the configured peer.

Endpoints:
  GET  /health
  GET  /state
  GET  /state/{day}
  POST /commands

With --sync-interval the run dates are reconciled and a progress pass is run
periodically while serving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				return runServe(cmd, opts, a)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default from config bridge.listen)")
	cmd.Flags().DurationVar(&opts.FlushInterval, "flush-interval", 30*time.Second, "retry period for undelivered companion context")
	cmd.Flags().DurationVar(&opts.SyncInterval, "sync-interval", 0, "status check and sync period (0 disables)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions, a *App) error {
	listen := opts.Listen
	if listen == "" {
		listen = a.Config.Bridge.Listen
	}
	if listen == "" {
		return NewExitError(ExitCommandError, "no listen address: set bridge.listen or --listen")
	}
	if opts.SyncInterval > 0 {
		if err := a.requireRemote(); err != nil {
			return err
		}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.Logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	b := a.NewBridge()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("bridge loop stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	a.Logger.Info("companion endpoint listening", "addr", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving companion endpoint on %s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready(addr)
	}

	b.PublishAuthorization(ctx)

	runErr := background(ctx, a, b, opts, serveErr)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http shutdown", "error", err)
	}
	b.Close()
	<-loopDone

	if runErr != nil {
		return WrapExitError(ExitFailure, "server error", runErr)
	}
	a.Logger.Info("companion endpoint stopped")
	return nil
}

// background flushes the companion context and runs periodic syncs until
// ctx is done or the server fails.
func background(ctx context.Context, a *App, b *bridge.Bridge, opts *ServeOptions, serveErr <-chan error) error {
	flush := time.NewTicker(positive(opts.FlushInterval, 30*time.Second))
	defer flush.Stop()

	var syncC <-chan time.Time
	if opts.SyncInterval > 0 {
		t := time.NewTicker(opts.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-flush.C:
			if _, err := b.Relay().Flush(ctx); err != nil {
				a.Logger.Warn("context flush failed", "error", err)
			}
		case <-syncC:
			st, err := a.Facade.GetStatus(ctx)
			if err != nil {
				a.Logger.Warn("periodic status check failed", "error", err)
				continue
			}
			a.Logger.Debug("periodic status check", "outcome", st.Outcome)
			if err := b.PublishContext(ctx); err != nil {
				a.Logger.Warn("publish context failed", "error", err)
			}
		}
	}
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
