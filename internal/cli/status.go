package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fitsync/internal/timeline"
)

// StatusView is the status payload shared by status, resolve and reset.
type StatusView struct {
	Outcome    string        `json:"outcome"`
	State      string        `json:"state"`
	StartDate  string        `json:"start_date,omitempty"`
	CurrentDay int           `json:"current_day,omitempty"`
	MaxReadDay int           `json:"max_read_day,omitempty"`
	Conflict   *ConflictView `json:"conflict,omitempty"`
}

// ConflictView describes both candidate timelines of a date conflict.
type ConflictView struct {
	AppStart  string `json:"app_start"`
	AppDay    int    `json:"app_day"`
	SiteStart string `json:"site_start"`
	SiteDay   int    `json:"site_day"`
}

func newStatusView(st timeline.Status, now time.Time) StatusView {
	v := StatusView{
		Outcome:    st.Outcome.String(),
		State:      st.State.String(),
		CurrentDay: st.CurrentDay,
		MaxReadDay: st.MaxReadDay,
	}
	if st.Outcome == 0 {
		v.Outcome = "unavailable"
	}
	if st.HasStartDate {
		v.StartDate = st.StartDate.Format(time.DateOnly)
	}
	if c := st.Conflict; c != nil {
		v.Conflict = &ConflictView{
			AppStart:  c.App.Start.Format(time.DateOnly),
			AppDay:    c.AppDay(now),
			SiteStart: c.Site.Start.Format(time.DateOnly),
			SiteDay:   c.SiteDay(now),
		}
	}
	return v
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Reconcile the run start date with the server",
		Long: `Compare the local run start date with the server's and act on the result:
start a run when neither side has one, adopt the server's date when only it
has one, and report a conflict when they fall on different days.

When the dates agree a progress sync pass runs as well.

Exit codes:
  0 - Dates agree (or were reconciled)
  1 - Conflict pending, or the first status check failed
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				if err := a.requireRemote(); err != nil {
					return err
				}
				st, err := a.Facade.GetStatus(cmd.Context())
				return reportStatus(cmd, rootOpts, a, st, err)
			})
		},
	}
}

// reportStatus prints st and maps a pending conflict or err to an exit code.
func reportStatus(cmd *cobra.Command, opts *RootOptions, a *App, st timeline.Status, err error) error {
	view := newStatusView(st, a.Timeline.Now())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	if opts.Format == "json" {
		if err != nil {
			if encErr := out.Error("E_STATUS", err.Error(), view); encErr != nil {
				return encErr
			}
			return WrapExitError(ExitFailure, "status check failed", err)
		}
		if encErr := out.Success(view); encErr != nil {
			return encErr
		}
	} else {
		writeStatusText(cmd.OutOrStdout(), view, st.Outcome)
		if err != nil {
			return WrapExitError(ExitFailure, "status check failed", err)
		}
	}

	if view.Conflict != nil {
		return NewExitError(ExitFailure, "run start dates disagree")
	}
	return nil
}

func writeStatusText(w io.Writer, v StatusView, outcome timeline.Outcome) {
	st := stylesFor(w)
	fmt.Fprintln(w, st.title("fitsync status"))
	fmt.Fprintln(w, st.field("Outcome", describeOutcome(outcome)))
	if v.StartDate == "" {
		fmt.Fprintln(w, st.field("Start date", st.dim("none")))
	} else {
		fmt.Fprintln(w, st.field("Start date", v.StartDate))
		fmt.Fprintln(w, st.field("Current day", fmt.Sprint(v.CurrentDay)))
	}
	if v.MaxReadDay > 0 {
		fmt.Fprintln(w, st.field("Max read day", fmt.Sprint(v.MaxReadDay)))
	}

	if c := v.Conflict; c != nil {
		lines := []string{
			"Run start dates disagree",
			fmt.Sprintf("  app:  %s (day %d)", c.AppStart, c.AppDay),
			fmt.Sprintf("  site: %s (day %d)", c.SiteStart, c.SiteDay),
			"Resolve with: fitsync resolve --use site|app",
		}
		fmt.Fprintln(w, st.box(strings.Join(lines, "\n")))
	}
}

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Use string // "site" | "app"
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve --use site|app",
		Short: "Resolve a run start date conflict",
		Long: `Resolve a pending conflict between the local and the server run start date.

  --use site   adopt the server's date
  --use app    push the local date to the server (the server's answer wins)

The conflict is detected afresh first, so resolve can run on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Use != "site" && opts.Use != "app" {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid --use %q: must be site or app", opts.Use))
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				return runResolve(cmd, opts, a)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Use, "use", "", "which start date wins (site|app)")
	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, a *App) error {
	if err := a.requireRemote(); err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := a.Facade.GetStatus(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "status check failed", err)
	}
	if st.Outcome != timeline.OutcomeConflict {
		return reportStatus(cmd, opts.RootOptions, a, st, nil)
	}

	if opts.Use == "site" {
		st, err = a.Facade.AdoptSiteDate(ctx)
	} else {
		st, err = a.Facade.KeepAppDate(ctx)
	}
	return reportStatus(cmd, opts.RootOptions, a, st, err)
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset --yes",
		Short: "Delete local program data and start a new run",
		Long: `Delete every local progress record and journal entry (custom exercises are
kept) and start a new run on the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "reset deletes local progress; pass --yes to confirm")
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				if err := a.requireRemote(); err != nil {
					return err
				}
				st, err := a.Facade.ResetProgram(cmd.Context())
				return reportStatus(cmd, rootOpts, a, st, err)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset")
	return cmd
}
