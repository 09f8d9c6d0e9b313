package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fitsync/internal/engine"
	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
)

// RecordView is the CLI form of a local progress record.
type RecordView struct {
	ID           string            `json:"id"`
	Day          int               `json:"day"`
	Metrics      string            `json:"metrics"`
	Photos       map[string]string `json:"photos"`
	LastModified string            `json:"last_modified"`
	Synced       bool              `json:"synced"`
	ShouldDelete bool              `json:"should_delete,omitempty"`
	ServerKnown  bool              `json:"server_known"`
}

func newRecordView(r model.ProgressRecord) RecordView {
	photos := make(map[string]string, len(model.Slots))
	for _, s := range model.Slots {
		photos[s.Name()] = r.Photo(s).Describe()
	}
	return RecordView{
		ID:           r.RowID,
		Day:          r.Day,
		Metrics:      r.Metrics.String(),
		Photos:       photos,
		LastModified: model.FormatServerTime(r.LastModified),
		Synced:       r.IsSynced,
		ShouldDelete: r.ShouldDelete,
		ServerKnown:  r.ServerKnown,
	}
}

// NewRecordCommand creates the record command group.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Edit the local progress journal",
		Long: `Edit progress records offline. Changes are stored locally and marked
unsynced; the next sync pass pushes them. Days are program days 1-100.`,
	}

	cmd.AddCommand(newRecordListCommand(rootOpts))
	cmd.AddCommand(newRecordSetCommand(rootOpts))
	cmd.AddCommand(newRecordPhotoCommand(rootOpts))
	cmd.AddCommand(newRecordUnphotoCommand(rootOpts))
	cmd.AddCommand(newRecordDeleteCommand(rootOpts))
	return cmd
}

func newRecordListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local progress records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				records, err := a.Store.Records(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read records", err)
				}
				views := make([]RecordView, 0, len(records))
				for _, r := range records {
					views = append(views, newRecordView(r))
				}
				if rootOpts.Format == "json" {
					out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
					return out.Success(views)
				}
				writeRecordTable(cmd.OutOrStdout(), views)
				return nil
			})
		},
	}
}

func writeRecordTable(w io.Writer, views []RecordView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	st := stylesFor(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tSTATE\tMETRICS\tFRONT\tBACK\tSIDE")
	for _, v := range views {
		state := st.good("synced")
		switch {
		case v.ShouldDelete:
			state = st.bad("deleting")
		case !v.Synced:
			state = st.dim("pending")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", v.Day, state, v.Metrics,
			v.Photos["front"], v.Photos["back"], v.Photos["side"])
	}
	tw.Flush()
}

// RecordSetOptions holds flags for record set.
type RecordSetOptions struct {
	*RootOptions
	PullUps int
	PushUps int
	Squats  int
	Weight  float64
}

func newRecordSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <day>",
		Short: "Record measurements for a day",
		Long: `Record measurements for a day. Only the flags given are changed.

Examples:
  fitsync record set 12 --pullups 8 --squats 40
  fitsync record set 100 --weight 81.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			if !anyMetricFlag(cmd) {
				return NewExitError(ExitCommandError, "nothing to set: pass at least one of --pullups, --pushups, --squats, --weight")
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				m := metricsFromFlags(cmd, opts)
				return editRecord(cmd, rootOpts, a, day, true, func(r *model.ProgressRecord, now time.Time) error {
					return r.SetMetrics(m, now)
				})
			})
		},
	}

	cmd.Flags().IntVar(&opts.PullUps, "pullups", 0, "pull-ups")
	cmd.Flags().IntVar(&opts.PushUps, "pushups", 0, "push-ups")
	cmd.Flags().IntVar(&opts.Squats, "squats", 0, "squats")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 0, "body weight")
	return cmd
}

func metricsFromFlags(cmd *cobra.Command, opts *RecordSetOptions) model.Metrics {
	var m model.Metrics
	if cmd.Flags().Changed("pullups") {
		m.PullUps = model.Int(opts.PullUps)
	}
	if cmd.Flags().Changed("pushups") {
		m.PushUps = model.Int(opts.PushUps)
	}
	if cmd.Flags().Changed("squats") {
		m.Squats = model.Int(opts.Squats)
	}
	if cmd.Flags().Changed("weight") {
		m.Weight = model.Float(opts.Weight)
	}
	return m
}

func anyMetricFlag(cmd *cobra.Command) bool {
	for _, name := range []string{"pullups", "pushups", "squats", "weight"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func newRecordPhotoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "photo <day> <front|back|side> <file>",
		Short: "Attach a progress photo",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			slot, err := model.ParseSlot(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid slot", err)
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read photo", err)
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				return editRecord(cmd, rootOpts, a, day, true, func(r *model.ProgressRecord, now time.Time) error {
					return r.SetPhoto(slot, data, now)
				})
			})
		},
	}
}

func newRecordUnphotoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unphoto <day> <front|back|side>",
		Short: "Remove a progress photo",
		Long: `Remove a progress photo. A photo the server already holds is deleted
remotely on the next sync pass.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			slot, err := model.ParseSlot(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid slot", err)
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				return editRecord(cmd, rootOpts, a, day, false, func(r *model.ProgressRecord, now time.Time) error {
					r.RemovePhoto(slot, now)
					return nil
				})
			})
		},
	}
}

func newRecordDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <day>",
		Short: "Delete a day's record",
		Long: `Mark a day's record for deletion. The next sync pass deletes the server
copy and removes the local record, even when the server cannot be reached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				return editRecord(cmd, rootOpts, a, day, false, func(r *model.ProgressRecord, now time.Time) error {
					r.MarkDeleted(now)
					return nil
				})
			})
		},
	}
}

func parseDay(raw string) (int, error) {
	day, err := strconv.Atoi(raw)
	if err != nil || day < 1 || day > model.ProgramDays {
		return 0, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid day %q: must be between 1 and %d", raw, model.ProgramDays))
	}
	return day, nil
}

// editRecord loads the day's record, applies fn and saves it. When create
// is set a missing record is started locally; otherwise it is an error.
func editRecord(cmd *cobra.Command, opts *RootOptions, a *App, day int, create bool, fn func(*model.ProgressRecord, time.Time) error) error {
	ctx := cmd.Context()
	rec, err := loadRecord(ctx, a, day, create)
	if err != nil {
		return err
	}

	if err := fn(&rec, a.Clock.Now()); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("day %d", day), err)
	}
	if err := a.Store.SaveRecord(ctx, rec); err != nil {
		return WrapExitError(ExitFailure, "failed to save record", err)
	}
	a.Logger.Debug("local record updated", "day", day, "row_id", rec.RowID)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	view := newRecordView(rec)
	if opts.Format == "json" {
		return out.Success(view)
	}
	return out.Success(fmt.Sprintf("day %d: %s front=%s back=%s side=%s (pending sync)",
		view.Day, view.Metrics, view.Photos["front"], view.Photos["back"], view.Photos["side"]))
}

func loadRecord(ctx context.Context, a *App, day int, create bool) (model.ProgressRecord, error) {
	rec, err := a.Store.RecordForDay(ctx, day)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, store.ErrRecordNotFound) && create:
		return model.NewLocalRecord(engine.UUIDv7Generator{}.Generate(), day, a.Clock.Now()), nil
	case errors.Is(err, store.ErrRecordNotFound):
		return model.ProgressRecord{}, NewExitError(ExitCommandError, fmt.Sprintf("no record for day %d", day))
	default:
		return model.ProgressRecord{}, WrapExitError(ExitFailure, "failed to read record", err)
	}
}
