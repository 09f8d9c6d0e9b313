package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fitsync/internal/engine"
)

// SyncView is the JSON form of one pass report.
type SyncView struct {
	Pass              int64         `json:"pass"`
	Skipped           bool          `json:"skipped,omitempty"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	RecordsDeleted    int           `json:"records_deleted"`
	PhotosDeleted     int           `json:"photos_deleted"`
	Uploaded          int           `json:"uploaded"`
	MarkedSynced      int           `json:"marked_synced"`
	Hydrated          int           `json:"hydrated"`
	Overwritten       int           `json:"overwritten"`
	Tombstoned        int           `json:"tombstoned"`
	MergeSkipped      bool          `json:"merge_skipped,omitempty"`
	Failures          []FailureView `json:"failures,omitempty"`
}

// FailureView is one per-item sync failure.
type FailureView struct {
	Code    string `json:"code"`
	Day     int    `json:"day,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Message string `json:"message"`
}

func newSyncView(r engine.Report) SyncView {
	v := SyncView{
		Pass:              r.Pass,
		Skipped:           r.Skipped,
		DuplicatesRemoved: r.DuplicatesRemoved,
		RecordsDeleted:    r.RecordsDeleted,
		PhotosDeleted:     r.PhotosDeleted,
		Uploaded:          r.Uploaded,
		MarkedSynced:      r.MarkedSynced,
		Hydrated:          r.Hydrated,
		Overwritten:       r.Overwritten,
		Tombstoned:        r.Tombstoned,
		MergeSkipped:      r.MergeSkipped,
	}
	for _, f := range r.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		v.Failures = append(v.Failures, FailureView{
			Code:    string(f.Code),
			Day:     f.Day,
			Slot:    f.Slot,
			Message: msg,
		})
	}
	return v
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one progress sync pass",
		Long: `Push local progress edits to the server and merge the server's list back.

A pass removes duplicate days, sends pending deletions and photo removals,
uploads unsynced records, then merges the remote list (last write wins).
Network failures do not stop the pass; they are listed at the end.

Exit codes:
  0 - Pass completed without failures
  1 - One or more steps failed (they are retried on the next pass)
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				if err := a.requireRemote(); err != nil {
					return err
				}
				report, err := a.Engine.Sync(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "sync pass aborted", err)
				}
				return reportSync(cmd, rootOpts, report)
			})
		},
	}
}

func reportSync(cmd *cobra.Command, opts *RootOptions, report engine.Report) error {
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		out := &OutputFormatter{Format: opts.Format, Writer: w}
		view := newSyncView(report)
		if len(report.Failures) > 0 {
			if err := out.Error("E_SYNC_FAILED", fmt.Sprintf("%d step(s) failed", len(report.Failures)), view); err != nil {
				return err
			}
		} else if err := out.Success(view); err != nil {
			return err
		}
	} else {
		writeSyncText(w, report)
	}

	if len(report.Failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d sync step(s) failed", len(report.Failures)))
	}
	return nil
}

func writeSyncText(w io.Writer, report engine.Report) {
	st := stylesFor(w)
	if len(report.Failures) == 0 {
		fmt.Fprintf(w, "%s %s\n", st.good("✓"), report.String())
		return
	}
	fmt.Fprintf(w, "%s %s\n", st.bad("✗"), report.String())
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s\n", f.Error())
	}
}
