package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/fitsync/internal/model"
)

// NewDebugDayCommand creates the debug-day command.
func NewDebugDayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "debug-day <day>",
		Short: "Move the run start date so that today is the given day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil || day < 1 || day > model.ProgramDays {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid day %q: must be between 1 and %d", args[0], model.ProgramDays))
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				if !a.Reconciler.SetCurrentDayForDebug(day) {
					return NewExitError(ExitFailure, "failed to move the start date")
				}
				current, _ := a.Reconciler.CurrentDay()
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				if rootOpts.Format == "json" {
					return out.Success(map[string]int{"current_day": current})
				}
				return out.Success(fmt.Sprintf("Today is day %d", current))
			})
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local run state",
		Long: `Clear the persisted run start date and max read day. Progress records stay
in the local store and sync again after the next sign-in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd.ErrOrStderr(), func(a *App) error {
				if err := a.Reconciler.Logout(); err != nil {
					return WrapExitError(ExitFailure, "logout failed", err)
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				if rootOpts.Format == "json" {
					return out.Success(map[string]bool{"logged_out": true})
				}
				return out.Success("Run state cleared")
			})
		},
	}
}
