package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/school-points-api/internal/service"
)

// NewClearEvaluationsCommand creates the clear-evaluations command.
func NewClearEvaluationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-evaluations",
		Short: "Delete every evaluation and the audit entries that reference them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				result, err := rt.Services.Backups.ClearEvaluations(cmd.Context(), viewer)
				if err != nil {
					return WrapExitError(ExitFailure, "clear failed", err)
				}
				return render(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %d evaluations and %d audit entries\n", result.Evaluations, result.AuditLogs)
				})
			})
		},
	}
}

// NewAdvanceYearCommand creates the advance-year command.
func NewAdvanceYearCommand(rootOpts *RootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "advance-year",
		Short: "Back up, then promote grades 7-11 and drop graduates and unenrolled students",
		Long: `Run the year-end transition.

A pre-advance backup is written first. Enrolled students in grades 7-11 move
up one grade, grade 12 and Not Enrolled students are deleted, and every
evaluation is cleared. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return NewExitError(ExitCommandError, "advance-year is destructive; re-run with --yes")
			}
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				result, err := rt.Services.Backups.AdvanceYear(cmd.Context(), viewer)
				if err != nil {
					return WrapExitError(ExitFailure, "advance failed", err)
				}
				return render(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
					fmt.Fprintf(w, "backup %s written\n", result.BackupID)
					fmt.Fprintf(w, "grades advanced: %d\n", result.GradesAdvanced)
					fmt.Fprintf(w, "graduates deleted: %d\n", result.GraduatesDeleted)
					fmt.Fprintf(w, "not enrolled deleted: %d\n", result.NotEnrolledDeleted)
					fmt.Fprintf(w, "evaluations cleared: %d\n", result.EvaluationsCleared)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the year-end transition")

	return cmd
}
