package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/school-points-api/internal/service"
)

// NewBackupCommand creates the backup command group.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Snapshot every collection into a new backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				backup, err := rt.Services.Backups.Create(cmd.Context(), viewer)
				if err != nil {
					return WrapExitError(ExitFailure, "backup failed", err)
				}
				return render(cmd.OutOrStdout(), rootOpts.Format, backup, func(w io.Writer) {
					fmt.Fprintf(w, "created backup %s (%s)\n", backup.ID, backup.Filename)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				backups, err := rt.Services.Backups.List(cmd.Context(), viewer)
				if err != nil {
					return WrapExitError(ExitFailure, "listing backups failed", err)
				}
				return render(cmd.OutOrStdout(), rootOpts.Format, backups, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tFILENAME\tCREATED")
					for _, backup := range backups {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", backup.ID, backup.Filename, backup.CreatedAt.Format(time.RFC3339))
					}
					_ = tw.Flush()
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Merge a backup into the live collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				result, err := rt.Services.Backups.Restore(cmd.Context(), viewer, args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "restore failed", err)
				}
				return render(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
					fmt.Fprintf(w, "restored %d students, %d evaluations, %d users, %d categories\n",
						result.Students, result.Evaluations, result.Users, result.Categories)
					fmt.Fprintf(w, "reused %d students, %d users, %d categories\n",
						result.ReusedStudents, result.ReusedUsers, result.ReusedCategories)
				})
			})
		},
	})

	return cmd
}
