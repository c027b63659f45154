package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/school-points-api/internal/service"
)

// ReportOptions holds flags for the report weekly command.
type ReportOptions struct {
	*RootOptions
	Friday int64
	Out    string
}

// NewReportCommand creates the report command group.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect weekly points reports",
	}

	weekly := &cobra.Command{
		Use:   "weekly",
		Short: "List report weeks, or show one week with --friday",
		Long: `List every week that has evaluations.

With --friday <epoch-ms> the per-student totals for that week are shown;
adding --out <dir> also writes the week as an .xlsx workbook.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViewer(cmd.Context(), rootOpts, func(rt *Runtime, viewer *service.Viewer) error {
				if opts.Friday == 0 {
					return listWeeks(cmd, rt, viewer, rootOpts.Format)
				}
				return showWeek(cmd, rt, viewer, opts)
			})
		},
	}

	weekly.Flags().Int64Var(&opts.Friday, "friday", 0, "week key (Friday midnight, epoch milliseconds)")
	weekly.Flags().StringVar(&opts.Out, "out", "", "directory to write the week's .xlsx export into")

	cmd.AddCommand(weekly)
	return cmd
}

func listWeeks(cmd *cobra.Command, rt *Runtime, viewer *service.Viewer, format string) error {
	weeks, err := rt.Services.Reports.WeeklyList(cmd.Context(), viewer)
	if err != nil {
		return WrapExitError(ExitFailure, "report failed", err)
	}
	return render(cmd.OutOrStdout(), format, weeks, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WEEK\tFRIDAY\tRANGE\tSTUDENTS")
		for _, week := range weeks {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", week.WeekNumber, week.FridayDate, week.FormattedDate, week.StudentCount)
		}
		_ = tw.Flush()
	})
}

func showWeek(cmd *cobra.Command, rt *Runtime, viewer *service.Viewer, opts *ReportOptions) error {
	rows, err := rt.Services.Reports.WeeklyDetail(cmd.Context(), viewer, opts.Friday)
	if err != nil {
		return WrapExitError(ExitFailure, "report failed", err)
	}

	if opts.Out != "" {
		payload, filename, err := rt.Services.Reports.ExportWeekly(cmd.Context(), viewer, opts.Friday)
		if err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		path := filepath.Join(opts.Out, filename)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	}

	return render(cmd.OutOrStdout(), opts.Format, rows, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STUDENT\tNAME\tGRADE\tTOTAL\tBY CATEGORY")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", row.StudentCode, row.EnglishName, row.Grade, row.TotalPoints, formatCategories(row.PointsByCategory))
		}
		_ = tw.Flush()
	})
}

func formatCategories(points map[string]int) string {
	names := make([]string, 0, len(points))
	for name := range points {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", name, points[name])
	}
	return out
}
