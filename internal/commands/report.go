package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/report"
	"finanzas/internal/services"
	"finanzas/internal/worker"
)

func newReportCommand(e *env) *cobra.Command {
	var (
		params report.Params
		date   string
	)

	cmd := &cobra.Command{
		Use:   "report <type> <period>",
		Short: "Print an expense or income report as JSON",
		Long:  "Print a report. type is expense or income, period is daily, weekly, monthly or yearly.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := core.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				params.Date = &d
			}

			repo, err := e.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			rows, err := services.NewReportService(repo).Generate(cmd.Context(), args[0], args[1], params)
			if err != nil {
				return err
			}
			return e.print(rows)
		},
	}
	cmd.Flags().Int64Var(&params.UserID, "user", 0, "owner of the movements (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().Int64Var(&params.BadgeID, "badge", 0, "restrict to one currency")
	cmd.Flags().StringVar(&date, "date", "", "day for daily reports as YYYY-MM-DD")
	cmd.Flags().IntVar(&params.WeekNumber, "week", 0, "ISO week for weekly reports")
	cmd.Flags().IntVar(&params.Month, "month", 0, "month for monthly reports")
	cmd.Flags().IntVar(&params.Year, "year", 0, "year (default current)")
	return cmd
}

func newMirrorCommand(e *env) *cobra.Command {
	mirrorCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the spreadsheet mirror of movements",
	}
	mirrorCmd.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Write every movement to the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			mirror, err := cli.OpenMirror(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			n, err := worker.NewMirrorWorker(repo, mirror, e.logger).SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "mirrored %d movements\n", n)
			return nil
		},
	})
	return mirrorCmd
}
