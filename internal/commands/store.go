package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/core"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(e.cfg.SQLiteDBPath); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "migrations applied")
			return nil
		},
	}
}

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Insert badges and groups from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := storage.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			repo, err := e.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			badges, groups, err := repo.Seed(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("seeding: %w", err)
			}
			fmt.Fprintf(e.out, "seeded %d badges, %d groups\n", badges, groups)
			return nil
		},
	}
}

func newMaterializeCommand(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Turn the planned payments due on a day into movements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at := time.Now()
			if date != "" {
				d, err := core.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				at = time.Date(d.Year(), time.Month(d.Month()), d.Day(), 12, 0, 0, 0, time.UTC)
			}

			repo, err := e.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			// No publisher: the sheets worker picks these up on its next resync.
			movements := services.NewMovementService(repo, nil, e.logger)
			n, err := services.NewPaymentProcessor(repo, movements, e.logger).ProcessDuePayments(cmd.Context(), at)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "created %d movements\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to process as YYYY-MM-DD (default today)")
	return cmd
}
