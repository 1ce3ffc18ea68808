// Package commands implements the finanzasctl operator CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// env is what every subcommand shares: settings, a stderr logger and the
// output stream.
type env struct {
	dbPath string
	cfg    *config.Config
	logger *applog.Logger
	out    io.Writer
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:   "finanzasctl",
		Short: "Operate a finanzas installation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			e.cfg = config.Load()
			if e.dbPath != "" {
				e.cfg.SQLiteDBPath = e.dbPath
			}
			e.logger = applog.New(applog.Config{
				Component: applog.ComponentApp,
				Handler: slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: applog.ParseLevel(e.cfg.LogLevel),
				}),
			})
			e.out = cmd.OutOrStdout()
		},
	}
	rootCmd.PersistentFlags().StringVar(&e.dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")

	rootCmd.AddCommand(
		newMigrateCommand(e),
		newSeedCommand(e),
		newImportCommand(e),
		newMaterializeCommand(e),
		newReportCommand(e),
		newMirrorCommand(e),
	)
	return rootCmd
}

func (e *env) open() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(e.cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", e.cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
