package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/importer"
)

func newImportCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "import <entity|all>",
		Short:     "Import a collection from the legacy API",
		Long:      "Import one collection from the legacy API, or all of them in dependency order.\nEntities: " + strings.Join(importer.Entities, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: append([]string{"all"}, importer.Entities...),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			if entity != "all" && !importer.Known(entity) {
				return fmt.Errorf("unknown entity %q (want one of: all, %s)", entity, strings.Join(importer.Entities, ", "))
			}

			repo, err := e.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			rec, err := importer.FromConfig(repo, e.cfg, e.logger)
			if err != nil {
				return err
			}
			publisher, closePublisher := cli.OpenPublisher(e.cfg, e.logger)
			defer closePublisher()
			rec.WithPublisher(publisher)
			if entity == "all" {
				results, err := rec.ImportAll(cmd.Context())
				if perr := e.print(results); perr != nil {
					return perr
				}
				return err
			}
			res, err := rec.Import(cmd.Context(), entity)
			if err != nil {
				return err
			}
			return e.print(res)
		},
	}
}
