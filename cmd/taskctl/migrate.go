package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pgInfra "github.com/fastygo/taskbot/internal/infrastructure/postgres"
)

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the SQL migrations under MIGRATIONS_PATH to DATABASE_URL.

Examples:
  taskctl migrate
  taskctl migrate --down`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			direction := pgInfra.MigrateUp
			if down {
				direction = pgInfra.MigrateDown
			}
			if err := pgInfra.Migrate(e.cfg, direction, e.logger); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: ok\n", direction)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest migration")
	return cmd
}
