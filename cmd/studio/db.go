package cmd

import (
	"fmt"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/db"
	"github.com/cozy-creator/product-studio/internal/db/migrations"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Utility for database management",
}

func init() {
	migrationCmd := &cobra.Command{
		Use:   "migration",
		Short: "Utility for handling database migrations",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "create migration tables",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
			return migrator.Init(cmd.Context())
		}),
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate database",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Printf("there are no new migrations to run (database is up to date)\n")
				return nil
			}
			fmt.Printf("migrated to %s\n", group)
			return nil
		}),
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "rollback the last migration group",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Printf("there are no groups to roll back\n")
				return nil
			}
			fmt.Printf("rolled back %s\n", group)
			return nil
		}),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the migrations",
		RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
			status, err := migrator.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("migrations: %s\n", status)
			fmt.Printf("unapplied migrations: %s\n", status.Unapplied())
			fmt.Printf("last migration group: %s\n", status.LastGroup())
			return nil
		}),
	}

	migrationCmd.AddCommand(initCmd, migrateCmd, rollbackCmd, statusCmd)
	dbCmd.AddCommand(migrationCmd)
}

func withMigrator(f func(cmd *cobra.Command, migrator *migrate.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		driver, err := db.NewConnection(cmd.Context(), config.MustGetConfig())
		if err != nil {
			return err
		}
		defer driver.Close()

		return f(cmd, migrate.NewMigrator(driver.GetDB(), migrations.Migrations))
	}
}
