package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/contest-engine/internal/config"
	"github.com/terra-clan/contest-engine/internal/storage"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != config.DriverPostgres {
			return fmt.Errorf("migrations only apply to the postgres driver, not %q", cfg.Storage.Driver)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		repo, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer repo.Close()

		pg := repo.(*storage.PostgresRepository)
		migrations := os.DirFS(cfg.Database.MigrationsDir)

		var names []string
		if migrateStatus {
			names, err = pg.PendingMigrations(ctx, migrations)
		} else {
			names, err = pg.Migrate(ctx, migrations)
		}
		if err != nil {
			return err
		}

		verb := "applied"
		if migrateStatus {
			verb = "pending"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d migration(s) %s\n", len(names), verb)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}
