package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/concert-calendar/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the concerts, tickets and users tables",
	Long: `Apply the embedded schema for the configured DB_DRIVER.  The schema
only creates missing tables and indexes, so running it twice is safe.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, db, log, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db, cfg.DBDriver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema applied", "driver", cfg.DBDriver)
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
