package commands

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/database"
	"github.com/iliyamo/concert-calendar/internal/logger"
)

var envFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "concertctl",
	Short: "Administer the concert calendar database",
	Long: `concertctl applies the database schema and loads concerts into the
calendar.  It reads the same environment variables as the server
(DB_DRIVER, DB_PATH, DB_HOST, ...), optionally from a .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.  Errors are printed once, without usage.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load before reading the environment")
}

// openDatabase loads the configuration and opens the configured database.
func openDatabase() (config.Config, *sql.DB, *logger.Logger, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		Path:   cfg.DBPath,
	})
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, log, nil
}
