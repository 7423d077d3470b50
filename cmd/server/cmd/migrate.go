package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back MySQL schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTool()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger := newLogger(cfg.Logging)
		db, err := database.Open(cfg.DB)
		if err != nil {
			return err
		}
		if err := database.MigrateUp(db); err != nil {
			return err
		}
		logger.Info().Str("db", cfg.DB.Name).Msg("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTool()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger := newLogger(cfg.Logging)
		db, err := database.Open(cfg.DB)
		if err != nil {
			return err
		}
		if err := database.MigrateDown(db, migrateSteps); err != nil {
			return err
		}
		logger.Info().Int("steps", migrateSteps).Msg("migrations rolled back")
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
