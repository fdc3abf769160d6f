package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and load the demo data",
	Long: `Creates or updates every table. Unless database.seed is false, empty
tables are filled with the demo farmer, consumer and admin accounts, their
orders and product listings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(true)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info("database ready",
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("seeded", cfg.Database.Seed))
		return nil
	},
}
