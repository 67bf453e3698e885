// cmd/server/cmd_db.go
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/eco-backend/internal/database"
)

var withDemoUsers bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.RunMigrations(db)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, default settings and optionally the demo accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.RunMigrations(db); err != nil {
			return err
		}

		demo := cfg.Auth.SeedDemoUsers
		if cmd.Flags().Changed("demo-users") {
			demo = withDemoUsers
		}
		if err := database.SeedInitialData(db, demo); err != nil {
			return err
		}
		logrus.WithField("demo_users", demo).Info("Seed completed")
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&withDemoUsers, "demo-users", true, "also create the demo accounts")
}
