package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if err := store.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate DB: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	},
}
