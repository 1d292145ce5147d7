package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meno/internal/db"
	"meno/internal/repositories"
	"meno/internal/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-stories",
	Short: "Delete expired stories once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer conn.Close()

		stories := services.NewStoryService(repositories.NewStoryRepository(conn), repositories.NewUserRepository(conn))
		n, err := stories.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired stories\n", n)
		return nil
	},
}
