package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"meno/internal/app"
	"meno/internal/db"
	"meno/internal/media"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
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

		if migrateOnStart {
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("schema applied")
		}

		images, err := media.NewStore(cfg.Media.ImageDir, cfg.Media.URLPrefix, cfg.Media.MaxWidth, cfg.Media.Quality)
		if err != nil {
			return fmt.Errorf("media store: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return app.New(cfg, app.PostgresRepositories(conn), images).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply the schema before serving")
}
