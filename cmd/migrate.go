package main

import (
	"context"
	"fmt"

	"rent-tracking/internal/config"
	"rent-tracking/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg := config.Load()
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			db, err := initPostgres(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("postgres init: %w", err)
			}
			defer db.Close()

			applied, err := repository.Migrate(ctx, db)
			if err != nil {
				return err
			}
			for _, name := range applied {
				log.Info("migration applied", zap.String("name", name))
			}
			fmt.Printf("%d migration(s) applied\n", len(applied))
			return nil
		},
	}
}
