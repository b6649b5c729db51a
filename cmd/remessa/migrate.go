package main

import (
	"context"
	"fmt"
	"time"

	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Database.DSN == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("database.dsn is required to migrate"))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	pgCfg := postgres.DefaultConfig(cfg.Database.DSN)
	if cfg.Database.MaxConns > 0 {
		pgCfg.MaxConns = cfg.Database.MaxConns
	}
	db, err := postgres.Connect(ctx, pgCfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Migrate(ctx)
}
