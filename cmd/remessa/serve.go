package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/remessasegura/backend/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{Version: Version, Migrate: serveMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("starting remessa backend",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)
	return a.Run(ctx)
}
