package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/remessasegura/backend/internal/app"
	"github.com/remessasegura/backend/internal/auth"
	"github.com/remessasegura/backend/internal/core"
	"github.com/spf13/cobra"
)

var (
	userName       string
	userEmail      string
	userPermission string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage portal accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a portal account",
	Long: `Create a portal account. The password is read from the
REMESSA_USER_PASSWORD environment variable so it never reaches the shell
history.`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "login e-mail (required)")
	userCreateCmd.Flags().StringVar(&userPermission, "permission", "PORTAL", "ADMIN, SUPERVISOR or PORTAL")

	userCreateCmd.MarkFlagRequired("name")
	userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	password := os.Getenv("REMESSA_USER_PASSWORD")
	if password == "" {
		return fmt.Errorf("REMESSA_USER_PASSWORD is not set")
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Database.DSN == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("database.dsn is required to create accounts"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.Options{Version: Version})
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Users().CreateUser(ctx, auth.NewUser{
		Name:       userName,
		Email:      userEmail,
		Password:   password,
		Permission: userPermission,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
