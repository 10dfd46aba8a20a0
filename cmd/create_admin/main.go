package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"algoforce/internal/config"
	"algoforce/internal/database"
	"algoforce/internal/services"
	"algoforce/internal/util"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
		fullName string
		staff    bool
	)

	cmd := &cobra.Command{
		Use:   "create_admin",
		Short: "Create an account that can sign in to the lead admin routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required: pass --password or set ADMIN_PASSWORD")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.IsMemory() {
				return errors.New("admin accounts need a SQL DATABASE_URL, the memory store keeps no users")
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close(db)

			// Only CreateUser is used, so the token manager is never asked to sign.
			auth := services.NewAuthService(db, util.NewTokenManager(cfg.Auth.SecretKey, time.Minute), time.Minute)
			user, err := auth.CreateUser(context.Background(), services.CreateUserInput{
				Username: username,
				Email:    email,
				Password: password,
				FullName: fullName,
				IsAdmin:  !staff,
				IsStaff:  true,
			})
			if err != nil {
				return err
			}

			role := "admin"
			if staff {
				role = "staff"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %q (id=%d)\n", role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Login name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (defaults to $ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Display name")
	cmd.Flags().BoolVar(&staff, "staff", false, "Create a staff account instead of an admin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
