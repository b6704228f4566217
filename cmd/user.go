package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/config"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an admin user (email/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Store != "postgres" {
				return fmt.Errorf("user add requires STORE=postgres; use ADMIN_EMAIL/ADMIN_PASSWORD with the memory store")
			}
			logger := setupLogger(cfg)

			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer a.Close()

			store := auth.NewStore(a.users, cfg.CookieHashKey, cfg.CookieBlockKey)
			id, err := store.CreateUser(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id=%d)\n", email, id)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email")
	c.Flags().StringVar(&password, "password", "", "password (min 8 chars)")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
