package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JandsonS/teste-sub000/internal/config"
	"github.com/JandsonS/teste-sub000/internal/db"
	"github.com/JandsonS/teste-sub000/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				files, err := migrate.Files()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Store != "postgres" {
				return fmt.Errorf("migrate requires STORE=postgres")
			}
			logger := setupLogger(cfg)

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			return migrate.Up(ctx, d, logger)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migration files and exit")
	return cmd
}
