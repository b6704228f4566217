package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JandsonS/teste-sub000/internal/config"
	"github.com/JandsonS/teste-sub000/internal/scheduler"
)

func newSweepCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire pending reservations whose payment window has elapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, logger, appOptions{events: true})
			if err != nil {
				return err
			}
			defer a.Close()

			s := &scheduler.Sweeper{
				Store:    a.store,
				Events:   a.events,
				Clock:    a.clock,
				Grace:    cfg.PaymentGrace,
				Interval: cfg.SweepInterval,
				Logger:   logger,
			}
			if !once {
				return s.Run(ctx)
			}
			ids, err := s.SweepOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d reservation(s)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}
