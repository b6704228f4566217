package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JandsonS/teste-sub000/internal/config"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

func newReservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservation",
		Aliases: []string{"res"},
		Short:   "Inspect and manage reservations",
	}
	cmd.AddCommand(newReservationListCmd())
	cmd.AddCommand(newReservationSetStatusCmd())
	return cmd
}

func newReservationListCmd() *cobra.Command {
	var (
		establishmentID string
		date            string
		status          string
		limit           int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			f := reservation.Filter{EstablishmentID: establishmentID, Date: date, Limit: limit}
			if status != "" {
				st, err := reservation.ParseStatus(status)
				if err != nil {
					return err
				}
				f.Status = st
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.bookingService().List(ctx, f)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tESTABLISHMENT\tDATE\tTIME\tCUSTOMER\tMETHOD\tSTATUS\tAMOUNT")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d.%02d\n",
					r.ID, r.EstablishmentID, r.Date, r.Time, r.CustomerName,
					r.PaymentMethod, r.Status, r.AmountCents/100, r.AmountCents%100)
			}
			return w.Flush()
		},
	}

	c.Flags().StringVar(&establishmentID, "establishment", "", "establishment id")
	c.Flags().StringVar(&date, "date", "", "date (dd/mm/yyyy)")
	c.Flags().StringVar(&status, "status", "", "status filter")
	c.Flags().IntVar(&limit, "limit", 100, "max rows")
	return c
}

func newReservationSetStatusCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Apply an administrative status change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			to, err := reservation.ParseStatus(args[1])
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger, appOptions{events: true})
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.bookingService().Transition(ctx, args[0], to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.ID, r.Status)
			return nil
		},
	}
	return c
}
