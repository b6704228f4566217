package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/availability"
	"github.com/JandsonS/teste-sub000/internal/config"
	"github.com/JandsonS/teste-sub000/internal/metrics"
	"github.com/JandsonS/teste-sub000/internal/obs"
	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/scheduler"
	"github.com/JandsonS/teste-sub000/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API and the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := cfg.RequireCookieKeys(); err != nil {
				if cfg.IsProduction() {
					return err
				}
				logger.Warn("cookie keys not configured; generating ephemeral keys, admin sessions will not survive a restart")
				cfg.CookieHashKey = securecookie.GenerateRandomKey(64)
				cfg.CookieBlockKey = securecookie.GenerateRandomKey(32)
			}

			shutdownTracer, err := obs.InitTracer(ctx, "salonbook", Version, cfg.Environment, cfg.OTLPEndpoint)
			if err != nil {
				return fmt.Errorf("tracer: %w", err)
			}
			defer func() { _ = shutdownTracer(context.Background()) }()

			if cfg.MetricsEnabled {
				metrics.Register()
			}

			a, err := newApp(ctx, cfg, logger, appOptions{migrate: migrateUp, settings: true, gateway: true, events: true})
			if err != nil {
				return err
			}
			defer a.Close()

			authStore := auth.NewStore(a.users, cfg.CookieHashKey, cfg.CookieBlockKey)
			if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
				if _, err := authStore.CreateUser(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil && !errors.Is(err, auth.ErrUserExists) {
					return fmt.Errorf("seed admin: %w", err)
				}
			}

			sweeper := &scheduler.Sweeper{
				Store:    a.store,
				Events:   a.events,
				Clock:    a.clock,
				Grace:    cfg.PaymentGrace,
				Interval: cfg.SweepInterval,
				Logger:   logger,
			}
			go func() { _ = sweeper.Run(ctx) }()

			ws := &web.Server{
				Booking: a.bookingService(),
				Availability: &availability.Calculator{
					Store:    a.store,
					Settings: a.settings,
					Clock:    a.clock,
					Grace:    cfg.PaymentGrace,
				},
				Reconciler: &payment.Reconciler{
					Store:         a.store,
					Gateway:       a.gateway,
					Throttle:      a.throttle,
					Events:        a.events,
					Clock:         a.clock,
					Grace:         cfg.PaymentGrace,
					Logger:        logger,
					SearchTimeout: cfg.PollSearchTimeout,
				},
				Auth:           authStore,
				Logger:         logger,
				CORSOrigins:    cfg.CORSOrigins,
				MetricsEnabled: cfg.MetricsEnabled,
			}
			if a.db != nil {
				ws.Ready = a.db.Ping
			}

			logger.Info("starting", "addr", cfg.ListenAddr, "store", cfg.Store, "version", Version)
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
