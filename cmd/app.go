package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/availability"
	"github.com/JandsonS/teste-sub000/internal/booking"
	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/config"
	"github.com/JandsonS/teste-sub000/internal/db"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/memstore"
	"github.com/JandsonS/teste-sub000/internal/mercadopago"
	"github.com/JandsonS/teste-sub000/internal/migrate"
	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/postgres"
	"github.com/JandsonS/teste-sub000/internal/reservation"
	"github.com/JandsonS/teste-sub000/internal/throttle"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	clock  clock.Clock

	db       *db.DB
	store    reservation.Store
	users    auth.UserRepo
	settings *availability.FileSettings
	events   events.Publisher
	throttle payment.Throttle
	gateway  payment.Gateway
	closers  []func()
}

type appOptions struct {
	migrate  bool
	settings bool
	gateway  bool
	events   bool
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	clk, err := clock.NewLocal(cfg.TimeZone)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, clock: clk, events: events.Noop{}}

	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		a.store = memstore.New()
		a.users = memstore.NewUsers()
	default:
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		a.db = d
		a.closers = append(a.closers, d.Close)
		if err := d.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if opts.migrate {
			if err := migrate.Up(ctx, d, logger); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		a.store = postgres.NewReservationRepo(d)
		a.users = postgres.NewAdminUserRepo(d)
	}

	if opts.settings {
		fs, err := availability.LoadFile(cfg.EstablishmentsFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("establishments: %w", err)
		}
		a.settings = fs
	}

	if opts.gateway {
		if cfg.MPAccessToken == "" {
			logger.Warn("MP_ACCESS_TOKEN not set; online payments will fail")
		}
		a.gateway = mercadopago.New(mercadopago.Options{
			BaseURL:         cfg.MPBaseURL,
			AccessToken:     cfg.MPAccessToken,
			NotificationURL: cfg.NotificationURL(),
			BackURL:         cfg.PublicBaseURL,
			PayerEmail:      cfg.MPPayerEmail,
		})

		if cfg.RedisAddr != "" {
			client := throttle.NewRedisClient(throttle.RedisOptions{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			a.closers = append(a.closers, func() { _ = client.Close() })
			if err := throttle.Ping(ctx, client); err != nil {
				logger.Warn("redis unreachable; throttle fails open until it recovers", "error", err)
			}
			a.throttle = &throttle.Redis{
				Client:   client,
				Interval: cfg.PollThrottle,
				Prefix:   "salonbook:poll:",
				Logger:   logger,
			}
		} else {
			a.throttle = &throttle.Local{Clock: clk, Interval: cfg.PollThrottle}
		}
	}

	if opts.events && cfg.RabbitURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		a.events = events.Logged{Next: pub, Logger: logger}
	}

	return a, nil
}

func (a *app) bookingService() *booking.Service {
	return &booking.Service{
		Store:    a.store,
		Settings: a.settings,
		Gateway:  a.gateway,
		Events:   a.events,
		Clock:    a.clock,
		Grace:    a.cfg.PaymentGrace,
		Logger:   a.logger,
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
