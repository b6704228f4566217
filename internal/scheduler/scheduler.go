package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/metrics"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

// Sweeper periodically expires pending reservations whose payment grace
// window has elapsed. It runs alongside the lazy reclamation done at booking
// time; both only touch records that are still pending.
type Sweeper struct {
	Store    reservation.Store
	Events   events.Publisher
	Clock    clock.Clock
	Grace    time.Duration
	Interval time.Duration
	Logger   *slog.Logger

	mu sync.Mutex
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
		s.Logger.ErrorContext(ctx, "sweep failed", "error", err)
	}
}

// SweepOnce runs a single pass and returns the expired reservation ids.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]string, error) {
	// one pass at a time per process
	s.mu.Lock()
	defer s.mu.Unlock()

	grace := s.Grace
	if grace <= 0 {
		grace = reservation.DefaultGrace
	}
	cutoff := s.Clock.Now().Add(-grace)
	ids, err := s.Store.ExpireStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	metrics.AddExpired("sweeper", len(ids))
	for _, id := range ids {
		_ = s.Events.Publish(ctx, events.ReservationExpired, events.ReservationEvent{ID: id, Status: string(reservation.StatusExpired)})
	}
	if len(ids) > 0 {
		s.Logger.InfoContext(ctx, "expired stale reservations", "count", len(ids), "cutoff", cutoff)
	}
	return ids, nil
}
