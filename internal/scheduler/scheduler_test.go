package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/memstore"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFixed(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	store := memstore.New()
	rec := &events.Recorder{}
	s := &Sweeper{Store: store, Events: rec, Clock: fc, Interval: time.Minute, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	g := reservation.Guard{Now: fc.Now(), Grace: reservation.DefaultGrace}
	for i, st := range []reservation.Status{reservation.StatusPending, reservation.StatusLocalPending} {
		_, err := store.Create(ctx, &reservation.Reservation{
			ID: string(st), EstablishmentID: "studio", CustomerName: string(st), Date: "11/03/2025",
			Time: []string{"10:00", "10:30"}[i], Status: st, CreatedAt: fc.Now(),
		}, g)
		if err != nil {
			t.Fatal(err)
		}
	}

	ids, err := s.SweepOnce(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("inside grace: %v, %v", ids, err)
	}

	fc.Advance(reservation.DefaultGrace + time.Second)
	ids, err = s.SweepOnce(ctx)
	if err != nil || len(ids) != 1 || ids[0] != string(reservation.StatusPending) {
		t.Fatalf("after grace: %v, %v", ids, err)
	}
	if keys := rec.Keys(); len(keys) != 1 || keys[0] != events.ReservationExpired {
		t.Fatalf("events = %v", keys)
	}

	// already reclaimed
	ids, _ = s.SweepOnce(ctx)
	if len(ids) != 0 {
		t.Fatalf("second sweep = %v", ids)
	}
	local, _ := store.Get(ctx, string(reservation.StatusLocalPending))
	if local.Status != reservation.StatusLocalPending {
		t.Fatalf("local booking touched: %s", local.Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		Store:    memstore.New(),
		Events:   events.Noop{},
		Clock:    clock.NewFixed(time.Now()),
		Interval: 10 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
