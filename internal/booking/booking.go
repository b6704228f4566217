package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JandsonS/teste-sub000/internal/availability"
	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/metrics"
	"github.com/JandsonS/teste-sub000/internal/obs"
	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/reservation"
	"github.com/JandsonS/teste-sub000/internal/validation"
)

type Service struct {
	Store    reservation.Store
	Settings availability.SettingsSource
	Gateway  payment.Gateway
	Events   events.Publisher
	Clock    clock.Clock
	Grace    time.Duration
	Logger   *slog.Logger
}

type CreateInput struct {
	EstablishmentID    string                    `json:"establishmentId" validate:"required,slug"`
	Date               string                    `json:"date" validate:"required,brdate"`
	Time               string                    `json:"time" validate:"required,slot"`
	CustomerName       string                    `json:"customerName" validate:"required,max=120"`
	CustomerPhone      string                    `json:"customerPhone" validate:"required,max=40"`
	ServiceDescription string                    `json:"serviceDescription" validate:"required,max=500"`
	AmountCents        int64                     `json:"amountCents" validate:"gte=0"`
	PaymentMethod      reservation.PaymentMethod `json:"paymentMethod" validate:"required,oneof=PIX CARD LOCAL"`
	Plan               reservation.Plan          `json:"plan" validate:"omitempty,oneof=FULL DEPOSIT"`
}

type CreateResult struct {
	Reservation *reservation.Reservation `json:"reservation"`
	Intent      *payment.Intent          `json:"intent,omitempty"`
}

func (s *Service) grace() time.Duration {
	if s.Grace <= 0 {
		return reservation.DefaultGrace
	}
	return s.Grace
}

func (s *Service) validate(ctx context.Context, in *CreateInput, now time.Time) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.ServiceDescription = strings.TrimSpace(in.ServiceDescription)
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.PaymentMethod.Online() && in.AmountCents <= 0 {
		return reservation.NewValidationError("amountCents", "must be positive for online payments")
	}

	settings, err := s.Settings.Settings(ctx, in.EstablishmentID)
	if err != nil {
		return err
	}
	if !availability.OnGrid(settings, in.Time) {
		return reservation.NewValidationError("time", fmt.Sprintf("%s is not an offered slot", in.Time))
	}
	day, _ := reservation.ParseDate(in.Date)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch {
	case day.Before(today):
		return reservation.NewValidationError("date", "is in the past")
	case day.Equal(today) && in.Time <= now.Format(clock.TimeLayout):
		return reservation.NewValidationError("time", "has already started")
	}
	return nil
}

// Create books a slot. Conflicts are reported before any payment intent is
// requested; an intent failure releases the slot again.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	ctx, span := obs.Start(ctx, "booking.Create")
	defer span.End()

	now := s.Clock.Now()
	if err := s.validate(ctx, &in, now); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("establishment.id", in.EstablishmentID),
		attribute.String("slot", in.Date+" "+in.Time),
		attribute.String("payment.method", string(in.PaymentMethod)),
	)

	r := &reservation.Reservation{
		ID:                 uuid.NewString(),
		EstablishmentID:    in.EstablishmentID,
		CustomerName:       in.CustomerName,
		CustomerPhone:      in.CustomerPhone,
		ServiceDescription: in.ServiceDescription,
		Date:               in.Date,
		Time:               in.Time,
		AmountCents:        in.AmountCents,
		PaymentMethod:      in.PaymentMethod,
		Plan:               in.Plan,
		Status:             reservation.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if r.Plan == "" || r.PaymentMethod == reservation.MethodLocal {
		r.Plan = reservation.PlanFull
	}
	if r.PaymentMethod == reservation.MethodLocal {
		r.Status = reservation.StatusLocalPending
	}

	expired, err := s.Store.Create(ctx, r, reservation.Guard{Now: now, Grace: s.grace()})
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrSlotUnavailable):
			metrics.IncConflict("slot_unavailable")
		case errors.Is(err, reservation.ErrDuplicateBooking):
			metrics.IncConflict("duplicate_booking")
		}
		return nil, err
	}
	s.reclaimed(ctx, expired)
	log := s.Logger.With("reservation_id", r.ID, "establishment_id", r.EstablishmentID, "date", r.Date, "time", r.Time)

	var intent *payment.Intent
	if r.PaymentMethod.Online() {
		intent, err = s.Gateway.CreateIntent(ctx, payment.IntentRequest{
			ReservationID: r.ID,
			Method:        r.PaymentMethod,
			AmountCents:   r.AmountCents,
			Description:   r.ServiceDescription,
			PayerName:     r.CustomerName,
			PayerPhone:    r.CustomerPhone,
		})
		if err != nil {
			metrics.IncGatewayError("create_intent")
			log.ErrorContext(ctx, "payment intent failed, releasing slot", "error", err)
			if _, cerr := s.Store.CompareAndSwapStatus(ctx, r.ID, reservation.StatusPending, reservation.StatusCanceled, ""); cerr != nil {
				log.ErrorContext(ctx, "release slot failed", "error", cerr)
			}
			return nil, fmt.Errorf("create payment intent: %w", reservation.ErrGatewayUnavailable)
		}
		if intent.PaymentID != "" {
			if err := s.Store.AttachPayment(ctx, r.ID, intent.PaymentID); err != nil {
				// the webhook still correlates by external reference
				log.WarnContext(ctx, "attach payment id failed", "payment_id", intent.PaymentID, "error", err)
			} else {
				r.ExternalPaymentID = intent.PaymentID
			}
		}
	}

	metrics.IncReservationCreated(string(r.PaymentMethod))
	log.InfoContext(ctx, "reservation created", "status", r.Status, "method", r.PaymentMethod)
	_ = s.Events.Publish(ctx, events.ReservationCreated, events.FromReservation(*r))
	return &CreateResult{Reservation: r, Intent: intent}, nil
}

func (s *Service) reclaimed(ctx context.Context, ids []string) {
	metrics.AddExpired("guard", len(ids))
	for _, id := range ids {
		s.Logger.InfoContext(ctx, "stale pending reservation reclaimed", "reservation_id", id)
		_ = s.Events.Publish(ctx, events.ReservationExpired, events.ReservationEvent{ID: id, Status: string(reservation.StatusExpired)})
	}
}

const maxTransitionAttempts = 3

// Transition applies an administrative status change. Requesting the current
// status is a no-op.
func (s *Service) Transition(ctx context.Context, id string, to reservation.Status) (*reservation.Reservation, error) {
	ctx, span := obs.Start(ctx, "booking.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", id), attribute.String("status.to", string(to)))

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		r, err := s.Store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if r.Status == to {
			return r, nil
		}
		if err := reservation.CheckTransition(r.Status, to); err != nil {
			return nil, err
		}
		var ok bool
		if r.Status == reservation.StatusPending && to.Paid() {
			// a manual payment makes the record blocking: same scope as a gateway approval
			ok, err = s.Store.ApplyPayment(ctx, id, to, "", reservation.Guard{Now: s.Clock.Now(), Grace: s.grace()})
		} else {
			ok, err = s.Store.CompareAndSwapStatus(ctx, id, r.Status, to, "")
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		from := r.Status
		r.Status = to
		r.UpdatedAt = s.Clock.Now()
		metrics.IncTransition(string(from), string(to))
		s.Logger.InfoContext(ctx, "reservation status changed", "reservation_id", id, "from", from, "to", to)
		ev := events.FromReservation(*r)
		ev.PreviousStatus = string(from)
		_ = s.Events.Publish(ctx, events.ReservationStatusChanged, ev)
		return r, nil
	}
	return nil, fmt.Errorf("reservation %s kept changing: %w", id, reservation.ErrInvalidTransition)
}

func (s *Service) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	if f.EstablishmentID != "" {
		if err := validation.Var("establishmentId", f.EstablishmentID, "slug"); err != nil {
			return nil, err
		}
	}
	if f.Date != "" {
		if err := validation.Var("date", f.Date, "brdate"); err != nil {
			return nil, err
		}
	}
	return s.Store.List(ctx, f)
}
