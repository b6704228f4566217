package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/metrics"
	"github.com/JandsonS/teste-sub000/internal/obs"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

type Reconciler struct {
	Store    reservation.Store
	Gateway  Gateway
	Throttle Throttle
	Events   events.Publisher
	Clock    clock.Clock
	Grace    time.Duration
	Logger   *slog.Logger

	// SearchTimeout bounds a single active-poll search.
	SearchTimeout time.Duration
}

type PaidEvent struct {
	ReservationID     string             `json:"reservation_id"`
	EstablishmentID   string             `json:"establishment_id"`
	Status            reservation.Status `json:"status"`
	ExternalPaymentID string             `json:"external_payment_id"`
	AmountCents       int64              `json:"amount_cents"`
	Source            string             `json:"source"`
}

// Reconcile applies an approved payment to a pending reservation. It is safe to
// call repeatedly and concurrently: only the first pending -> paid swap wins and
// every other call returns the current record unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, reservationID string, p Payment, source string) (*reservation.Reservation, error) {
	ctx, span := obs.Start(ctx, "payment.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", reservationID), attribute.String("payment.id", p.ID), attribute.String("source", source))

	res, err := r.Store.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	log := r.Logger.With("reservation_id", reservationID, "payment_id", p.ID, "source", source)

	if !p.Approved() {
		metrics.IncReconciliation(source, "not_approved")
		return res, nil
	}
	if p.ExternalReference != "" && p.ExternalReference != reservationID {
		log.WarnContext(ctx, "payment reference mismatch", "external_reference", p.ExternalReference)
		metrics.IncReconciliation(source, "reference_mismatch")
		return res, nil
	}

	switch {
	case res.Status == reservation.StatusPending:
	case res.Status == reservation.StatusCanceled || res.Status == reservation.StatusExpired:
		log.WarnContext(ctx, "approved payment for released reservation", "status", res.Status)
		metrics.IncOrphanPayment()
		metrics.IncReconciliation(source, "orphan")
		return res, nil
	default:
		metrics.IncReconciliation(source, "duplicate")
		return res, nil
	}

	if p.AmountCents > 0 && p.AmountCents < res.AmountCents {
		log.WarnContext(ctx, "approved amount below reservation amount", "paid_cents", p.AmountCents, "amount_cents", res.AmountCents)
		metrics.IncReconciliation(source, "underpaid")
		return res, nil
	}

	target := res.PaidStatus()
	g := reservation.Guard{Now: r.now(), Grace: r.grace()}
	applied, err := r.Store.ApplyPayment(ctx, reservationID, target, p.ID, g)
	if errors.Is(err, reservation.ErrDuplicateBooking) || errors.Is(err, reservation.ErrSlotUnavailable) {
		return r.refused(ctx, res, g, source, err, log)
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", reservationID, err)
	}
	if !applied {
		// lost the race to another reconciliation, the sweeper or an admin
		metrics.IncReconciliation(source, "lost_race")
		return r.Store.Get(ctx, reservationID)
	}

	metrics.IncReconciliation(source, "applied")
	metrics.IncTransition(string(reservation.StatusPending), string(target))
	log.InfoContext(ctx, "payment reconciled", "status", target)

	res.Status = target
	res.ExternalPaymentID = p.ID
	_ = r.Events.Publish(ctx, events.ReservationPaid, PaidEvent{
		ReservationID:     res.ID,
		EstablishmentID:   res.EstablishmentID,
		Status:            target,
		ExternalPaymentID: p.ID,
		AmountCents:       res.AmountCents,
		Source:            source,
	})
	return res, nil
}

// refused handles an approval that would make res blocking while the slot or
// the customer's day is held by another record. Once the payment window has
// lapsed the record is expired and the payment left for manual refund.
func (r *Reconciler) refused(ctx context.Context, res *reservation.Reservation, g reservation.Guard, source string, cause error, log *slog.Logger) (*reservation.Reservation, error) {
	if res.InGrace(g.Now, g.Grace) {
		log.WarnContext(ctx, "approved payment conflicts with a live reservation", "error", cause)
		metrics.IncReconciliation(source, "conflict")
		return res, nil
	}
	swapped, err := r.Store.CompareAndSwapStatus(ctx, res.ID, reservation.StatusPending, reservation.StatusExpired, "")
	if err != nil {
		return nil, fmt.Errorf("expire %s: %w", res.ID, err)
	}
	if swapped {
		metrics.AddExpired("reconciler", 1)
		res.Status = reservation.StatusExpired
		ev := events.FromReservation(*res)
		ev.PreviousStatus = string(reservation.StatusPending)
		_ = r.Events.Publish(ctx, events.ReservationExpired, ev)
	}
	log.WarnContext(ctx, "late approval after the slot was released", "error", cause)
	metrics.IncOrphanPayment()
	metrics.IncReconciliation(source, "orphan")
	return r.Store.Get(ctx, res.ID)
}

// Notification is a decoded gateway callback.
type Notification struct {
	Type              string
	PaymentID         string
	ExternalReference string
	Status            string
}

// HandleNotification processes a webhook delivery. Duplicate and irrelevant
// deliveries return nil. A non-nil error means the delivery should be retried
// by the gateway.
func (r *Reconciler) HandleNotification(ctx context.Context, n Notification) error {
	if n.Type != "" && n.Type != "payment" {
		r.Logger.DebugContext(ctx, "ignoring notification", "type", n.Type)
		return nil
	}

	var p Payment
	switch {
	case n.PaymentID != "":
		// the gateway's own record is authoritative over the payload
		got, err := r.Gateway.GetPayment(ctx, n.PaymentID)
		if errors.Is(err, reservation.ErrNotFound) {
			r.Logger.WarnContext(ctx, "notification for unknown payment", "payment_id", n.PaymentID)
			metrics.IncReconciliation(SourceWebhook, "unknown_payment")
			return nil
		}
		if err != nil {
			metrics.IncGatewayError("get_payment")
			return fmt.Errorf("lookup payment %s: %w", n.PaymentID, err)
		}
		p = *got
	case n.ExternalReference != "":
		// no gateway identifier: only a payment the gateway confirms counts
		sctx, cancel := context.WithTimeout(ctx, r.searchTimeout())
		got, err := r.Gateway.SearchApproved(sctx, n.ExternalReference)
		cancel()
		if err != nil {
			metrics.IncGatewayError("search")
			return fmt.Errorf("search payment for %s: %w", n.ExternalReference, err)
		}
		if got == nil {
			r.Logger.WarnContext(ctx, "notification not confirmed by gateway", "reservation_id", n.ExternalReference, "status", n.Status)
			metrics.IncReconciliation(SourceWebhook, "unconfirmed")
			return nil
		}
		p = *got
	default:
		r.Logger.WarnContext(ctx, "notification without payment id or reference")
		metrics.IncReconciliation(SourceWebhook, "ignored")
		return nil
	}

	if p.ExternalReference == "" {
		r.Logger.InfoContext(ctx, "payment without external reference", "payment_id", p.ID)
		metrics.IncReconciliation(SourceWebhook, "ignored")
		return nil
	}

	_, err := r.Reconcile(ctx, p.ExternalReference, p, SourceWebhook)
	if errors.Is(err, reservation.ErrNotFound) {
		r.Logger.WarnContext(ctx, "notification for unknown reservation", "reservation_id", p.ExternalReference, "payment_id", p.ID)
		metrics.IncReconciliation(SourceWebhook, "unknown_reservation")
		return nil
	}
	return err
}

// Poll returns the current reservation, first asking the gateway for an
// approved payment when the reservation is still awaiting one. Gateway
// failures leave the reservation pending.
func (r *Reconciler) Poll(ctx context.Context, reservationID string) (*reservation.Reservation, error) {
	res, err := r.Store.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != reservation.StatusPending || !res.PaymentMethod.Online() {
		return res, nil
	}
	if r.Throttle != nil && !r.Throttle.Allow(ctx, reservationID) {
		metrics.IncReconciliation(SourcePoll, "throttled")
		return res, nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.searchTimeout())
	defer cancel()
	p, err := r.Gateway.SearchApproved(sctx, reservationID)
	if err != nil {
		metrics.IncGatewayError("search")
		r.Logger.WarnContext(ctx, "payment search failed", "reservation_id", reservationID, "error", err)
		return res, nil
	}
	if p == nil {
		metrics.IncReconciliation(SourcePoll, "no_match")
		return res, nil
	}
	return r.Reconcile(ctx, reservationID, *p, SourcePoll)
}

func (r *Reconciler) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *Reconciler) grace() time.Duration {
	if r.Grace <= 0 {
		return reservation.DefaultGrace
	}
	return r.Grace
}

func (r *Reconciler) searchTimeout() time.Duration {
	if r.SearchTimeout <= 0 {
		return 5 * time.Second
	}
	return r.SearchTimeout
}
