package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodPix   PaymentMethod = "PIX"
	MethodCard  PaymentMethod = "CARD"
	MethodLocal PaymentMethod = "LOCAL"
)

func (m PaymentMethod) Online() bool { return m == MethodPix || m == MethodCard }

// Plan decides which paid status an approved payment maps to.
type Plan string

const (
	PlanFull    Plan = "FULL"
	PlanDeposit Plan = "DEPOSIT"
)

const DefaultGrace = 10 * time.Minute

type Reservation struct {
	ID                 string        `json:"id"`
	EstablishmentID    string        `json:"establishmentId"`
	CustomerName       string        `json:"customerName"`
	CustomerPhone      string        `json:"customerPhone"`
	ServiceDescription string        `json:"serviceDescription"`
	Date               string        `json:"date"` // dd/mm/yyyy
	Time               string        `json:"time"` // HH:mm
	AmountCents        int64         `json:"amountCents"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	Plan               Plan          `json:"plan"`
	ExternalPaymentID  string        `json:"externalPaymentId,omitempty"`
	Status             Status        `json:"status"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// InGrace reports whether a pending record is still within its payment window.
func (r Reservation) InGrace(now time.Time, grace time.Duration) bool {
	return r.Status == StatusPending && now.Before(r.CreatedAt.Add(grace))
}

// Occupies reports whether r holds its slot at instant now.
func (r Reservation) Occupies(now time.Time, grace time.Duration) bool {
	return r.Status.Blocking() || r.InGrace(now, grace)
}

// PaidStatus is the status an approved payment moves r to.
func (r Reservation) PaidStatus() Status {
	if r.Plan == PlanDeposit {
		return StatusPaidDeposit
	}
	return StatusPaidFull
}

// SlotKey identifies the (establishment, date, time) mutual-exclusion scope.
func (r Reservation) SlotKey() string {
	return r.EstablishmentID + "|" + r.Date + "|" + r.Time
}

// CustomerKey identifies the (establishment, date, customer) scope.
func (r Reservation) CustomerKey() string {
	return r.EstablishmentID + "|" + r.Date + "|" + NormalizeName(r.CustomerName)
}

// NormalizeName folds a free-text customer name for duplicate detection.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseDate validates a dd/mm/yyyy calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil || t.Format("02/01/2006") != s {
		return time.Time{}, NewValidationError("date", fmt.Sprintf("%q is not a dd/mm/yyyy date", s))
	}
	return t, nil
}

// ParseSlotTime validates an HH:mm time on a half-hour boundary.
func ParseSlotTime(s string) error {
	t, err := time.Parse("15:04", s)
	if err != nil || t.Format("15:04") != s {
		return NewValidationError("time", fmt.Sprintf("%q is not an HH:mm time", s))
	}
	if t.Minute()%30 != 0 {
		return NewValidationError("time", fmt.Sprintf("%q is not on a half-hour slot", s))
	}
	return nil
}

type Filter struct {
	EstablishmentID string
	Date            string
	Status          Status
	Limit           int
}

// Store is the reservation ledger.
type Store interface {
	// Create runs the guard against the current slot and customer records,
	// expires the stale pending ones it reports and inserts r, atomically
	// with respect to other Create calls on the same slot or customer.
	Create(ctx context.Context, r *Reservation, g Guard) (expired []string, err error)
	Get(ctx context.Context, id string) (*Reservation, error)
	// ListByDate returns the non-canceled, non-expired records of a day.
	ListByDate(ctx context.Context, establishmentID, date string) ([]Reservation, error)
	List(ctx context.Context, f Filter) ([]Reservation, error)
	// CompareAndSwapStatus moves id from -> to only if its status is still from.
	// A non-empty externalPaymentID is stored alongside.
	CompareAndSwapStatus(ctx context.Context, id string, from, to Status, externalPaymentID string) (bool, error)
	// ApplyPayment moves a pending record to the paid status to, under the
	// same slot and customer scope Create serializes on. It reports false when
	// the record is no longer pending and fails with ErrSlotUnavailable or
	// ErrDuplicateBooking when g.CheckPaid refuses.
	ApplyPayment(ctx context.Context, id string, to Status, externalPaymentID string, g Guard) (bool, error)
	// AttachPayment records the gateway payment id while the record is pending.
	AttachPayment(ctx context.Context, id, externalPaymentID string) error
	// ExpireStale moves pending records created before cutoff to expired.
	ExpireStale(ctx context.Context, cutoff time.Time) ([]string, error)
}
