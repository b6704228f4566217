package reservation

import "fmt"

type Status string

const (
	StatusPending      Status = "pending"
	StatusLocalPending Status = "local_pending"
	StatusPaidDeposit  Status = "paid_deposit"
	StatusPaidFull     Status = "paid_full"
	StatusConfirmed    Status = "confirmed"
	StatusCompleted    Status = "completed"
	StatusCanceled     Status = "canceled"
	StatusExpired      Status = "expired"
)

var allStatuses = []Status{
	StatusPending, StatusLocalPending, StatusPaidDeposit, StatusPaidFull,
	StatusConfirmed, StatusCompleted, StatusCanceled, StatusExpired,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s))
}

// Blocking statuses occupy a slot until explicitly canceled.
func (s Status) Blocking() bool {
	switch s {
	case StatusLocalPending, StatusPaidDeposit, StatusPaidFull, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusExpired || s == StatusCompleted
}

func (s Status) Paid() bool {
	return s == StatusPaidDeposit || s == StatusPaidFull
}

var transitions = map[Status][]Status{
	StatusPending:      {StatusPaidDeposit, StatusPaidFull, StatusExpired, StatusCanceled},
	StatusLocalPending: {StatusConfirmed, StatusCanceled},
	StatusPaidDeposit:  {StatusConfirmed, StatusCompleted, StatusCanceled},
	StatusPaidFull:     {StatusConfirmed, StatusCompleted, StatusCanceled},
	StatusConfirmed:    {StatusCompleted, StatusCanceled},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Same-status requests are not edges; callers treat them as no-ops.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition returning ErrInvalidTransition.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
