package reservation

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	for _, bad := range []string{"", "PAID", "paid", "pending ", "approved"} {
		if _, err := ParseStatus(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseStatus(%q): want validation error, got %v", bad, err)
		}
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPaidFull, true},
		{StatusPending, StatusPaidDeposit, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusConfirmed, false},
		{StatusLocalPending, StatusConfirmed, true},
		{StatusLocalPending, StatusPaidFull, false},
		{StatusLocalPending, StatusExpired, false},
		{StatusPaidDeposit, StatusCompleted, true},
		{StatusPaidFull, StatusConfirmed, true},
		{StatusPaidFull, StatusPending, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPaidFull, false},
		{StatusCanceled, StatusPending, false},
		{StatusExpired, StatusPaidFull, false},
		{StatusCompleted, StatusCanceled, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
		err := CheckTransition(tt.from, tt.to)
		if tt.ok != (err == nil) {
			t.Errorf("CheckTransition(%s, %s) = %v", tt.from, tt.to, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("CheckTransition error does not match ErrInvalidTransition: %v", err)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, from := range allStatuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				t.Errorf("terminal %s has edge to %s", from, to)
			}
		}
	}
}
