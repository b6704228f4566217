package reservation

import (
	"errors"
	"testing"
)

func TestValidationErrorMessageOrder(t *testing.T) {
	e := &ValidationError{}
	e.Add("time", "is required")
	e.Add("date", "is required")
	e.Add("customerName", "is required")

	want := "validation error: customerName: is required; date: is required; time: is required"
	for i := 0; i < 20; i++ {
		if got := e.Error(); got != want {
			t.Fatalf("Error() = %q, want %q", got, want)
		}
	}
	if !errors.Is(e, ErrValidation) {
		t.Fatal("ValidationError must match ErrValidation")
	}
}
