package validation

import (
	"errors"
	"testing"

	"github.com/JandsonS/teste-sub000/internal/reservation"
)

type sample struct {
	Establishment string `json:"establishmentId" validate:"required,slug"`
	Date          string `json:"date" validate:"required,brdate"`
	Time          string `json:"time" validate:"required,slot"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{"studio_1", "10/03/2025", "09:30"}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	err := Struct(sample{"studio 1", "2025-03-10", "09:10"})
	var verr *reservation.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, reservation.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	for _, f := range []string{"establishmentId", "date", "time"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Errorf("missing field %q in %v", f, verr.Fields)
		}
	}
}

func TestVar(t *testing.T) {
	if err := Var("date", "31/04/2025", "brdate"); !errors.Is(err, reservation.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if err := Var("establishmentId", "salao-da-ana", "required,slug"); err != nil {
		t.Fatal(err)
	}
}
