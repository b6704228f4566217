// Package validation holds the shared validator instance and the custom
// tags used by request structs: slug, brdate (dd/mm/yyyy) and slot (HH:mm on :00/:30).
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JandsonS/teste-sub000/internal/reservation"
)

var slugRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var Validate = New()

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("brdate", func(fl validator.FieldLevel) bool {
		_, err := reservation.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return reservation.ParseSlotTime(fl.Field().String()) == nil
	})
	return v
}

// Struct validates s and converts failures into a *reservation.ValidationError.
func Struct(s any) error {
	return convert(Validate.Struct(s))
}

// Var validates a single value under the given field name.
func Var(field string, v any, tag string) error {
	err := Validate.Var(v, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return reservation.NewValidationError(field, message(verrs[0]))
	}
	return reservation.NewValidationError(field, err.Error())
}

func convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return reservation.NewValidationError("body", err.Error())
	}
	out := &reservation.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "slug":
		return "must contain only letters, digits, '-' or '_'"
	case "brdate":
		return "must be a dd/mm/yyyy date"
	case "slot":
		return "must be an HH:mm time on a :00 or :30 boundary"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
